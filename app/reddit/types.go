package reddit

import (
	"github.com/bakerboy448/RedditModLog/app/modlog"
)

const (
	DefaultAPIURL  = "https://oauth.reddit.com"
	DefaultAuthURL = "https://www.reddit.com/api/v1/access_token"
)

type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

type Config struct {
	Credentials Credentials
	UserAgent   string
	APIURL      string
	AuthURL     string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

type modLogListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data modAction `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type modAction struct {
	ID              string  `json:"id"`
	Action          string  `json:"action"`
	Mod             string  `json:"mod"`
	Subreddit       string  `json:"subreddit"`
	CreatedUTC      float64 `json:"created_utc"`
	Details         string  `json:"details"`
	Description     string  `json:"description"`
	ModNote         string  `json:"mod_note"`
	TargetAuthor    string  `json:"target_author"`
	TargetFullname  string  `json:"target_fullname"`
	TargetPermalink string  `json:"target_permalink"`
	TargetTitle     string  `json:"target_title"`
}

func (a modAction) toRaw() modlog.RawAction {
	return modlog.RawAction{
		ID:              a.ID,
		Action:          a.Action,
		Moderator:       a.Mod,
		Subreddit:       a.Subreddit,
		CreatedUTC:      int64(a.CreatedUTC),
		Details:         a.Details,
		Description:     a.Description,
		ModNote:         a.ModNote,
		TargetAuthor:    a.TargetAuthor,
		TargetFullname:  a.TargetFullname,
		TargetPermalink: a.TargetPermalink,
		TargetTitle:     a.TargetTitle,
	}
}

type wikiPageResponse struct {
	Data struct {
		ContentMD string `json:"content_md"`
	} `json:"data"`
}
