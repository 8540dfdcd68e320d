package modlog

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const redditBaseURL = "https://www.reddit.com"

var (
	// /r/<sub>/comments/<post>[/<slug>[/<comment>]]
	contentPathPattern = regexp.MustCompile(`^/r/([A-Za-z0-9_]+)/comments/([a-z0-9]+)(?:/([^/]*)(?:/([a-z0-9]+))?)?/?$`)
	numericPattern     = regexp.MustCompile(`^[0-9]+$`)
)

var removalActions = map[string]bool{
	"removelink":    true,
	"removecomment": true,
	"spamlink":      true,
	"spamcomment":   true,
	"removepost":    true,
	"removecontent": true,
}

var approvalActions = map[string]bool{
	"approvelink":    true,
	"approvecomment": true,
}

// Reason values upstream uses when no specific reason exists.
var placeholderReasons = map[string]bool{
	"":                       true,
	"-":                      true,
	"none":                   true,
	"n/a":                    true,
	"remove":                 true,
	"removed":                true,
	"spam":                   true,
	"confirm_spam":           true,
	"no reason":              true,
	"reason applied":         true,
	"removal reason":         true,
	"removal reason applied": true,
	"[removed]":              true,
	"[deleted]":              true,
}

var placeholderAuthors = map[string]bool{
	"":          true,
	"[deleted]": true,
	"[removed]": true,
}

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run maps a raw upstream record to its canonical form. Fields that cannot be
// resolved are left empty and reported as anomalies.
func (n *Normalizer) Run(raw RawAction, config *Config) (Action, []Anomaly) {
	var anomalies []Anomaly
	note := func(field, reason string) {
		anomalies = append(anomalies, Anomaly{ActionID: raw.ID, Field: field, Reason: reason})
	}

	action := Action{
		ActionID:   strings.TrimSpace(raw.ID),
		Subreddit:  config.Name,
		ActionType: strings.ToLower(strings.TrimSpace(raw.Action)),
		Moderator:  strings.TrimSpace(raw.Moderator),
		CreatedAt:  raw.CreatedUTC,
	}

	display := NewModeratorDisplay(config)
	action.Kind = classify(action.ActionType, display.IsAutomation(action.Moderator))

	if action.Moderator == "" {
		note("moderator", "missing acting principal")
	}

	action.TargetID, action.TargetKind, action.TargetPermalink = resolveTarget(raw.TargetPermalink, raw.TargetFullname)
	if action.TargetID == "" {
		note("target_id", "no resolvable permalink or fullname")
	}
	if action.TargetPermalink == "" && raw.TargetPermalink != "" {
		note("target_permalink", "permalink does not point at content")
	}

	action.TargetTitle = CleanText(raw.TargetTitle)

	author := CleanText(raw.TargetAuthor)
	if placeholderAuthors[strings.ToLower(author)] {
		author = ""
		note("target_author", "author redacted upstream")
	}
	action.TargetAuthor = author

	action.RemovalReason = resolveReason(raw)
	if action.RemovalReason == "" && action.Kind.IsRemoval() {
		note("removal_reason", "no specific reason supplied")
	}

	return action, anomalies
}

func classify(actionType string, automated bool) ActionKind {
	switch {
	case removalActions[actionType] && automated:
		return KindFilterRemoval
	case removalActions[actionType]:
		return KindRemoval
	case approvalActions[actionType]:
		return KindApproval
	case actionType == "addremovalreason":
		return KindReason
	default:
		return KindOther
	}
}

// resolveReason picks the most specific reason upstream supplied. A bare numeric
// template reference is replaced by the accompanying description, never stored.
func resolveReason(raw RawAction) string {
	details := CleanText(raw.Details)
	description := CleanText(raw.Description)
	note := CleanText(raw.ModNote)

	if numericPattern.MatchString(details) {
		details = ""
	}

	for _, candidate := range []string{details, description, note} {
		if numericPattern.MatchString(candidate) {
			continue
		}
		if !placeholderReasons[strings.ToLower(candidate)] {
			return candidate
		}
	}
	return ""
}

// resolveTarget extracts the content identifier. For comments the comment's own
// ID is used, not the parent post's.
func resolveTarget(permalink, fullname string) (string, TargetKind, string) {
	path := contentPath(permalink)
	if path != "" {
		m := contentPathPattern.FindStringSubmatch(path)
		if m[4] != "" {
			return m[4], TargetComment, path
		}
		if strings.HasPrefix(fullname, "t1_") {
			return strings.TrimPrefix(fullname, "t1_"), TargetComment, path
		}
		return m[2], TargetPost, path
	}

	switch {
	case strings.HasPrefix(fullname, "t1_"):
		return strings.TrimPrefix(fullname, "t1_"), TargetComment, ""
	case strings.HasPrefix(fullname, "t3_"):
		return strings.TrimPrefix(fullname, "t3_"), TargetPost, ""
	}
	return "", TargetNone, ""
}

// contentPath returns the cleaned permalink path when it points at a post or
// comment, and "" for anything else, including user profiles.
func contentPath(permalink string) string {
	permalink = strings.TrimSpace(permalink)
	if permalink == "" {
		return ""
	}

	u, err := url.Parse(permalink)
	if err != nil {
		return ""
	}
	if u.Host != "" && !isRedditHost(u.Hostname()) {
		return ""
	}

	path := u.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if !contentPathPattern.MatchString(path) {
		return ""
	}
	return path
}

func isRedditHost(host string) bool {
	host = strings.ToLower(host)
	return host == "reddit.com" || strings.HasSuffix(host, ".reddit.com")
}

func contentURL(permalink string) string {
	path := contentPath(permalink)
	if path == "" {
		return ""
	}
	return redditBaseURL + path
}

// CleanText normalizes free text to a single NFC line with no table delimiters.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "|", "/")
	return strings.Join(strings.Fields(s), " ")
}
