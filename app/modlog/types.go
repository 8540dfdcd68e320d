package modlog

import (
	"time"
)

// Upstream record types

// RawAction is one moderation log entry as delivered by the upstream feed.
type RawAction struct {
	ID              string
	Action          string
	Moderator       string
	Subreddit       string
	CreatedUTC      int64
	Details         string
	Description     string
	ModNote         string
	TargetAuthor    string
	TargetFullname  string // t1_xxx for comments, t3_xxx for posts
	TargetPermalink string
	TargetTitle     string
}

type PageRequest struct {
	Subreddit string
	Limit     int
	After     string // opaque continuation cursor from the previous page
	Since     int64  // epoch seconds; records older than this may be omitted
}

type Page struct {
	Actions []RawAction
	After   string // empty when the feed is exhausted
}

// Canonical record types

type ActionKind string

const (
	KindRemoval       ActionKind = "removal"
	KindFilterRemoval ActionKind = "filter_removal"
	KindApproval      ActionKind = "approval"
	KindReason        ActionKind = "reason"
	KindOther         ActionKind = "other"
)

func (k ActionKind) IsRemoval() bool {
	return k == KindRemoval || k == KindFilterRemoval
}

type TargetKind string

const (
	TargetNone    TargetKind = ""
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Action is the canonical stored form of a moderation action.
type Action struct {
	ActionID        string
	Subreddit       string
	ActionType      string
	Kind            ActionKind
	Moderator       string // always the real upstream username
	TargetID        string
	TargetKind      TargetKind
	TargetAuthor    string
	TargetTitle     string
	TargetPermalink string // path only, e.g. /r/sub/comments/abc/slug/
	RemovalReason   string
	CreatedAt       int64
	SchemaVersion   uint
}

func (a Action) Time() time.Time {
	return time.Unix(a.CreatedAt, 0).UTC()
}

// ContentURL returns the absolute link to the affected content, or "" when none
// can be resolved. It never returns a user profile link.
func (a Action) ContentURL() string {
	return contentURL(a.TargetPermalink)
}

// Anomaly records a field that could not be resolved for a single record.
// Anomalies degrade the display of that record and never abort a batch.
type Anomaly struct {
	ActionID string
	Field    string
	Reason   string
}

// Configuration types

type Config struct {
	Name            string         // Derived from filename (without .yml extension)
	Enabled         bool           `yaml:"enabled"`
	TargetSubreddit string         `yaml:"target_subreddit"`
	WikiPage        string         `yaml:"wiki_page"`
	Settings        ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	BatchSize           int      `yaml:"batch_size"`
	RetentionDays       int      `yaml:"retention_days"`
	MaxEntries          int      `yaml:"max_entries"`
	SizeLimit           int      `yaml:"size_limit"` // characters
	Timeout             int      `yaml:"timeout"`    // seconds
	AnonymizeModerators bool     `yaml:"anonymize_moderators"`
	WikiActions         []string `yaml:"wiki_actions"`
	IgnoredModerators   []string `yaml:"ignored_moderators"`
	AutomationAccounts  []string `yaml:"automation_accounts"`
}

// Target returns the subreddit whose wiki receives the rendered document.
func (c *Config) Target() string {
	if c.TargetSubreddit != "" {
		return c.TargetSubreddit
	}
	return c.Name
}

func (c *Config) RetentionWindow(now time.Time) int64 {
	return now.Add(-time.Duration(c.Settings.RetentionDays) * 24 * time.Hour).Unix()
}
