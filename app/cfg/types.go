package cfg

import "time"

type Cfg struct {
	// Storage and partitions
	DBPath     string
	ConfigsDir string
	Subreddit  string

	// Pipeline overrides, zero keeps the partition's own value
	BatchSize     int
	RetentionDays int

	// Run mode
	Interval     time.Duration
	Continuous   bool
	ForceResync  bool
	ForcePublish bool
	RecoverFile  string
	RecoverWiki  bool

	// HTTP API
	Port         int
	APIAccessKey string
	BaseUrl      string

	// Reddit script app
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// Recovering reports whether the process should rebuild the store instead of
// running the pipeline.
func (c *Cfg) Recovering() bool {
	return c.RecoverFile != "" || c.RecoverWiki
}
