package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage and partitions
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./modlog.db" description:"Path to the SQLite database file"`
	ConfigsDir string `long:"configs-dir" env:"CONFIGS_DIR" default:"./configs" description:"Directory containing partition configuration files"`
	Subreddit  string `long:"subreddit" env:"SUBREDDIT" description:"Only process this subreddit's partition"`

	// Pipeline overrides
	BatchSize     int `long:"batch-size" env:"BATCH_SIZE" description:"Records per fetch page (overrides partition config)"`
	RetentionDays int `long:"retention-days" env:"RETENTION_DAYS" description:"Days of actions to keep (overrides partition config)"`

	// Run mode
	Interval     int    `long:"interval" env:"INTERVAL" default:"300" description:"Seconds between passes in continuous mode"`
	Continuous   bool   `long:"continuous" env:"CONTINUOUS" description:"Keep running and process partitions every interval"`
	ForceResync  bool   `long:"force-resync" description:"Ignore the stored cursor and re-fetch the retention window"`
	ForcePublish bool   `long:"force-publish" description:"Write the wiki page even when it is unchanged"`
	ForceAll     bool   `long:"force-all" description:"Shorthand for --force-resync --force-publish"`
	RecoverFile  string `long:"recover-file" description:"Rebuild the store from a saved wiki markdown file"`
	RecoverWiki  bool   `long:"recover-wiki" description:"Rebuild the store from the currently published wiki page"`

	// HTTP API
	Port         int    `long:"port" env:"PORT" default:"0" description:"HTTP server port in continuous mode (0 disables the server)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://modlog.example.com)"`

	// Reddit script app
	ClientID     string `long:"client-id" env:"REDDIT_CLIENT_ID" description:"Reddit app client id"`
	ClientSecret string `long:"client-secret" env:"REDDIT_CLIENT_SECRET" description:"Reddit app client secret"`
	Username     string `long:"username" env:"REDDIT_USERNAME" description:"Reddit account username"`
	Password     string `long:"password" env:"REDDIT_PASSWORD" description:"Reddit account password"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"RedditModLog/1.0" description:"User agent string for Reddit API requests"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for log timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns nil, nil when
// help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:        raw.DBPath,
		ConfigsDir:    raw.ConfigsDir,
		Subreddit:     raw.Subreddit,
		BatchSize:     raw.BatchSize,
		RetentionDays: raw.RetentionDays,
		Interval:      time.Duration(raw.Interval) * time.Second,
		Continuous:    raw.Continuous,
		ForceResync:   raw.ForceResync || raw.ForceAll,
		ForcePublish:  raw.ForcePublish || raw.ForceAll,
		RecoverFile:   raw.RecoverFile,
		RecoverWiki:   raw.RecoverWiki,
		Port:          raw.Port,
		APIAccessKey:  raw.APIAccessKey,
		BaseUrl:       raw.BaseUrl,
		ClientID:      raw.ClientID,
		ClientSecret:  raw.ClientSecret,
		Username:      raw.Username,
		Password:      raw.Password,
		UserAgent:     raw.UserAgent,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.BatchSize < 0 {
		return errors.New("batch size must not be negative")
	}
	if cfg.RetentionDays < 0 {
		return errors.New("retention days must not be negative")
	}
	if cfg.Continuous && cfg.Interval <= 0 {
		return errors.New("interval must be positive in continuous mode")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.RecoverFile != "" && cfg.RecoverWiki {
		return errors.New("--recover-file and --recover-wiki are mutually exclusive")
	}
	if cfg.Recovering() && cfg.Subreddit == "" {
		return errors.New("recovery requires --subreddit")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
