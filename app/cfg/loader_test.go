package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// set at build time
		t.Logf("Version: %s", version)
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DBPath != "./modlog.db" {
		t.Errorf("Expected db path './modlog.db', got '%s'", cfg.DBPath)
	}
	if cfg.ConfigsDir != "./configs" {
		t.Errorf("Expected configs dir './configs', got '%s'", cfg.ConfigsDir)
	}
	if cfg.Interval != 300*time.Second {
		t.Errorf("Expected interval 5m0s, got %s", cfg.Interval)
	}
	if cfg.Port != 0 {
		t.Errorf("Expected HTTP server disabled by default, got port %d", cfg.Port)
	}
	if cfg.ForceResync || cfg.ForcePublish {
		t.Error("Expected force flags to be off by default")
	}
	if cfg.Recovering() {
		t.Error("Expected recovery to be off by default")
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestLoadArgsFlags(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--db-path", "/tmp/test.db",
		"--subreddit", "testsub",
		"--batch-size", "50",
		"--retention-days", "7",
		"--continuous",
		"--interval", "60",
		"--force-publish",
		"--port", "8080",
		"--api-key", "test-key",
		"--debug",
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected db path '/tmp/test.db', got '%s'", cfg.DBPath)
	}
	if cfg.Subreddit != "testsub" {
		t.Errorf("Expected subreddit 'testsub', got '%s'", cfg.Subreddit)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("Expected batch size 50, got %d", cfg.BatchSize)
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("Expected retention days 7, got %d", cfg.RetentionDays)
	}
	if !cfg.Continuous || cfg.Interval != time.Minute {
		t.Errorf("Expected continuous mode every 1m0s, got %v every %s", cfg.Continuous, cfg.Interval)
	}
	if !cfg.ForcePublish || cfg.ForceResync {
		t.Error("Expected only force-publish to be set")
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadArgsForceAll(t *testing.T) {
	cfg, err := LoadArgs([]string{"--force-all"})
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.ForceResync || !cfg.ForcePublish {
		t.Error("Expected --force-all to set both force flags")
	}
}

func TestLoadArgsEnvironment(t *testing.T) {
	t.Setenv("SUBREDDIT", "envsub")
	t.Setenv("REDDIT_CLIENT_ID", "client")
	t.Setenv("BATCH_SIZE", "25")

	cfg, err := LoadArgs([]string{"--batch-size", "40"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Subreddit != "envsub" {
		t.Errorf("Expected subreddit 'envsub', got '%s'", cfg.Subreddit)
	}
	if cfg.ClientID != "client" {
		t.Errorf("Expected client id 'client', got '%s'", cfg.ClientID)
	}
	if cfg.BatchSize != 40 {
		t.Errorf("Expected flag to win over environment, got %d", cfg.BatchSize)
	}
}

func TestLoadArgsValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative batch size", []string{"--batch-size=-1"}},
		{"negative retention", []string{"--retention-days=-3"}},
		{"zero interval in continuous mode", []string{"--continuous", "--interval", "0"}},
		{"port out of range", []string{"--port", "70000"}},
		{"recovery without subreddit", []string{"--recover-wiki"}},
		{"both recovery sources", []string{"--subreddit", "testsub", "--recover-wiki", "--recover-file", "modlog.md"}},
		{"unknown flag", []string{"--no-such-flag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadArgs(tt.args); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}
