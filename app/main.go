package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bakerboy448/RedditModLog/app/api"
	"github.com/bakerboy448/RedditModLog/app/cfg"
	"github.com/bakerboy448/RedditModLog/app/database"
	"github.com/bakerboy448/RedditModLog/app/modlog"
	"github.com/bakerboy448/RedditModLog/app/reddit"
	"github.com/bakerboy448/RedditModLog/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if appCfg == nil {
		// help was shown
		return 0
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting RedditModLog", "version", appCfg.Version)

	store, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		return 1
	}
	defer store.Close()

	slog.Info("Database ready", "path", store.Path(), "schema_version", store.Version())

	configCache := modlog.NewConfigCache(appCfg.ConfigsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load partition configurations", "dir", appCfg.ConfigsDir, "error", err)
		return 1
	}
	applyOverrides(configCache, appCfg)

	slog.Info("Partition configurations loaded", "count", configCache.GetConfigCount(), "dir", appCfg.ConfigsDir)

	if appCfg.RecoverFile == "" {
		if err := checkCredentials(appCfg); err != nil {
			slog.Error("Missing reddit credentials", "error", err)
			return 1
		}
	}

	client := reddit.NewClient(&http.Client{Timeout: 2 * time.Minute}, reddit.Config{
		Credentials: reddit.Credentials{
			ClientID:     appCfg.ClientID,
			ClientSecret: appCfg.ClientSecret,
			Username:     appCfg.Username,
			Password:     appCfg.Password,
		},
		UserAgent: appCfg.UserAgent,
	})

	retry := tasks.DefaultRetryPolicy()
	actions := database.NewActionRepository(store)
	states := database.NewPublishStateRepository(store)
	pipeline := tasks.NewPipeline(
		tasks.NewSyncer(client, actions, retry),
		actions,
		tasks.NewPublisher(actions, states, client, retry),
	)

	opts := tasks.PipelineOptions{
		ForceResync:  appCfg.ForceResync,
		ForcePublish: appCfg.ForcePublish,
	}

	switch {
	case appCfg.Recovering():
		return runRecovery(appCfg, configCache, tasks.NewRecovery(actions, client, retry))
	case appCfg.Continuous:
		return runContinuous(appCfg, store, configCache, actions, states, pipeline, opts)
	default:
		return runOnce(appCfg, store, configCache, pipeline, opts)
	}
}

// applyOverrides lets non-zero command line values win over partition files.
func applyOverrides(configCache *modlog.ConfigCache, appCfg *cfg.Cfg) {
	for _, config := range configCache.GetConfigs() {
		if appCfg.BatchSize > 0 {
			config.Settings.BatchSize = appCfg.BatchSize
		}
		if appCfg.RetentionDays > 0 {
			config.Settings.RetentionDays = appCfg.RetentionDays
		}
	}
}

func checkCredentials(appCfg *cfg.Cfg) error {
	required := map[string]string{
		"client id":     appCfg.ClientID,
		"client secret": appCfg.ClientSecret,
		"username":      appCfg.Username,
		"password":      appCfg.Password,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is not set", name)
		}
	}
	return nil
}

// selectConfigs returns the named partition, even if disabled, or every
// enabled partition when no name is given.
func selectConfigs(configCache *modlog.ConfigCache, name string) ([]*modlog.Config, error) {
	if name == "" {
		return configCache.GetEnabledConfigs(), nil
	}

	config, err := configCache.GetConfig(name)
	if err != nil {
		return nil, err
	}
	return []*modlog.Config{config}, nil
}

func runOnce(appCfg *cfg.Cfg, store *database.Store, configCache *modlog.ConfigCache, pipeline *tasks.Pipeline, opts tasks.PipelineOptions) int {
	configs, err := selectConfigs(configCache, appCfg.Subreddit)
	if err != nil {
		slog.Error("Partition not found", "subreddit", appCfg.Subreddit, "error", err)
		return 1
	}
	if len(configs) == 0 {
		slog.Warn("No enabled partitions to process")
		return 0
	}

	var (
		failed int
		pruned int64
	)
	for _, config := range configs {
		start := time.Now()

		result, err := pipeline.Run(context.Background(), config, opts)
		if err != nil {
			failed++
			slog.Error("Pipeline failed",
				"subreddit", config.Name,
				"stage", string(result.Stage),
				"fatal", modlog.IsFatal(err),
				"error", err)
			continue
		}

		slog.Info("Pipeline completed",
			"subreddit", config.Name,
			"duration", time.Since(start),
			"mode", result.Sync.Mode.String(),
			"fetched", result.Sync.Fetched,
			"inserted", result.Sync.Inserted,
			"updated", result.Sync.Updated,
			"pruned", result.Pruned,
			"published", result.Publish.Written)
		pruned += result.Pruned
	}

	if pruned > 0 {
		if err := store.Vacuum(context.Background()); err != nil {
			slog.Warn("Vacuum failed", "error", err)
		}
	}

	if failed > 0 {
		slog.Error("Run finished with failures", "failed", failed, "total", len(configs))
		return 1
	}
	return 0
}

func runRecovery(appCfg *cfg.Cfg, configCache *modlog.ConfigCache, recovery *tasks.Recovery) int {
	config, err := configCache.GetConfig(appCfg.Subreddit)
	if err != nil {
		slog.Error("Partition not found", "subreddit", appCfg.Subreddit, "error", err)
		return 1
	}

	ctx := context.Background()

	var result database.BatchResult
	if appCfg.RecoverFile != "" {
		content, readErr := os.ReadFile(appCfg.RecoverFile)
		if readErr != nil {
			slog.Error("Failed to read recovery file", "path", appCfg.RecoverFile, "error", readErr)
			return 1
		}
		result, err = recovery.FromContent(ctx, config, string(content))
	} else {
		result, err = recovery.FromWiki(ctx, config)
	}
	if err != nil {
		slog.Error("Recovery failed", "subreddit", config.Name, "error", err)
		return 1
	}

	slog.Info("Store rebuilt from wiki document",
		"subreddit", config.Name,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"unchanged", result.Unchanged)
	return 0
}

func runContinuous(appCfg *cfg.Cfg, store *database.Store, configCache *modlog.ConfigCache,
	actions database.ActionStore, states database.PublishStateStore,
	pipeline *tasks.Pipeline, opts tasks.PipelineOptions) int {
	if appCfg.Subreddit != "" {
		if _, err := configCache.GetConfig(appCfg.Subreddit); err != nil {
			slog.Error("Partition not found", "subreddit", appCfg.Subreddit, "error", err)
			return 1
		}
	}

	scheduler := tasks.NewScheduler(configCache, pipeline, appCfg.Interval, opts).WithPartition(appCfg.Subreddit)
	scheduler.Start()

	slog.Info("Scheduler started", "interval", appCfg.Interval.String())

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)

	if appCfg.Port > 0 {
		handler := api.NewHandler(store, configCache, actions, states, pipeline,
			modlog.NewGenerator(appCfg.BaseUrl, appCfg.Version), scheduler)

		httpServer = &http.Server{
			Addr:         ":" + strconv.Itoa(appCfg.Port),
			Handler:      api.NewServer(handler, appCfg.APIAccessKey),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting HTTP server", "port", appCfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		exitCode = 1
	}

	slog.Info("Shutting down gracefully")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}

	// waits for a running pass to finish
	scheduler.Stop()
	slog.Info("Scheduler stopped")

	return exitCode
}
