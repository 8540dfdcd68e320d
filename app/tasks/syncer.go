package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bakerboy448/RedditModLog/app/database"
	"github.com/bakerboy448/RedditModLog/app/modlog"
)

type SyncMode int

const (
	// SyncIncremental fetches only records at or after the newest stored one.
	SyncIncremental SyncMode = iota
	// SyncFull re-fetches everything the feed still offers inside the retention window.
	SyncFull
)

func (m SyncMode) String() string {
	if m == SyncFull {
		return "full"
	}
	return "incremental"
}

type SyncResult struct {
	Mode      SyncMode
	Cursor    int64
	Pages     int
	Fetched   int
	Skipped   int
	Anomalies int
	database.BatchResult
}

// Syncer covers the fetch, normalize and commit stages of a pipeline run.
type Syncer struct {
	source     ActionSource
	actions    database.ActionStore
	filterer   *modlog.Filterer
	normalizer *modlog.Normalizer
	retry      RetryPolicy
	now        func() time.Time
}

func NewSyncer(source ActionSource, actions database.ActionStore, retry RetryPolicy) *Syncer {
	return &Syncer{
		source:     source,
		actions:    actions,
		filterer:   modlog.NewFilterer(),
		normalizer: modlog.NewNormalizer(),
		retry:      retry,
		now:        time.Now,
	}
}

// Fetch pages through the feed newest first, batch_size records per page.
// Incremental mode collects at most batch_size records newer than the stored
// cursor, across as many pages as that takes. Full mode pages until the feed is
// exhausted. Both stop at the retention window.
func (s *Syncer) Fetch(ctx context.Context, config *modlog.Config, mode SyncMode, result *SyncResult) ([]modlog.RawAction, error) {
	result.Mode = mode

	var cursor int64
	if mode == SyncIncremental {
		latest, err := s.actions.LatestCreatedAt(ctx, config.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sync cursor: %w", err)
		}
		cursor = latest
	}
	result.Cursor = cursor

	oldest := config.RetentionWindow(s.now())
	batchSize := config.Settings.BatchSize

	var (
		collected []modlog.RawAction
		after     string
		seen      = make(map[string]bool)
	)

	for {
		req := modlog.PageRequest{
			Subreddit: config.Name,
			Limit:     batchSize,
			After:     after,
			Since:     max(cursor, oldest),
		}

		page, err := s.fetchPage(ctx, config, req)
		if err != nil {
			return nil, err
		}
		result.Pages++

		done := len(page.Actions) == 0
		for _, raw := range page.Actions {
			if raw.CreatedUTC < oldest || (mode == SyncIncremental && raw.CreatedUTC < cursor) {
				done = true
				break
			}
			collected = append(collected, raw)
			if mode == SyncIncremental && len(collected) >= batchSize {
				done = true
				break
			}
		}

		if done || page.After == "" || seen[page.After] {
			break
		}
		seen[page.After] = true
		after = page.After
	}

	result.Fetched = len(collected)

	slog.Debug("Fetch completed", "subreddit", config.Name, "mode", mode.String(), "cursor", cursor, "pages", result.Pages, "fetched", len(collected))

	return collected, nil
}

func (s *Syncer) fetchPage(ctx context.Context, config *modlog.Config, req modlog.PageRequest) (*modlog.Page, error) {
	var page *modlog.Page

	err := s.retry.Do(ctx, "fetch", func(ctx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Settings.Timeout)*time.Second)
		defer cancel()

		p, err := s.source.FetchPage(timeoutCtx, req)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch modlog page: %w", err)
	}

	return page, nil
}

// Normalize drops untracked records and maps the rest to canonical actions.
// Anomalies are logged and counted, never fatal.
func (s *Syncer) Normalize(raws []modlog.RawAction, config *modlog.Config, result *SyncResult) []modlog.Action {
	kept, skipped := s.filterer.Run(raws, config)
	result.Skipped = skipped

	actions := make([]modlog.Action, 0, len(kept))
	for _, raw := range kept {
		action, anomalies := s.normalizer.Run(raw, config)
		for _, a := range anomalies {
			slog.Debug("Data anomaly", "subreddit", config.Name, "action_id", a.ActionID, "field", a.Field, "reason", a.Reason)
		}
		result.Anomalies += len(anomalies)

		if action.ActionID == "" {
			slog.Warn("Record without id skipped", "subreddit", config.Name, "action", raw.Action)
			result.Skipped++
			continue
		}
		actions = append(actions, action)
	}

	return actions
}

// Commit writes all actions of the run in one transaction.
func (s *Syncer) Commit(ctx context.Context, actions []modlog.Action, result *SyncResult) error {
	batch, err := s.actions.UpsertBatch(ctx, actions)
	if err != nil {
		return fmt.Errorf("failed to commit actions: %w", err)
	}
	result.BatchResult = batch
	return nil
}
