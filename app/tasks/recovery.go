package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bakerboy448/RedditModLog/app/database"
	"github.com/bakerboy448/RedditModLog/app/modlog"
)

// Recovery rebuilds a partition's store from a previously published document.
type Recovery struct {
	actions database.ActionStore
	reader  PageReader
	retry   RetryPolicy
}

func NewRecovery(actions database.ActionStore, reader PageReader, retry RetryPolicy) *Recovery {
	return &Recovery{
		actions: actions,
		reader:  reader,
		retry:   retry,
	}
}

// FromContent parses a markdown document and stores its rows through the same
// idempotent upsert as regular ingestion.
func (r *Recovery) FromContent(ctx context.Context, config *modlog.Config, content string) (database.BatchResult, error) {
	actions, anomalies := modlog.ParseWikiDocument(content, config.Name)
	for _, a := range anomalies {
		slog.Warn("Unrecoverable row skipped", "subreddit", config.Name, "field", a.Field, "reason", a.Reason)
	}

	result, err := r.actions.UpsertBatch(ctx, actions)
	if err != nil {
		return result, fmt.Errorf("failed to store recovered actions: %w", err)
	}

	slog.Info("Recovery completed", "subreddit", config.Name, "parsed", len(actions), "inserted", result.Inserted, "skipped_rows", len(anomalies))

	return result, nil
}

// FromWiki reads the partition's current wiki page and recovers from it.
func (r *Recovery) FromWiki(ctx context.Context, config *modlog.Config) (database.BatchResult, error) {
	var content string

	err := r.retry.Do(ctx, "read wiki", func(ctx context.Context) error {
		c, err := r.reader.ReadPage(ctx, config.Target(), config.WikiPage)
		content = c
		return err
	})
	if err != nil {
		return database.BatchResult{}, fmt.Errorf("failed to read wiki page: %w", err)
	}

	return r.FromContent(ctx, config, content)
}
