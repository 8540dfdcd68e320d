package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PublishStateRepository struct {
	store *Store
}

func NewPublishStateRepository(store *Store) *PublishStateRepository {
	return &PublishStateRepository{store: store}
}

// GetPublishState returns nil when the page was never published.
func (r *PublishStateRepository) GetPublishState(ctx context.Context, subreddit, wikiPage string) (*PublishState, error) {
	var (
		state       PublishState
		publishedAt int64
	)

	err := r.store.db.QueryRowContext(ctx, `
		SELECT subreddit, wiki_page, fingerprint, published_at
		FROM publish_state
		WHERE subreddit = ? AND wiki_page = ?
	`, subreddit, wikiPage).Scan(&state.Subreddit, &state.WikiPage, &state.Fingerprint, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get publish state: %w", err)
	}

	state.PublishedAt = time.Unix(publishedAt, 0).UTC()
	return &state, nil
}

func (r *PublishStateRepository) SavePublishState(ctx context.Context, state PublishState) error {
	if state.PublishedAt.IsZero() {
		state.PublishedAt = time.Now()
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO publish_state (subreddit, wiki_page, fingerprint, published_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (subreddit, wiki_page) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			published_at = excluded.published_at
	`, state.Subreddit, state.WikiPage, state.Fingerprint, state.PublishedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save publish state: %w", err)
	}

	return nil
}
