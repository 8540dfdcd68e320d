package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bakerboy448/RedditModLog/app/modlog"
)

const actionColumns = `subreddit, action_id, action_type, action_kind, moderator,
	target_id, target_kind, target_author, target_title, target_permalink,
	removal_reason, created_at, schema_version`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ActionRepository persists canonical actions. Writes never overwrite a
// non-empty enrichable field, so re-ingesting a record can only add detail.
type ActionRepository struct {
	store *Store
	now   func() time.Time
}

func NewActionRepository(store *Store) *ActionRepository {
	return &ActionRepository{store: store, now: time.Now}
}

func (r *ActionRepository) Upsert(ctx context.Context, action modlog.Action) (UpsertResult, error) {
	return r.upsert(ctx, r.store.db, action)
}

// UpsertBatch writes all actions in one transaction. On error nothing from the
// batch is kept.
func (r *ActionRepository) UpsertBatch(ctx context.Context, actions []modlog.Action) (BatchResult, error) {
	var result BatchResult
	if len(actions) == 0 {
		return result, nil
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, action := range actions {
		res, err := r.upsert(ctx, tx, action)
		if err != nil {
			return BatchResult{}, err
		}
		result.add(res)
	}

	if err := tx.Commit(); err != nil {
		return BatchResult{}, fmt.Errorf("failed to commit actions: %w", err)
	}

	return result, nil
}

func (r *ActionRepository) upsert(ctx context.Context, db execer, action modlog.Action) (UpsertResult, error) {
	action = sanitize(action)
	if action.Subreddit == "" || action.ActionID == "" {
		return UpsertUnchanged, fmt.Errorf("failed to store action: subreddit and action_id are required")
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO actions (`+actionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subreddit, action_id) DO NOTHING
	`, action.Subreddit, action.ActionID, action.ActionType, string(action.Kind), action.Moderator,
		action.TargetID, string(action.TargetKind), action.TargetAuthor, action.TargetTitle, action.TargetPermalink,
		action.RemovalReason, action.CreatedAt, r.store.version)
	if err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to insert action %s: %w", action.ActionID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return UpsertInserted, nil
	}

	// Existing row: fill enrichable fields that are still empty.
	res, err = db.ExecContext(ctx, `
		UPDATE actions SET
			removal_reason   = CASE WHEN removal_reason = '' THEN ? ELSE removal_reason END,
			target_author    = CASE WHEN target_author = '' THEN ? ELSE target_author END,
			target_title     = CASE WHEN target_title = '' THEN ? ELSE target_title END,
			target_permalink = CASE WHEN target_permalink = '' THEN ? ELSE target_permalink END
		WHERE subreddit = ? AND action_id = ?
		  AND ((removal_reason = '' AND ? <> '')
		    OR (target_author = '' AND ? <> '')
		    OR (target_title = '' AND ? <> '')
		    OR (target_permalink = '' AND ? <> ''))
	`, action.RemovalReason, action.TargetAuthor, action.TargetTitle, action.TargetPermalink,
		action.Subreddit, action.ActionID,
		action.RemovalReason, action.TargetAuthor, action.TargetTitle, action.TargetPermalink)
	if err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to enrich action %s: %w", action.ActionID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return UpsertUpdated, nil
	}

	return UpsertUnchanged, nil
}

// sanitize enforces the stored form regardless of the caller: single-line text
// without table delimiters and no redacted placeholder authors.
func sanitize(action modlog.Action) modlog.Action {
	action.Subreddit = strings.TrimSpace(action.Subreddit)
	action.ActionID = strings.TrimSpace(action.ActionID)
	action.RemovalReason = modlog.CleanText(action.RemovalReason)
	action.TargetTitle = modlog.CleanText(action.TargetTitle)
	action.TargetAuthor = modlog.CleanText(action.TargetAuthor)
	if action.TargetAuthor == "[deleted]" || action.TargetAuthor == "[removed]" {
		action.TargetAuthor = ""
	}
	if action.Kind == "" {
		action.Kind = modlog.KindOther
	}
	return action
}

func (r *ActionRepository) GetAction(ctx context.Context, subreddit, actionID string) (*modlog.Action, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT `+actionColumns+`
		FROM actions
		WHERE subreddit = ? AND action_id = ?
	`, subreddit, actionID)

	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}

	return &action, nil
}

// QueryWindow returns the newest limit actions of a partition created at or
// after since, ordered oldest first. A non-positive limit means no bound.
func (r *ActionRepository) QueryWindow(ctx context.Context, subreddit string, since int64, limit int) ([]modlog.Action, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+actionColumns+` FROM (
			SELECT `+actionColumns+`
			FROM actions
			WHERE subreddit = ? AND created_at >= ?
			ORDER BY created_at DESC, action_id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, action_id ASC
	`, subreddit, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []modlog.Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action row: %w", err)
		}
		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action rows: %w", err)
	}

	return actions, nil
}

// LatestCreatedAt returns the newest stored timestamp of a partition, or 0 when
// the partition is empty.
func (r *ActionRepository) LatestCreatedAt(ctx context.Context, subreddit string) (int64, error) {
	var latest sql.NullInt64
	err := r.store.db.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM actions WHERE subreddit = ?`, subreddit).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest action time: %w", err)
	}
	return latest.Int64, nil
}

func (r *ActionRepository) Count(ctx context.Context, subreddit string) (int, error) {
	var count int
	err := r.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actions WHERE subreddit = ?`, subreddit).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}
	return count, nil
}

// Prune deletes a partition's actions older than the retention window and
// returns how many were removed. Other partitions are untouched.
func (r *ActionRepository) Prune(ctx context.Context, subreddit string, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("failed to prune actions: retention must be positive, got %d", retentionDays)
	}

	cutoff := r.now().Add(-time.Duration(retentionDays) * 24 * time.Hour).Unix()

	res, err := r.store.db.ExecContext(ctx,
		`DELETE FROM actions WHERE subreddit = ? AND created_at < ?`, subreddit, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune actions: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned actions: %w", err)
	}

	return deleted, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAction(row scanner) (modlog.Action, error) {
	var (
		action     modlog.Action
		kind       string
		targetKind string
	)

	err := row.Scan(
		&action.Subreddit, &action.ActionID, &action.ActionType, &kind, &action.Moderator,
		&action.TargetID, &targetKind, &action.TargetAuthor, &action.TargetTitle, &action.TargetPermalink,
		&action.RemovalReason, &action.CreatedAt, &action.SchemaVersion,
	)
	if err != nil {
		return modlog.Action{}, err
	}

	action.Kind = modlog.ActionKind(kind)
	action.TargetKind = modlog.TargetKind(targetKind)
	return action, nil
}
