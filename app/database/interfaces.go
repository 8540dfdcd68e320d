package database

import (
	"context"

	"github.com/bakerboy448/RedditModLog/app/modlog"
)

type ActionStore interface {
	Upsert(ctx context.Context, action modlog.Action) (UpsertResult, error)
	UpsertBatch(ctx context.Context, actions []modlog.Action) (BatchResult, error)

	GetAction(ctx context.Context, subreddit, actionID string) (*modlog.Action, error)
	QueryWindow(ctx context.Context, subreddit string, since int64, limit int) ([]modlog.Action, error)
	LatestCreatedAt(ctx context.Context, subreddit string) (int64, error)
	Count(ctx context.Context, subreddit string) (int, error)

	Prune(ctx context.Context, subreddit string, retentionDays int) (int64, error)
}

type PublishStateStore interface {
	GetPublishState(ctx context.Context, subreddit, wikiPage string) (*PublishState, error)
	SavePublishState(ctx context.Context, state PublishState) error
}
