package tasks

import (
	"context"

	"github.com/bakerboy448/RedditModLog/app/modlog"
)

// ActionSource yields pages of a subreddit's moderation log, newest first.
type ActionSource interface {
	FetchPage(ctx context.Context, req modlog.PageRequest) (*modlog.Page, error)
}

// PageWriter replaces the content of a remote wiki page.
type PageWriter interface {
	WritePage(ctx context.Context, subreddit, page, content, reason string) error
}

type PageReader interface {
	ReadPage(ctx context.Context, subreddit, page string) (string, error)
}

// TaskSchedulerInterface runs queued tasks one at a time in the background.
//
//	scheduler := NewScheduler(configCache, pipeline, interval, PipelineOptions{})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewPipelineTask(config, pipeline, PipelineOptions{ForcePublish: true}))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
