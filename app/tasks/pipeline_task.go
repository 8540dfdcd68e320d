package tasks

import (
	"context"
	"log/slog"

	"github.com/bakerboy448/RedditModLog/app/modlog"
)

type PipelineTask struct {
	Task
	Config   *modlog.Config
	Options  PipelineOptions
	pipeline *Pipeline
}

func NewPipelineTask(config *modlog.Config, pipeline *Pipeline, opts PipelineOptions) *PipelineTask {
	return &PipelineTask{
		Task:     NewTask(TaskTypePipeline, config.Name),
		Config:   config,
		Options:  opts,
		pipeline: pipeline,
	}
}

func (t *PipelineTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Config.Enabled {
		slog.Debug("Partition disabled, skipping", "subreddit", t.Subreddit)
		return nil
	}

	result, err := t.pipeline.Run(ctx, t.Config, t.Options)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"subreddit", t.Subreddit,
		"duration", t.GetDuration(),
		"mode", result.Sync.Mode.String(),
		"fetched", result.Sync.Fetched,
		"skipped", result.Sync.Skipped,
		"inserted", result.Sync.Inserted,
		"updated", result.Sync.Updated,
		"anomalies", result.Sync.Anomalies,
		"pruned", result.Pruned,
		"published", result.Publish.Written)

	return nil
}
