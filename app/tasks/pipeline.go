package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bakerboy448/RedditModLog/app/database"
	"github.com/bakerboy448/RedditModLog/app/modlog"
)

type Stage string

const (
	StageFetch     Stage = "FETCH"
	StageNormalize Stage = "NORMALIZE"
	StageCommit    Stage = "COMMIT"
	StagePrune     Stage = "PRUNE"
	StagePublish   Stage = "PUBLISH"
	StageDone      Stage = "DONE"
)

// StageError names the stage a pipeline run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type PipelineOptions struct {
	ForceResync  bool
	ForcePublish bool
}

type PipelineResult struct {
	Subreddit string
	Stage     Stage
	Sync      SyncResult
	Pruned    int64
	Publish   *PublishResult
}

// Dirty reports whether the commit changed stored rows.
func (r *PipelineResult) Dirty() bool {
	return r.Sync.Changed() > 0 || r.Pruned > 0
}

// Pipeline runs one partition through FETCH, NORMALIZE, COMMIT, PRUNE and
// PUBLISH in order. Only transient fetch and write failures are retried; any
// other failure ends the run at its stage.
type Pipeline struct {
	syncer    *Syncer
	actions   database.ActionStore
	publisher *Publisher
}

func NewPipeline(syncer *Syncer, actions database.ActionStore, publisher *Publisher) *Pipeline {
	return &Pipeline{
		syncer:    syncer,
		actions:   actions,
		publisher: publisher,
	}
}

func (p *Pipeline) Publisher() *Publisher {
	return p.publisher
}

func (p *Pipeline) Run(ctx context.Context, config *modlog.Config, opts PipelineOptions) (*PipelineResult, error) {
	result := &PipelineResult{Subreddit: config.Name}

	fail := func(stage Stage, err error) (*PipelineResult, error) {
		result.Stage = stage
		return result, &StageError{Stage: stage, Err: err}
	}

	mode := SyncIncremental
	if opts.ForceResync {
		mode = SyncFull
	}

	result.Stage = StageFetch
	raws, err := p.syncer.Fetch(ctx, config, mode, &result.Sync)
	if err != nil {
		return fail(StageFetch, err)
	}

	result.Stage = StageNormalize
	actions := p.syncer.Normalize(raws, config, &result.Sync)

	result.Stage = StageCommit
	if err := p.syncer.Commit(ctx, actions, &result.Sync); err != nil {
		return fail(StageCommit, err)
	}

	result.Stage = StagePrune
	pruned, err := p.actions.Prune(ctx, config.Name, config.Settings.RetentionDays)
	if err != nil {
		return fail(StagePrune, err)
	}
	result.Pruned = pruned

	// runs even when nothing changed; an unchanged document is not written
	result.Stage = StagePublish
	publish, err := p.publisher.Publish(ctx, config, opts.ForcePublish)
	if err != nil {
		return fail(StagePublish, err)
	}
	result.Publish = publish

	result.Stage = StageDone

	slog.Debug("Pipeline finished", "subreddit", config.Name, "dirty", result.Dirty(), "written", publish.Written)

	return result, nil
}
