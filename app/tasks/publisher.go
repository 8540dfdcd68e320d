package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bakerboy448/RedditModLog/app/database"
	"github.com/bakerboy448/RedditModLog/app/modlog"
)

const editReason = "Automated modlog update"

type PublishResult struct {
	Written       bool
	Forced        bool
	Fingerprint   string
	Rows          int
	DroppedGroups int
}

// Publisher renders a partition's retained window and writes it to the wiki
// only when its fingerprint differs from the last published one.
type Publisher struct {
	actions  database.ActionStore
	states   database.PublishStateStore
	writer   PageWriter
	renderer *modlog.Renderer
	retry    RetryPolicy
	now      func() time.Time
}

func NewPublisher(actions database.ActionStore, states database.PublishStateStore, writer PageWriter, retry RetryPolicy) *Publisher {
	return &Publisher{
		actions:  actions,
		states:   states,
		writer:   writer,
		renderer: modlog.NewRenderer(),
		retry:    retry,
		now:      time.Now,
	}
}

// Window returns the retained actions that make up the published document.
func (p *Publisher) Window(ctx context.Context, config *modlog.Config) ([]modlog.Action, error) {
	since := config.RetentionWindow(p.now())
	actions, err := p.actions.QueryWindow(ctx, config.Name, since, config.Settings.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to load publish window: %w", err)
	}
	return actions, nil
}

func (p *Publisher) Render(ctx context.Context, config *modlog.Config) (*modlog.Document, error) {
	actions, err := p.Window(ctx, config)
	if err != nil {
		return nil, err
	}

	doc, err := p.renderer.Run(config, actions)
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	if doc.DroppedGroups > 0 {
		slog.Warn("Document over size limit, oldest days dropped", "subreddit", config.Name, "dropped_groups", doc.DroppedGroups, "size_limit", config.Settings.SizeLimit)
	}

	return doc, nil
}

// Publish writes the rendered document when it changed, when forced, or when
// the page was never published. A render overflow writes nothing.
func (p *Publisher) Publish(ctx context.Context, config *modlog.Config, force bool) (*PublishResult, error) {
	doc, err := p.Render(ctx, config)
	if err != nil {
		return nil, err
	}

	result := &PublishResult{
		Forced:        force,
		Fingerprint:   doc.Fingerprint,
		Rows:          doc.Rows,
		DroppedGroups: doc.DroppedGroups,
	}

	target := config.Target()

	state, err := p.states.GetPublishState(ctx, target, config.WikiPage)
	if err != nil {
		return nil, err
	}

	if !force && state != nil && state.Fingerprint == doc.Fingerprint {
		slog.Debug("Document unchanged, skipping write", "subreddit", config.Name, "target", target, "wiki_page", config.WikiPage)
		return result, nil
	}

	err = p.retry.Do(ctx, "publish", func(ctx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Settings.Timeout)*time.Second)
		defer cancel()
		return p.writer.WritePage(timeoutCtx, target, config.WikiPage, doc.Body, editReason)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write wiki page: %w", err)
	}
	result.Written = true

	err = p.states.SavePublishState(ctx, database.PublishState{
		Subreddit:   target,
		WikiPage:    config.WikiPage,
		Fingerprint: doc.Fingerprint,
		PublishedAt: p.now(),
	})
	if err != nil {
		return result, err
	}

	slog.Info("Wiki page published", "subreddit", config.Name, "target", target, "wiki_page", config.WikiPage, "rows", doc.Rows, "forced", force)

	return result, nil
}
