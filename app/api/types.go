package api

import (
	"context"

	"github.com/bakerboy448/RedditModLog/app/database"
	"github.com/bakerboy448/RedditModLog/app/modlog"
	"github.com/bakerboy448/RedditModLog/app/tasks"
)

type GeneratorInterface interface {
	Run(config *modlog.Config, actions []modlog.Action) (string, error)
}

var _ GeneratorInterface = (*modlog.Generator)(nil)

type Pinger interface {
	Ping(ctx context.Context) error
}

var _ Pinger = (*database.Store)(nil)

type Handler struct {
	db          Pinger
	configCache *modlog.ConfigCache
	actions     database.ActionStore
	states      database.PublishStateStore
	pipeline    *tasks.Pipeline
	generator   GeneratorInterface
	scheduler   tasks.TaskSchedulerInterface
}
