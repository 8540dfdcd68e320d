package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bakerboy448/RedditModLog/app/modlog"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskQueueSize = 100

// Scheduler runs pipeline passes on a single worker so runs never overlap. A
// pass already in progress is never interrupted: Stop waits for it to finish.
type Scheduler struct {
	configCache *modlog.ConfigCache
	pipeline    *Pipeline
	interval    time.Duration
	startup     PipelineOptions
	partition   string
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler returns a scheduler that enqueues a pass per enabled partition
// every interval. startup applies to the first pass only.
func NewScheduler(configCache *modlog.ConfigCache, pipeline *Pipeline, interval time.Duration, startup PipelineOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		configCache: configCache,
		pipeline:    pipeline,
		interval:    interval,
		startup:     startup,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
	}
}

// WithPartition limits passes to a single subreddit's partition.
func (s *Scheduler) WithPartition(name string) *Scheduler {
	s.partition = name
	return s
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks(s.startup)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks(PipelineOptions{})
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks(opts PipelineOptions) {
	configs := s.configCache.GetEnabledConfigs()
	if s.partition != "" {
		configs = slices.DeleteFunc(configs, func(c *modlog.Config) bool { return !strings.EqualFold(c.Name, s.partition) })
	}
	if len(configs) == 0 {
		slog.Debug("No enabled partitions found")
		return
	}

	slog.Debug("Scheduling pipeline passes", "count", len(configs))

	for _, config := range configs {
		task := NewPipelineTask(config, s.pipeline, opts)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue PipelineTask", "subreddit", config.Name, "error", err)
		}
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		// stop takes priority over queued work
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		select {
		case task := <-s.taskQueue:
			s.executeTask(task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	// a started pass runs to completion even if the scheduler is stopping
	err := task.Execute(context.WithoutCancel(s.ctx))
	if err != nil {
		slog.Error("Task failed", "type", string(task.GetType()), "id", task.GetID(), "subreddit", task.GetSubreddit(), "duration", task.GetDuration(), "fatal", modlog.IsFatal(err), "error", err)
	}
}
