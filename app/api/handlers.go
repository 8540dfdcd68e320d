package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bakerboy448/RedditModLog/app/database"
	"github.com/bakerboy448/RedditModLog/app/modlog"
	"github.com/bakerboy448/RedditModLog/app/tasks"
	"github.com/gin-gonic/gin"
)

func NewHandler(db Pinger, configCache *modlog.ConfigCache, actions database.ActionStore,
	states database.PublishStateStore, pipeline *tasks.Pipeline,
	generator GeneratorInterface, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		db:          db,
		configCache: configCache,
		actions:     actions,
		states:      states,
		pipeline:    pipeline,
		generator:   generator,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
		"database":              "ok",
	}

	status := http.StatusOK
	if err := h.db.Ping(c.Request.Context()); err != nil {
		slog.Error("Database ping failed", "error", err)
		health["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

// GetPreview renders the document the next publish would write, without
// writing it.
func (h *Handler) GetPreview(c *gin.Context) {
	config, ok := h.lookupConfig(c)
	if !ok {
		return
	}

	doc, err := h.pipeline.Publisher().Render(c.Request.Context(), config)
	if err != nil {
		slog.Error("Render error", "subreddit", config.Name, "error", err)
		c.String(http.StatusUnprocessableEntity, err.Error())
		return
	}

	c.Header("X-Fingerprint", doc.Fingerprint)
	c.Header("X-Rows", strconv.Itoa(doc.Rows))
	c.Header("X-Dropped-Groups", strconv.Itoa(doc.DroppedGroups))

	state, err := h.states.GetPublishState(c.Request.Context(), config.Target(), config.WikiPage)
	if err != nil {
		slog.Error("Database error", "operation", "get_publish_state", "subreddit", config.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if state != nil {
		c.Header("X-Published-Fingerprint", state.Fingerprint)
		c.Header("X-Published-At", state.PublishedAt.Format(time.RFC3339))
	}

	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(doc.Body))
}

func (h *Handler) GetFeed(c *gin.Context) {
	config, ok := h.lookupConfig(c)
	if !ok {
		return
	}

	actions, err := h.pipeline.Publisher().Window(c.Request.Context(), config)
	if err != nil {
		slog.Error("Database error", "operation", "query_window", "subreddit", config.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(config, actions)
	if err != nil {
		slog.Error("RSS generation error", "subreddit", config.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(actions)))
	c.Header("X-Feed-Name", config.Name)

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListPartitions(c *gin.Context) {
	ctx := c.Request.Context()
	configs := h.configCache.GetConfigs()

	partitions := make([]map[string]interface{}, 0, len(configs))

	for _, config := range configs {
		info := map[string]interface{}{
			"name":           config.Name,
			"enabled":        config.Enabled,
			"target":         config.Target(),
			"wiki_page":      config.WikiPage,
			"retention_days": config.Settings.RetentionDays,
			"max_entries":    config.Settings.MaxEntries,
			"wiki_actions":   config.Settings.WikiActions,
		}

		if count, err := h.actions.Count(ctx, config.Name); err == nil {
			info["action_count"] = count
		}

		if latest, err := h.actions.LatestCreatedAt(ctx, config.Name); err == nil && latest > 0 {
			info["latest_action_at"] = time.Unix(latest, 0).UTC()
		}

		if state, err := h.states.GetPublishState(ctx, config.Target(), config.WikiPage); err == nil && state != nil {
			info["fingerprint"] = state.Fingerprint
			info["published_at"] = state.PublishedAt
		}

		partitions = append(partitions, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"partitions": partitions,
		"total":      len(partitions),
	})
}

// APIPublish queues a forced publish on the scheduler's worker so it never
// overlaps a running pass.
func (h *Handler) APIPublish(c *gin.Context) {
	name := c.Param("name")

	config, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Partition configuration not found", "subreddit", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Partition configuration not found"})
		return
	}

	task := tasks.NewPipelineTask(config, h.pipeline, tasks.PipelineOptions{ForcePublish: true})
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing publish task", "subreddit", config.Name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue publish task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Publish task enqueued",
		"task": gin.H{
			"id":        task.ID,
			"type":      task.Type,
			"subreddit": task.Subreddit,
		},
	})
}

func (h *Handler) lookupConfig(c *gin.Context) (*modlog.Config, bool) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return nil, false
	}

	config, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Partition configuration not found", "subreddit", name, "error", err)
		c.Status(http.StatusNotFound)
		return nil, false
	}

	return config, true
}
