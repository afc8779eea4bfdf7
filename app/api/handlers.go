package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/tasks"
	"github.com/grammirror/gram-mirror/app/watch"
)

func NewHandler(configCache *watch.ConfigCache, settingsRepo history.SettingsRepository,
	checker tasks.Checker, profiler ProfilerInterface,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		configCache:  configCache,
		settingsRepo: settingsRepo,
		checker:      checker,
		profiler:     profiler,
		scheduler:    scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	if channelID, err := h.settingsRepo.GetAutoNotifyChannel(); err == nil {
		health["notify_channel_configured"] = channelID != ""
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	creators := make([]map[string]interface{}, 0, len(configs))
	enabledCount := 0

	for _, config := range configs {
		if config.Settings.Enabled {
			enabledCount++
		}
		creators = append(creators, map[string]interface{}{
			"creator":          config.Creator,
			"enabled":          config.Settings.Enabled,
			"posts":            config.Settings.Posts,
			"stories":          config.Settings.Stories,
			"post_fetch_count": config.Settings.PostFetchCount,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"creators": creators,
		"total":    len(creators),
		"enabled":  enabledCount,
	})
}

type checkRequest struct {
	ChannelID string `json:"channel_id"`
}

func (h *Handler) APICheck(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	channelID := req.ChannelID
	if channelID == "" {
		persisted, err := h.settingsRepo.GetAutoNotifyChannel()
		if err != nil {
			slog.Error("Database error", "operation", "get_notify_channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if persisted == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No channel_id given and no notify channel configured"})
			return
		}
		channelID = persisted
	}

	configs := h.configCache.GetEnabledConfigs()

	enqueued := make([]gin.H, 0, len(configs)*2)
	for _, config := range configs {
		if config.Settings.Posts {
			task := tasks.NewCheckPostsTask(config.Creator, config, h.checker, channelID)
			if err := h.scheduler.EnqueueTask(task); err != nil {
				slog.Error("Error enqueueing check task", "creator", config.Creator, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue check task", "details": err.Error()})
				return
			}
			enqueued = append(enqueued, gin.H{"id": task.ID, "type": task.Type, "creator": config.Creator})
		}
		if config.Settings.Stories {
			task := tasks.NewCheckStoriesTask(config.Creator, config, h.checker, channelID)
			if err := h.scheduler.EnqueueTask(task); err != nil {
				slog.Error("Error enqueueing check task", "creator", config.Creator, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue check task", "details": err.Error()})
				return
			}
			enqueued = append(enqueued, gin.H{"id": task.ID, "type": task.Type, "creator": config.Creator})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"channel_id": channelID,
		"tasks":      enqueued,
	})
}

type notifyChannelRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
}

func (h *Handler) APISetNotifyChannel(c *gin.Context) {
	var req notifyChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing channel_id", "details": err.Error()})
		return
	}

	if err := h.settingsRepo.SetAutoNotifyChannel(req.ChannelID); err != nil {
		slog.Error("Database error", "operation", "set_notify_channel", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "channel_id": req.ChannelID})
}

func (h *Handler) APIClearNotifyChannel(c *gin.Context) {
	if err := h.settingsRepo.SetAutoNotifyChannel(""); err != nil {
		slog.Error("Database error", "operation", "clear_notify_channel", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIGetProfile(c *gin.Context) {
	creator := c.Param("creator")
	if creator == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing creator parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(creator); err != nil {
		slog.Error("Creator configuration not found", "creator", creator, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Creator configuration not found"})
		return
	}

	summary, err := h.profiler.Summary(c.Request.Context(), creator)
	if err != nil {
		slog.Error("Profile lookup failed", "creator", creator, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Profile lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"creator":         summary.Profile.Creator,
		"full_name":       summary.Profile.FullName,
		"biography":       summary.Profile.Biography,
		"followers":       summary.Profile.FollowerCount,
		"following":       summary.Profile.FollowingCount,
		"follower_change": summary.FollowerChange,
		"last_post_at":    summary.LastPostAt,
		"last_story_at":   summary.LastStoryAt,
	})
}
