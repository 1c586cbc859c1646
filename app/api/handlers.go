package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openpromo/pubflow/app/autocomment"
	"github.com/openpromo/pubflow/app/automation"
	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/dispatch"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/tasks"
)

func NewHandler(dispatcher *dispatch.Dispatcher, status *autocomment.StatusService,
	runner *autocomment.Runner, poller *automation.Poller, catalog *platform.Catalog,
	contents database.ContentRepository, connections database.ConnectionRepository,
	automations database.AutomationRepository, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		status:      status,
		runner:      runner,
		poller:      poller,
		catalog:     catalog,
		contents:    contents,
		connections: connections,
		automations: automations,
		scheduler:   scheduler,
	}
}

// Publish pushes a content item to a platform: relay first when configured,
// direct platform dispatch otherwise.
func (h *Handler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Error: "content_id and platform are required"})
		return
	}

	outcome, dispatchErr := h.dispatcher.Publish(c.Request.Context(), currentUserID(c), req.ContentID, req.Platform)
	if dispatchErr != nil {
		c.JSON(dispatchErr.Status, errorResponse{Code: dispatchErr.Code, Error: dispatchErr.Message})
		return
	}

	message := "published successfully"
	if outcome.Warning != "" {
		message = outcome.Warning
	}

	c.JSON(http.StatusOK, publishResponse{
		OK:      true,
		Mode:    outcome.Mode,
		PostID:  outcome.PostID,
		PostURL: outcome.PostURL,
		Message: message,
	})
}

// GetAutomationStatus is the pollable auto-comment progress resource.
// Foreign content ids read as not found.
func (h *Handler) GetAutomationStatus(c *gin.Context) {
	contentID := c.Param("id")

	content, err := h.contents.GetContent(contentID)
	if err != nil {
		slog.Error("Failed to load content", "content_id", contentID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load content"})
		return
	}
	if content == nil || content.UserID != currentUserID(c) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "content not found"})
		return
	}

	status, err := h.status.Status(contentID)
	if err != nil {
		slog.Error("Failed to read automation status", "content_id", contentID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to read status"})
		return
	}
	if status == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "content not found"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// StartAutoComments begins a new auto-comment cycle for a content item. The
// before batch runs in the background; progress is visible through the
// status resource.
func (h *Handler) StartAutoComments(c *gin.Context) {
	contentID := c.Param("id")

	var req autoCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Before <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "before count must be positive"})
		return
	}

	content, err := h.contents.GetContent(contentID)
	if err != nil {
		slog.Error("Failed to load content", "content_id", contentID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load content"})
		return
	}
	if content == nil || content.UserID != currentUserID(c) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "content not found"})
		return
	}

	task := tasks.NewBeforeCommentsTask(contentID, req.Before, req.After, h.runner)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue BeforeCommentsTask", "content_id", contentID, "error", err)
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "auto-comment queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "phase": autocomment.PhaseBeforePending})
}

// RunAutomations is the scheduled entry point for the comment-to-DM poller.
// Protected by the internal key middleware; also reachable for one platform
// at a time via the query parameter.
func (h *Handler) RunAutomations(c *gin.Context) {
	platformKey := c.DefaultQuery("platform", "instagram")

	summary, err := h.poller.Run(c.Request.Context(), platformKey)
	if err != nil {
		slog.Error("Automation pass failed", "platform", platformKey, "error", err)
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if contentCount, err := h.contents.GetContentCount(); err == nil {
		health["content_items"] = contentCount
	}
	health["platforms"] = h.catalog.Count()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]any{
		"platforms": h.catalog.Keys(),
	}

	if contentCount, err := h.contents.GetContentCount(); err == nil {
		stats["content_items"] = contentCount
	}
	if connectionCount, err := h.connections.GetConnectionCount(); err == nil {
		stats["social_connections"] = connectionCount
	}
	if automationCount, err := h.automations.GetAutomationCount(); err == nil {
		stats["automations"] = automationCount
	}

	c.JSON(http.StatusOK, stats)
}
