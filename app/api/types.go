package api

import (
	"github.com/openpromo/pubflow/app/autocomment"
	"github.com/openpromo/pubflow/app/automation"
	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/dispatch"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/tasks"
)

type Handler struct {
	dispatcher  *dispatch.Dispatcher
	status      *autocomment.StatusService
	runner      *autocomment.Runner
	poller      *automation.Poller
	catalog     *platform.Catalog
	contents    database.ContentRepository
	connections database.ConnectionRepository
	automations database.AutomationRepository
	scheduler   tasks.TaskSchedulerInterface
}

type publishRequest struct {
	ContentID string `json:"content_id" binding:"required"`
	Platform  string `json:"platform" binding:"required"`
}

type publishResponse struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode,omitempty"`
	PostID  string `json:"postId,omitempty"`
	PostURL string `json:"postUrl,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type autoCommentRequest struct {
	Before int `json:"before"`
	After  int `json:"after"`
}
