package tasks

import (
	"context"
	"log/slog"

	"github.com/openpromo/pubflow/app/autocomment"
)

// BeforeCommentsTask starts a new auto-comment cycle for a content item and
// generates the before batch.
type BeforeCommentsTask struct {
	Task
	ContentID   string
	BeforeCount int
	AfterCount  int
	runner      *autocomment.Runner
}

func NewBeforeCommentsTask(contentID string, beforeCount, afterCount int, runner *autocomment.Runner) *BeforeCommentsTask {
	return &BeforeCommentsTask{
		Task:        NewTask(TaskTypeBeforeComments, contentID),
		ContentID:   contentID,
		BeforeCount: beforeCount,
		AfterCount:  afterCount,
		runner:      runner,
	}
}

func (t *BeforeCommentsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.runner.StartCycle(ctx, t.ContentID, t.BeforeCount, t.AfterCount); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "BeforeComments",
		"content_id", t.ContentID,
		"duration", t.GetDuration(),
		"before", t.BeforeCount,
		"after", t.AfterCount)

	return nil
}
