package tasks

import (
	"context"
	"log/slog"

	"github.com/openpromo/pubflow/app/autocomment"
)

// AfterCommentsTask posts the after-publish comment batch. It is enqueued by
// the publish dispatcher once a post is live; the publish response never
// waits for it.
type AfterCommentsTask struct {
	Task
	ContentID string
	Platform  string
	runner    *autocomment.Runner
}

func NewAfterCommentsTask(contentID, platform string, runner *autocomment.Runner) *AfterCommentsTask {
	return &AfterCommentsTask{
		Task:      NewTask(TaskTypeAfterComments, contentID),
		ContentID: contentID,
		Platform:  platform,
		runner:    runner,
	}
}

func (t *AfterCommentsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.runner.RunAfterBatch(ctx, t.ContentID, t.Platform); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "AfterComments",
		"content_id", t.ContentID,
		"platform", t.Platform,
		"duration", t.GetDuration())

	return nil
}
