package tasks

import (
	"context"
	"log/slog"

	"github.com/openpromo/pubflow/app/automation"
)

// AutomationPassTask runs one comment-to-DM poller pass for a platform.
type AutomationPassTask struct {
	Task
	Platform string
	poller   *automation.Poller
}

func NewAutomationPassTask(platform string, poller *automation.Poller) *AutomationPassTask {
	return &AutomationPassTask{
		Task:     NewTask(TaskTypeAutomationPass, platform),
		Platform: platform,
		poller:   poller,
	}
}

func (t *AutomationPassTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.poller.Run(ctx, t.Platform)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "AutomationPass",
		"platform", t.Platform,
		"duration", t.GetDuration(),
		"processed", summary.Processed,
		"replies", summary.Replies,
		"dms_sent", summary.DMsSent,
		"errors", summary.Errors)

	return nil
}
