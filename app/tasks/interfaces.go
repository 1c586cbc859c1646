package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API layer to run background work:
// scheduled comment-to-DM passes plus one-off auto-comment batches.
// Example usage:
//
//	scheduler := NewScheduler(poller)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewAfterCommentsTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
