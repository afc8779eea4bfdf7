package tasks

import "context"

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
// This interface provides task queue management, worker pool control and
// periodic scheduling of reconciliation passes.
// Example usage:
//
//	scheduler := NewScheduler(configCache, settingsRepo, checker)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewCheckPostsTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Checker runs one reconciliation pass per call. *reconciler.Reconciler
// satisfies it.
type Checker interface {
	CheckPosts(ctx context.Context, channelID, creator string, fetchCount int) error
	CheckStories(ctx context.Context, channelID, creator string) error
}
