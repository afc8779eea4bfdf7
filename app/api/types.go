package api

import (
	"context"

	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/reconciler"
	"github.com/grammirror/gram-mirror/app/tasks"
	"github.com/grammirror/gram-mirror/app/watch"
)

type ProfilerInterface interface {
	Summary(ctx context.Context, creator string) (*reconciler.ProfileSummary, error)
}

var _ ProfilerInterface = (*reconciler.Profiler)(nil)

type Handler struct {
	configCache  *watch.ConfigCache
	settingsRepo history.SettingsRepository
	checker      tasks.Checker
	profiler     ProfilerInterface
	scheduler    tasks.TaskSchedulerInterface
}
