package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grammirror/gram-mirror/app/watch"
)

type CheckStoriesTask struct {
	Task
	Config    *watch.Config
	checker   Checker
	channelID string
}

func NewCheckStoriesTask(creator string, config *watch.Config, checker Checker, channelID string) *CheckStoriesTask {
	return &CheckStoriesTask{
		Task:      NewTask(TaskTypeCheckStories, creator),
		Config:    config,
		checker:   checker,
		channelID: channelID,
	}
}

func (t *CheckStoriesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Config.Settings.Stories {
		slog.Debug("Story watching disabled for creator", "creator", t.Creator)
		return nil
	}

	if err := t.checker.CheckStories(ctx, t.channelID, t.Creator); err != nil {
		return fmt.Errorf("failed to check stories: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"creator", t.Creator,
		"duration", t.GetDuration())

	return nil
}
