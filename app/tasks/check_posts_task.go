package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grammirror/gram-mirror/app/watch"
)

type CheckPostsTask struct {
	Task
	Config    *watch.Config
	checker   Checker
	channelID string
}

func NewCheckPostsTask(creator string, config *watch.Config, checker Checker, channelID string) *CheckPostsTask {
	return &CheckPostsTask{
		Task:      NewTask(TaskTypeCheckPosts, creator),
		Config:    config,
		checker:   checker,
		channelID: channelID,
	}
}

func (t *CheckPostsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Config.Settings.Posts {
		slog.Debug("Post watching disabled for creator", "creator", t.Creator)
		return nil
	}

	if err := t.checker.CheckPosts(ctx, t.channelID, t.Creator, t.Config.Settings.PostFetchCount); err != nil {
		return fmt.Errorf("failed to check posts: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"creator", t.Creator,
		"duration", t.GetDuration())

	return nil
}
