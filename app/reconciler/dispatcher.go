package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/sink"
)

// Dispatcher turns reconciliation actions into sink calls. Terminal edits
// are idempotent: a message that already carries the notice is left alone,
// and a message deleted on the sink side is skipped with a warning.
type Dispatcher struct {
	sink sink.Sink
}

func NewDispatcher(s sink.Sink) *Dispatcher {
	return &Dispatcher{sink: s}
}

func (d *Dispatcher) SendNewPost(ctx context.Context, a NewPostAction) (sink.MessageRef, error) {
	payload := sink.Payload{
		Kind:         string(history.KindPost),
		Creator:      a.Post.Creator,
		ItemID:       a.Post.ID,
		Caption:      a.Post.Caption,
		Link:         a.Post.URL(),
		Timestamp:    a.Timestamp,
		LikeCount:    intPtr(a.Post.LikeCount),
		CommentCount: intPtr(a.Post.CommentCount),
		Media:        a.Media,
	}
	return d.sink.Send(ctx, a.ChannelID, payload)
}

func (d *Dispatcher) SendNewStory(ctx context.Context, a NewStoryAction) (sink.MessageRef, error) {
	payload := sink.Payload{
		Kind:      string(history.KindStory),
		Creator:   a.Story.Creator,
		ItemID:    a.Story.ID,
		Link:      a.Story.URL(),
		Timestamp: a.Timestamp,
		Media:     a.Media,
	}
	return d.sink.Send(ctx, a.ChannelID, payload)
}

func (d *Dispatcher) EditDeletedPost(ctx context.Context, a DeletedPostAction) {
	messageID, ok := a.Entry.MessageIDs[a.ChannelID]
	if !ok {
		return
	}
	payload := sink.Payload{
		Kind:         string(history.KindPost),
		Creator:      a.Creator,
		ItemID:       a.Entry.ItemID,
		Timestamp:    a.Entry.Timestamp,
		Notice:       sink.DeletedNotice,
		NoticedAt:    a.Entry.DeletedAt,
		LikeCount:    a.Entry.LikeCount,
		CommentCount: a.Entry.CommentCount,
	}
	d.editTerminal(ctx, sink.MessageRef{ChannelID: a.ChannelID, MessageID: messageID}, payload)
}

func (d *Dispatcher) EditExpiredStory(ctx context.Context, a ExpiredStoryAction) {
	messageID, ok := a.Entry.MessageIDs[a.ChannelID]
	if !ok {
		return
	}
	payload := sink.Payload{
		Kind:      string(history.KindStory),
		Creator:   a.Creator,
		ItemID:    a.Entry.ItemID,
		Timestamp: a.Entry.Timestamp,
		Notice:    sink.ExpiredNotice,
		NoticedAt: a.Entry.ExpiredAt,
	}
	d.editTerminal(ctx, sink.MessageRef{ChannelID: a.ChannelID, MessageID: messageID}, payload)
}

func (d *Dispatcher) editTerminal(ctx context.Context, ref sink.MessageRef, payload sink.Payload) {
	msg, err := d.sink.Fetch(ctx, ref)
	switch {
	case errors.Is(err, sink.ErrNotFound):
		slog.Warn("Message gone from channel, skipping notice",
			"channel_id", ref.ChannelID, "message_id", ref.MessageID)
		return
	case err != nil:
		slog.Warn("Message lookup failed, skipping notice",
			"channel_id", ref.ChannelID, "message_id", ref.MessageID, "error", err)
		return
	}

	if strings.Contains(msg.Body, payload.Notice) {
		slog.Debug("Message already carries notice",
			"channel_id", ref.ChannelID, "message_id", ref.MessageID)
		return
	}

	if err := d.sink.Edit(ctx, ref, payload); err != nil {
		if errors.Is(err, sink.ErrNotFound) {
			slog.Warn("Message gone from channel, skipping notice",
				"channel_id", ref.ChannelID, "message_id", ref.MessageID)
			return
		}
		slog.Warn("Message edit failed",
			"channel_id", ref.ChannelID, "message_id", ref.MessageID, "error", err)
	}
}
