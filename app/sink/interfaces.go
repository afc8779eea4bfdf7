package sink

import (
	"context"
)

// Sink is the notification destination. Send creates a new message in a
// channel and returns its reference; Edit mutates an existing message in
// place; Fetch retrieves one for inspection. Edit and Fetch return
// ErrNotFound when the message has been removed upstream.
type Sink interface {
	Send(ctx context.Context, channelID string, p Payload) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, p Payload) error
	Fetch(ctx context.Context, ref MessageRef) (*Message, error)
}
