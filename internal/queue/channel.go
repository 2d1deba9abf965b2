package queue

import "context"

// ChannelNotifier hands events to in-process consumers over a buffered channel.
type ChannelNotifier struct {
	events chan Event
}

func NewChannelNotifier(size int) *ChannelNotifier {
	return &ChannelNotifier{events: make(chan Event, size)}
}

// Publish blocks while the buffer is full, until ctx is done.
func (c *ChannelNotifier) Publish(ctx context.Context, event Event) error {
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChannelNotifier) Events() <-chan Event {
	return c.events
}
