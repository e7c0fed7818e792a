package notify

import (
	"context"
	"sync"
)

// FakeNotifier is an in-memory Notifier for tests.
type FakeNotifier struct {
	mu       sync.Mutex
	Events   []*SessionCompletedEvent
	Closed   bool
	PublishErr error
}

func (n *FakeNotifier) Publish(ctx context.Context, event *SessionCompletedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.PublishErr != nil {
		return n.PublishErr
	}
	n.Events = append(n.Events, event)
	return nil
}

func (n *FakeNotifier) Close() error { n.Closed = true; return nil }

// Snapshot returns a copy of the events published so far.
func (n *FakeNotifier) Snapshot() []*SessionCompletedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*SessionCompletedEvent, len(n.Events))
	copy(out, n.Events)
	return out
}
