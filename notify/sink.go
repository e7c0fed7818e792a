package notify

import (
	"context"

	"rpi-imager-diskwriter/log"
)

// Sink wraps a Notifier so callers never have to check whether
// notification is enabled or handle its errors: a nil Notifier (the
// --notify-redis flag unset) makes Sink.Publish a no-op, and a publish
// failure is logged as a warning rather than propagated.
type Sink struct {
	notifier Notifier
	logger   *log.Logger
}

// NewSink constructs a Sink. notifier may be nil.
func NewSink(notifier Notifier, logger *log.Logger) *Sink {
	return &Sink{notifier: notifier, logger: logger}
}

// Publish sends event through the underlying Notifier, if any.
func (s *Sink) Publish(ctx context.Context, event *SessionCompletedEvent) {
	if s == nil || s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("session-completed notification failed", map[string]any{"session_id": event.SessionID, "error": err.Error()})
	}
}

// Close releases the underlying notifier, if any.
func (s *Sink) Close() error {
	if s == nil || s.notifier == nil {
		return nil
	}
	return s.notifier.Close()
}
