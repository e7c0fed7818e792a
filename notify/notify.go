// Package notify publishes an out-of-band SessionCompletedEvent for
// each finished command, so a fleet-management console can observe
// helper activity without holding the named-pipe connection itself.
// Per spec.md §7, this is a side channel: publish failures are logged
// and never fail the command that triggered them.
package notify

import (
	"context"
	"time"
)

// SessionCompletedEvent is the JSON payload published after a command
// completes (successfully or not).
type SessionCompletedEvent struct {
	SessionID    string `json:"session_id"`
	Verb         string `json:"verb"`
	Outcome      string `json:"outcome"`
	DurationMs   int64  `json:"duration_ms"`
	BytesWritten int64  `json:"bytes_written,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// NewEvent stamps Timestamp from the given start/end pair.
func NewEvent(sessionID, verb, outcome string, started, finished time.Time, bytesWritten int64, errorKind string) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		SessionID:    sessionID,
		Verb:         verb,
		Outcome:      outcome,
		DurationMs:   finished.Sub(started).Milliseconds(),
		BytesWritten: bytesWritten,
		ErrorKind:    errorKind,
		Timestamp:    finished.UTC().Format(time.RFC3339Nano),
	}
}

// Notifier publishes a completion event to a downstream system.
type Notifier interface {
	Publish(ctx context.Context, event *SessionCompletedEvent) error
	Close() error
}
