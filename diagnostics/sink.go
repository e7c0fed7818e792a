package diagnostics

import (
	"context"
	"time"

	"rpi-imager-diskwriter/log"
)

// Sink records session milestones through a Client, swallowing every
// failure: per spec.md §6, diagnostics are optional and must never
// fail a command. A nil or disabled Sink is a documented no-op, so
// callers can construct one unconditionally and let --no-diagnostics
// control behavior at a single call site.
type Sink struct {
	client     Client
	sessionID  string
	socketName string
	peerPID    int
	logger     *log.Logger
	enabled    bool
}

// NewSink constructs a Sink. If client is nil or enabled is false, the
// returned Sink records nothing.
func NewSink(client Client, sessionID, socketName string, peerPID int, logger *log.Logger, enabled bool) *Sink {
	return &Sink{
		client:     client,
		sessionID:  sessionID,
		socketName: socketName,
		peerPID:    peerPID,
		logger:     logger,
		enabled:    enabled && client != nil,
	}
}

// Record appends one milestone, logging (not returning) any failure.
func (s *Sink) Record(ctx context.Context, kind MilestoneKind, verb, outcome, errorKind string) {
	if s == nil || !s.enabled {
		return
	}
	now := time.Now()
	m := &Milestone{
		SessionID:  s.sessionID,
		SocketName: s.socketName,
		PeerPID:    s.peerPID,
		Kind:       kind,
		Verb:       verb,
		Outcome:    outcome,
		ErrorKind:  errorKind,
		Timestamp:  now,
		Day:        DeriveDay(now),
	}
	if err := s.client.WriteMilestones(ctx, []*Milestone{m}); err != nil {
		s.logger.Warn("diagnostics write failed", map[string]any{"kind": string(kind), "error": err.Error()})
	}
}

// Close releases the underlying client, if any.
func (s *Sink) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
