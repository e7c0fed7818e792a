// Package diagnostics appends one structured record per session
// milestone (connect, handshake, command received, command completed,
// error) to a local Hive-partitioned dataset. Per spec.md §6, this is
// an optional diagnostic surface that must never be relied on for
// correctness: every write here is best-effort, and a Sink absorbs any
// failure rather than propagating it into command handling.
package diagnostics

import (
	"context"
	"time"

	"github.com/justapithecus/lode/lode"
)

// MilestoneKind discriminates the session events this package records.
type MilestoneKind string

const (
	MilestoneConnect          MilestoneKind = "connect"
	MilestoneHandshake        MilestoneKind = "handshake"
	MilestoneCommandReceived  MilestoneKind = "command_received"
	MilestoneCommandCompleted MilestoneKind = "command_completed"
	MilestoneError            MilestoneKind = "error"
)

// Milestone is one audit record. Day is the Hive partition key derived
// from Timestamp; SessionID is the second partition key, so a single
// session's records land in one file regardless of how many commands
// it processes.
type Milestone struct {
	SessionID  string
	SocketName string
	PeerPID    int
	Kind       MilestoneKind
	Verb       string
	Outcome    string
	ErrorKind  string
	Timestamp  time.Time
	Day        string
}

func (m *Milestone) toRecord() map[string]any {
	record := map[string]any{
		"session_id":  m.SessionID,
		"socket_name": m.SocketName,
		"kind":        string(m.Kind),
		"timestamp":   m.Timestamp.UTC().Format(time.RFC3339Nano),
		"day":         m.Day,
	}
	if m.PeerPID != 0 {
		record["peer_pid"] = m.PeerPID
	}
	if m.Verb != "" {
		record["verb"] = m.Verb
	}
	if m.Outcome != "" {
		record["outcome"] = m.Outcome
	}
	if m.ErrorKind != "" {
		record["error_kind"] = m.ErrorKind
	}
	return record
}

// DeriveDay computes the Hive partition day from a milestone's
// timestamp, mirroring the ambient stack's own day-partitioning rule.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Client abstracts the Hive-partitioned dataset a Sink writes to. Real
// implementations are backed by Lode; tests use FakeClient.
type Client interface {
	// WriteMilestones appends a batch of milestones, preserving order.
	WriteMilestones(ctx context.Context, milestones []*Milestone) error
	// Close releases dataset resources.
	Close() error
}

// LodeClient is a real, filesystem-backed Lode dataset, partitioned by
// day and session id so a directory listing alone tells an operator
// which sessions ran on which day without opening any file.
type LodeClient struct {
	dataset lode.Dataset
}

// NewLodeClient opens (creating if absent) a Hive-partitioned dataset
// rooted at dir — %ProgramData%\rpi-imager-helper\diag by default.
func NewLodeClient(dir string) (*LodeClient, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID("imgwriter-diagnostics"),
		lode.NewFSFactory(dir),
		lode.WithHiveLayout("day", "session_id"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, err
	}
	return &LodeClient{dataset: ds}, nil
}

func (c *LodeClient) WriteMilestones(ctx context.Context, milestones []*Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	records := make([]any, 0, len(milestones))
	for _, m := range milestones {
		records = append(records, m.toRecord())
	}
	_, err := c.dataset.Write(ctx, records, lode.Metadata{})
	return err
}

func (c *LodeClient) Close() error { return nil }
