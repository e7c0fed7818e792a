package diagnostics

import (
	"context"
	"errors"
	"testing"

	"rpi-imager-diskwriter/log"
	"rpi-imager-diskwriter/types"
)

func testLogger() *log.Logger {
	return log.NewLogger(types.SessionMeta{SessionID: "sess-1", SocketName: "imgwriter"})
}

func TestSink_RecordsMilestone(t *testing.T) {
	client := &FakeClient{}
	sink := NewSink(client, "sess-1", "imgwriter", 4242, testLogger(), true)

	sink.Record(context.Background(), MilestoneCommandCompleted, "WRITE", "success", "")

	got := client.Snapshot()
	if len(got) != 1 {
		t.Fatalf("recorded %d milestones, want 1", len(got))
	}
	m := got[0]
	if m.SessionID != "sess-1" || m.Verb != "WRITE" || m.Outcome != "success" || m.PeerPID != 4242 {
		t.Errorf("milestone = %+v, unexpected fields", m)
	}
	if m.Day == "" {
		t.Error("Day should be derived from the timestamp")
	}
}

func TestSink_DisabledIsNoOp(t *testing.T) {
	client := &FakeClient{}
	sink := NewSink(client, "sess-1", "imgwriter", 0, testLogger(), false)

	sink.Record(context.Background(), MilestoneConnect, "", "", "")

	if len(client.Snapshot()) != 0 {
		t.Error("a disabled sink must not write any milestones")
	}
}

func TestSink_NilSinkIsNoOp(t *testing.T) {
	var sink *Sink
	sink.Record(context.Background(), MilestoneConnect, "", "", "") // must not panic
	if err := sink.Close(); err != nil {
		t.Errorf("Close on a nil sink should be a no-op, got %v", err)
	}
}

func TestSink_WriteFailureIsSwallowed(t *testing.T) {
	client := &FakeClient{WriteErr: errors.New("disk full")}
	sink := NewSink(client, "sess-1", "imgwriter", 0, testLogger(), true)

	sink.Record(context.Background(), MilestoneError, "WRITE", "failure", "write_failure")
	// No panic and no error return is the whole point of the test —
	// diagnostics failures must never surface to command handling.
}

func TestSink_Close(t *testing.T) {
	client := &FakeClient{}
	sink := NewSink(client, "sess-1", "imgwriter", 0, testLogger(), true)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !client.Closed {
		t.Error("Close should close the underlying client")
	}
}
