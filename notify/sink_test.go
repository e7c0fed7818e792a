package notify

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

func TestSink_Publish(t *testing.T) {
	notifier := &FakeNotifier{}
	sink := NewSink(notifier, testLogger())

	event := testEvent()
	sink.Publish(context.Background(), event)

	got := notifier.Snapshot()
	if len(got) != 1 || got[0].SessionID != event.SessionID {
		t.Fatalf("published events = %+v, want one event with session %s", got, event.SessionID)
	}
}

func TestSink_NilNotifierIsNoOp(t *testing.T) {
	sink := NewSink(nil, testLogger())
	sink.Publish(context.Background(), testEvent()) // must not panic
	if err := sink.Close(); err != nil {
		t.Errorf("Close on a nil-notifier sink should be a no-op, got %v", err)
	}
}

func TestSink_NilSinkIsNoOp(t *testing.T) {
	var sink *Sink
	sink.Publish(context.Background(), testEvent()) // must not panic
	if err := sink.Close(); err != nil {
		t.Errorf("Close on a nil sink should be a no-op, got %v", err)
	}
}

func TestSink_PublishFailureIsSwallowed(t *testing.T) {
	notifier := &FakeNotifier{PublishErr: errors.New("connection refused")}
	sink := NewSink(notifier, testLogger())
	sink.Publish(context.Background(), testEvent()) // must not panic or return an error
}

func TestSink_Close(t *testing.T) {
	notifier := &FakeNotifier{}
	sink := NewSink(notifier, testLogger())
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !notifier.Closed {
		t.Error("Close should close the underlying notifier")
	}
}
