package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func testEvent() *SessionCompletedEvent {
	return NewEvent("sess-001", "WRITE", "success",
		time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 5, 12, 0, 3, 0, time.UTC),
		1<<30, "")
}

// asyncReceive starts a goroutine that reads one message from the
// subscriber and sends it to the returned channel. Must be called
// BEFORE Publish to avoid deadlocking miniredis's synchronous pub/sub
// delivery.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func TestRedisNotifier_Publish_DefaultChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := NewRedisNotifier(Config{URL: "redis://" + mr.Addr(), Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	event := testEvent()
	if err := n.Publish(t.Context(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != DefaultChannel {
		t.Errorf("channel = %q, want %q", msg.Channel, DefaultChannel)
	}

	var received SessionCompletedEvent
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.SessionID != "sess-001" || received.Verb != "WRITE" || received.Outcome != "success" {
		t.Errorf("received = %+v, unexpected fields", received)
	}
	if received.DurationMs != 3000 {
		t.Errorf("DurationMs = %d, want 3000", received.DurationMs)
	}
}

func TestRedisNotifier_Publish_CustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	customChannel := "custom:completions"
	n, err := NewRedisNotifier(Config{URL: "redis://" + mr.Addr(), Channel: customChannel})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(customChannel)
	ch := asyncReceive(sub)

	if err := n.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg := waitMessage(t, ch)
	if msg.Channel != customChannel {
		t.Errorf("channel = %q, want %q", msg.Channel, customChannel)
	}
}

func TestNewRedisNotifier_RequiresURL(t *testing.T) {
	if _, err := NewRedisNotifier(Config{}); err == nil {
		t.Fatal("expected an error when URL is empty")
	}
}
