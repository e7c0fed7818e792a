//go:build !windows

package ipc

import (
	"testing"
	"time"
)

func TestListenDial_RoundTrip(t *testing.T) {
	name := "test-pipe-roundtrip"
	l, err := Listen(name)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	serverConnCh := make(chan struct{})
	go func() {
		conn, err := l.Accept()
		if err != nil {
			t.Errorf("Accept failed: %v", err)
			return
		}
		defer conn.Close()
		if err := WriteFrame(conn, NewStringFrame("HELLO")); err != nil {
			t.Errorf("WriteFrame failed: %v", err)
		}
		close(serverConnCh)
	}()

	conn, err := Dial(name)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	value, err := ReadString(NewFrameDecoder(conn))
	if err != nil {
		t.Fatalf("ReadString failed: %v", err)
	}
	if value != "HELLO" {
		t.Errorf("value = %q, want HELLO", value)
	}

	select {
	case <-serverConnCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server goroutine")
	}
}

func TestListen_NameInUse(t *testing.T) {
	name := "test-pipe-in-use"
	l, err := Listen(name)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	if _, err := Listen(name); err == nil {
		t.Fatal("second Listen on the same name should fail")
	}
}

func TestDial_NoListener(t *testing.T) {
	if _, err := Dial("no-such-pipe"); err == nil {
		t.Fatal("Dial with no listener should fail")
	}
}
