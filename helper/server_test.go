package helper

import (
	"context"
	"testing"
	"time"

	"rpi-imager-diskwriter/ipc"
	"rpi-imager-diskwriter/log"
	"rpi-imager-diskwriter/types"
)

type fakeDispatcher struct {
	formatErr error
}

func (f *fakeDispatcher) Format(ctx context.Context, args []string, report ProgressReporter) error {
	report(types.ProgressWrite, 1, 2)
	report(types.ProgressWrite, 2, 2)
	report(types.ProgressWrite, 2, 2) // duplicate, should be suppressed
	return f.formatErr
}
func (f *fakeDispatcher) Write(ctx context.Context, args []string, report ProgressReporter) error {
	return nil
}
func (f *fakeDispatcher) Customize(ctx context.Context, args []string, report ProgressReporter) error {
	return nil
}
func (f *fakeDispatcher) Verify(ctx context.Context, args []string, report ProgressReporter) error {
	return nil
}

func newTestLogger() *log.Logger {
	return log.NewLogger(types.SessionMeta{SessionID: "test", SocketName: "test-pipe"})
}

func TestServer_HandshakeAndCommand(t *testing.T) {
	name := "helper-test-pipe-1"
	listener, err := ipc.Listen(name)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	disp := &fakeDispatcher{}
	server := NewServer(listener, disp, newTestLogger())

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(context.Background()) }()

	conn, err := ipc.Dial(name)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	decoder := ipc.NewFrameDecoder(conn)

	hello, err := ipc.ReadString(decoder)
	if err != nil || hello != types.HandshakeHello {
		t.Fatalf("hello = %q, err = %v", hello, err)
	}
	if err := ipc.WriteFrame(conn, ipc.NewStringFrame(types.HandshakeReady)); err != nil {
		t.Fatalf("write ready: %v", err)
	}

	if err := ipc.WriteFrame(conn, ipc.NewStringFrame(ipc.Build(types.VerbFormat, "F:"))); err != nil {
		t.Fatalf("write command: %v", err)
	}

	var progressCount int
	for {
		payload, err := decoder.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		frame, err := ipc.Decode(payload)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if pf, ok := frame.(*ipc.ProgressFrame); ok {
			progressCount++
			_ = pf
			continue
		}
		sf := frame.(*ipc.StringFrame)
		if sf.Value != types.CompletionSuccess {
			t.Fatalf("completion = %q, want SUCCESS", sf.Value)
		}
		break
	}
	if progressCount != 2 {
		t.Fatalf("progressCount = %d, want 2 (duplicate suppressed)", progressCount)
	}

	if err := ipc.WriteFrame(conn, ipc.NewStringFrame(ipc.Build(types.VerbShutdown))); err != nil {
		t.Fatalf("write shutdown: %v", err)
	}
	completion, err := ipc.ReadString(decoder)
	if err != nil || completion != types.CompletionSuccess {
		t.Fatalf("shutdown completion = %q, err = %v", completion, err)
	}

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after SHUTDOWN")
	}
	if server.State() != types.HelperIdle {
		t.Errorf("state = %v, want Idle after shutdown", server.State())
	}
}

func TestServer_UnknownVerbYieldsFailureNotError(t *testing.T) {
	name := "helper-test-pipe-2"
	listener, err := ipc.Listen(name)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	server := NewServer(listener, &fakeDispatcher{}, newTestLogger())

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(context.Background()) }()

	conn, err := ipc.Dial(name)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	decoder := ipc.NewFrameDecoder(conn)

	if _, err := ipc.ReadString(decoder); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if err := ipc.WriteFrame(conn, ipc.NewStringFrame(types.HandshakeReady)); err != nil {
		t.Fatalf("write ready: %v", err)
	}

	if err := ipc.WriteFrame(conn, ipc.NewStringFrame("BOGUS")); err != nil {
		t.Fatalf("write bogus command: %v", err)
	}
	completion, err := ipc.ReadString(decoder)
	if err != nil {
		t.Fatalf("read completion: %v", err)
	}
	if completion != types.CompletionFailure {
		t.Fatalf("completion = %q, want FAILURE", completion)
	}
	if server.State() != types.HelperReady {
		t.Errorf("state = %v, want Ready after rejecting bad command", server.State())
	}

	ipc.WriteFrame(conn, ipc.NewStringFrame(ipc.Build(types.VerbShutdown)))
	<-serveErr
}
