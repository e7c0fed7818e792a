package session

import (
	"context"
	"io"
	"testing"
	"time"

	"rpi-imager-diskwriter/ipc"
	"rpi-imager-diskwriter/types"
)

// fakeProcess simulates a launched helper without spawning anything.
type fakeProcess struct {
	pid   int
	alive bool
}

func (p *fakeProcess) Pid() int                               { return p.pid }
func (p *fakeProcess) Alive() bool                            { return p.alive }
func (p *fakeProcess) Wait(ctx context.Context) (int, error)  { return 0, nil }
func (p *fakeProcess) Terminate() error                       { p.alive = false; return nil }

// fakeLauncher stands in for the elevation bridge in tests: instead of
// spawning a real helper process, it starts an in-process goroutine that
// speaks the helper side of the protocol over the same in-memory pipe
// transport used by ipc/pipe_other.go.
type fakeLauncher struct {
	handler func(conn io.Writer, dec *ipc.FrameDecoder)
}

func (l *fakeLauncher) Launch(ctx context.Context, helperPath string, args []string) (Process, error) {
	socketName := args[2]
	listener, err := ipc.Listen(socketName)
	if err != nil {
		return nil, err
	}
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		defer listener.Close()
		dec := ipc.NewFrameDecoder(conn)
		l.handler(conn, dec)
	}()
	return &fakeProcess{pid: 4242, alive: true}, nil
}

func echoHelper(conn io.Writer, dec *ipc.FrameDecoder) {
	if err := ipc.WriteFrame(conn, ipc.NewStringFrame(types.HandshakeHello)); err != nil {
		return
	}
	ready, err := ipc.ReadString(dec)
	if err != nil || ready != types.HandshakeReady {
		return
	}
	for {
		text, err := ipc.ReadString(dec)
		if err != nil {
			return
		}
		cmd, err := ipc.Parse(text)
		if err != nil {
			ipc.WriteFrame(conn, ipc.NewStringFrame(types.CompletionFailure))
			continue
		}
		if cmd.Verb == types.VerbShutdown {
			ipc.WriteFrame(conn, ipc.NewStringFrame(types.CompletionSuccess))
			return
		}
		ipc.WriteFrame(conn, ipc.NewProgressFrame(types.ProgressWrite, 50, 100))
		ipc.WriteFrame(conn, ipc.NewProgressFrame(types.ProgressWrite, 100, 100))
		ipc.WriteFrame(conn, ipc.NewStringFrame(types.CompletionSuccess))
	}
}

func TestManager_ConnectAndRunCommand(t *testing.T) {
	m := NewManager(&fakeLauncher{handler: echoHelper})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Connect(ctx, "fake-helper.exe"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if m.State() != types.ClientConnected {
		t.Fatalf("state = %v, want Connected", m.State())
	}

	var progressCalls []ipc.ProgressFrame
	completion, err := m.RunCommand(ctx, types.VerbFormat, []string{"F:"}, func(p ipc.ProgressFrame) {
		progressCalls = append(progressCalls, p)
	})
	if err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}
	if completion != types.CompletionSuccess {
		t.Fatalf("completion = %q, want SUCCESS", completion)
	}
	if len(progressCalls) != 2 {
		t.Fatalf("got %d progress frames, want 2", len(progressCalls))
	}
	for i := 1; i < len(progressCalls); i++ {
		if progressCalls[i].Now < progressCalls[i-1].Now {
			t.Errorf("progress went backwards: %v then %v", progressCalls[i-1], progressCalls[i])
		}
	}

	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(ctx); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

func TestManager_RunCommand_BeforeConnect(t *testing.T) {
	m := NewManager(&fakeLauncher{handler: echoHelper})
	_, err := m.RunCommand(context.Background(), types.VerbFormat, []string{"F:"}, nil)
	if err == nil {
		t.Fatal("expected error running a command before Connect")
	}
}
