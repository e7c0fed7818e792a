package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"rpi-imager-diskwriter/ipc"
	"rpi-imager-diskwriter/types"
)

// connectAttempts and connectInterval bound the client's connect-retry
// loop (spec §4.2): the helper needs a moment to finish elevating and
// open its listener, so the client polls rather than failing on the
// first refused dial.
const (
	connectAttempts = 50
	connectInterval = 100 * time.Millisecond
)

// ProgressFunc receives progress frames forwarded during a running
// command (WRITE, VERIFY). It may be called from the goroutine driving
// the command and must not block.
type ProgressFunc func(ipc.ProgressFrame)

// NewSessionMeta creates session identity: a random session ID and the
// socket name derived from it, so concurrent helper instances (were the
// singleton discipline ever relaxed) would not collide on the pipe name.
func NewSessionMeta() types.SessionMeta {
	id := uuid.NewString()
	return types.SessionMeta{
		SessionID:  id,
		SocketName: ipc.DefaultSocketName + "-" + id[:8],
		StartedAt:  time.Now(),
	}
}

// Manager drives one helper session at a time. It owns the elevation
// bridge, the pipe connection, and the client-side state machine
// (spec §4.2). A zero Manager is not usable; construct with NewManager.
type Manager struct {
	launcher Launcher

	busy chan struct{} // 1-buffered: held while Connecting/Handshaking/Processing

	conn    net.Conn
	decoder *ipc.FrameDecoder
	process Process
	meta    types.SessionMeta
	state   types.ClientState
}

// NewManager constructs a Manager using launcher to elevate the helper.
func NewManager(launcher Launcher) *Manager {
	return &Manager{
		launcher: launcher,
		busy:     make(chan struct{}, 1),
		state:    types.ClientDisconnected,
	}
}

// tryAcquire enforces the singleton discipline: only one Connect or
// RunCommand may be in flight at a time. A concurrent caller gets
// ErrBusy immediately rather than queuing (spec §4.2).
func (m *Manager) tryAcquire() bool {
	select {
	case m.busy <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *Manager) release() { <-m.busy }

// Connect launches the elevated helper (if not already connected) and
// performs the HELLO/READY handshake. Calling Connect while already
// connected is a no-op.
func (m *Manager) Connect(ctx context.Context, helperPath string) error {
	if m.state == types.ClientConnected || m.state == types.ClientBusy {
		return nil
	}
	if !m.tryAcquire() {
		return ErrBusy
	}
	defer m.release()

	m.meta = NewSessionMeta()
	m.state = types.ClientConnecting

	proc, err := m.launcher.Launch(ctx, helperPath, []string{"--daemon", "--socket", m.meta.SocketName})
	if err != nil {
		m.state = types.ClientError
		return err
	}
	m.process = proc
	m.meta.PeerPID = proc.Pid()

	conn, err := m.dialWithRetry(ctx)
	if err != nil {
		m.state = types.ClientError
		proc.Terminate()
		return err
	}
	m.conn = conn
	m.decoder = ipc.NewFrameDecoder(conn)

	if err := m.handshake(); err != nil {
		m.state = types.ClientError
		conn.Close()
		proc.Terminate()
		return err
	}

	m.state = types.ClientConnected
	return nil
}

func (m *Manager) dialWithRetry(ctx context.Context) (net.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if !m.process.Alive() {
			return nil, newError(types.ErrKindConnectTimeout, "helper process exited before accepting a connection", lastErr)
		}
		conn, err := ipc.Dial(m.meta.SocketName)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectInterval):
		}
	}
	return nil, newError(types.ErrKindConnectTimeout, "timed out connecting to helper", lastErr)
}

// handshake performs the client side of the HELLO/READY exchange
// (spec §4.1): read HELLO from the helper, reply READY.
func (m *Manager) handshake() error {
	m.state = types.ClientHandshakeReceiving
	hello, err := ipc.ReadString(m.decoder)
	if err != nil {
		return newError(types.ErrKindHandshakeFailure, "failed to read handshake hello", err)
	}
	if hello != types.HandshakeHello {
		return newError(types.ErrKindProtocolViolation, fmt.Sprintf("unexpected handshake token %q", hello), nil)
	}

	m.state = types.ClientHandshakeSending
	if err := ipc.WriteFrame(m.conn, ipc.NewStringFrame(types.HandshakeReady)); err != nil {
		return newError(types.ErrKindHandshakeFailure, "failed to send handshake ready", err)
	}
	return nil
}

// RunCommand sends one command and drives it to completion, forwarding
// any progress frames to onProgress. It returns the completion token
// (types.CompletionSuccess or types.CompletionFailure).
//
// Per REDESIGN FLAG 9(a), completion is signaled by reading the next
// StringFrame off the wire — there is no polling loop on either side.
func (m *Manager) RunCommand(ctx context.Context, verb types.Verb, args []string, onProgress ProgressFunc) (string, error) {
	if m.state != types.ClientConnected {
		return "", newError(types.ErrKindProtocolViolation, "RunCommand called while not connected", nil)
	}
	if !m.tryAcquire() {
		return "", ErrBusy
	}
	defer m.release()

	m.state = types.ClientBusy
	defer func() {
		if m.state == types.ClientBusy {
			m.state = types.ClientConnected
		}
	}()

	text := ipc.Build(verb, args...)
	if err := ipc.WriteFrame(m.conn, ipc.NewStringFrame(text)); err != nil {
		m.state = types.ClientError
		return "", newError(types.ErrKindIO, "failed to send command", err)
	}

	done := make(chan struct{})
	var completion string
	var recvErr error

	go func() {
		defer close(done)
		for {
			payload, err := m.decoder.ReadFrame()
			if err != nil {
				recvErr = newError(types.ErrKindIO, "connection lost while awaiting completion", err)
				return
			}
			frame, err := ipc.Decode(payload)
			if err != nil {
				recvErr = newError(types.ErrKindProtocolViolation, "malformed frame from helper", err)
				return
			}
			switch f := frame.(type) {
			case *ipc.ProgressFrame:
				if onProgress != nil {
					onProgress(*f)
				}
			case *ipc.StringFrame:
				completion = f.Value
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-done:
	}

	if recvErr != nil {
		m.state = types.ClientError
		return "", recvErr
	}
	if completion != types.CompletionSuccess && completion != types.CompletionFailure {
		m.state = types.ClientError
		return "", newError(types.ErrKindProtocolViolation, fmt.Sprintf("unexpected completion token %q", completion), nil)
	}
	return completion, nil
}

// Close sends SHUTDOWN if connected, then tears the session down.
// Idempotent: calling Close on an already-disconnected Manager is a
// no-op (spec S6: idempotent shutdown).
func (m *Manager) Close(ctx context.Context) error {
	if m.state == types.ClientDisconnected {
		return nil
	}
	if m.state == types.ClientConnected {
		_, _ = m.RunCommand(ctx, types.VerbShutdown, nil, nil)
	}
	if m.conn != nil {
		m.conn.Close()
	}
	if m.process != nil {
		m.process.Terminate()
	}
	m.state = types.ClientDisconnected
	return nil
}

// State returns the client-side session state.
func (m *Manager) State() types.ClientState { return m.state }
