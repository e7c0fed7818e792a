package helper

import (
	"context"
	"errors"
	"io"
	"net"

	"rpi-imager-diskwriter/ipc"
	"rpi-imager-diskwriter/log"
	"rpi-imager-diskwriter/types"
)

// progressCadence bounds how often WRITE/VERIFY progress frames are
// sent: duplicate (kind, now) pairs are suppressed so a fast device
// doesn't flood the pipe (spec §4.5).
type progressCadence struct {
	conn     net.Conn
	lastKind types.ProgressKind
	lastNow  int64
	sent     bool
}

func (c *progressCadence) report(kind types.ProgressKind, now, total int64) {
	if c.sent && kind == c.lastKind && now == c.lastNow {
		return
	}
	c.lastKind, c.lastNow, c.sent = kind, now, true
	ipc.WriteFrame(c.conn, ipc.NewProgressFrame(kind, now, total))
}

// Server is the helper's IPC endpoint: it accepts exactly one client
// connection per process lifetime, performs the handshake, and drives
// the command loop to SHUTDOWN or disconnect (spec §4.2, §4.6).
type Server struct {
	listener   net.Listener
	dispatcher Dispatcher
	logger     *log.Logger
	state      types.HelperState
}

// NewServer wraps an already-listening transport with the command
// dispatch loop.
func NewServer(listener net.Listener, dispatcher Dispatcher, logger *log.Logger) *Server {
	return &Server{listener: listener, dispatcher: dispatcher, logger: logger, state: types.HelperIdle}
}

// State returns the helper-side state machine's current state.
func (s *Server) State() types.HelperState { return s.state }

// Serve accepts the single client connection and processes commands
// until SHUTDOWN, disconnect, or ctx cancellation. It returns nil on a
// clean SHUTDOWN or disconnect, and a non-nil error when the accept or
// the handshake fails, when ctx is cancelled, or on a fatal frame error
// or socket write failure (spec §4.1's fatal tier).
func (s *Server) Serve(ctx context.Context) error {
	s.state = types.HelperIdle
	conn, err := s.listener.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()
	s.state = types.HelperConnected

	if err := s.handshake(conn); err != nil {
		s.state = types.HelperError
		return err
	}

	s.state = types.HelperReady
	decoder := ipc.NewFrameDecoder(conn)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		text, err := ipc.ReadString(decoder)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.state = types.HelperError
			return err
		}

		cmd, err := ipc.Parse(text)
		if err != nil {
			s.logger.Warn("rejecting malformed command", map[string]any{"text": text, "error": err.Error()})
			if writeErr := ipc.WriteFrame(conn, ipc.NewStringFrame(types.CompletionFailure)); writeErr != nil {
				return writeErr
			}
			continue
		}

		if cmd.Verb == types.VerbShutdown {
			ipc.WriteFrame(conn, ipc.NewStringFrame(types.CompletionSuccess))
			s.state = types.HelperIdle
			return nil
		}

		s.state = types.HelperProcessing
		completion := s.dispatch(ctx, conn, cmd)
		if err := ipc.WriteFrame(conn, ipc.NewStringFrame(completion)); err != nil {
			s.state = types.HelperError
			return err
		}
		s.state = types.HelperReady
	}
}

func (s *Server) handshake(conn net.Conn) error {
	s.state = types.HelperHandshakeSending
	if err := ipc.WriteFrame(conn, ipc.NewStringFrame(types.HandshakeHello)); err != nil {
		return err
	}

	s.state = types.HelperHandshakeReceiving
	ready, err := ipc.ReadString(ipc.NewFrameDecoder(conn))
	if err != nil {
		return err
	}
	if ready != types.HandshakeReady {
		return errors.New("client did not reply READY to handshake")
	}
	return nil
}

// dispatch routes cmd to the matching Dispatcher method and converts
// any error into a FAILURE token, per spec §4.6.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, cmd ipc.Command) string {
	cadence := &progressCadence{conn: conn}
	var err error
	switch cmd.Verb {
	case types.VerbFormat:
		err = s.dispatcher.Format(ctx, cmd.Args, cadence.report)
	case types.VerbWrite:
		err = s.dispatcher.Write(ctx, cmd.Args, cadence.report)
	case types.VerbCustomize:
		err = s.dispatcher.Customize(ctx, cmd.Args, cadence.report)
	case types.VerbVerify:
		err = s.dispatcher.Verify(ctx, cmd.Args, cadence.report)
	default:
		err = errors.New("unhandled verb reached dispatch")
	}
	if err != nil {
		s.logger.Error("command failed", map[string]any{"verb": string(cmd.Verb), "error": err.Error()})
		return types.CompletionFailure
	}
	return types.CompletionSuccess
}
