package types

import "time"

// SessionMeta identifies one handshake-completed IPC conversation for
// logging and diagnostics. Every log line and audit record emitted during
// a session carries these fields, the way the ambient stack stamps run
// identity onto every log line.
type SessionMeta struct {
	// SessionID is a random v4 UUID, generated by the client when it
	// launches the helper and echoed nowhere on the wire (the socket name
	// itself is derived from it — see session.NewSessionMeta).
	SessionID string
	// SocketName is the local-socket / named-pipe identifier in use.
	SocketName string
	// StartedAt is when the client began the connect-retry loop.
	StartedAt time.Time
	// PeerPID is the helper process ID, once known.
	PeerPID int
}
