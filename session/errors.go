// Package session implements the client-side elevation bridge and IPC
// session manager: launching the helper, performing the handshake, and
// driving one command at a time to completion.
package session

import (
	"fmt"

	"rpi-imager-diskwriter/types"
)

// Error wraps an underlying failure with a discriminable ErrorKind, the
// "side channel" spec §7 describes for surfacing error categories to the
// caller without forcing it to string-match error messages.
type Error struct {
	Kind types.ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind types.ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// ErrBusy is returned by Manager.Connect when another Connect is already
// mid-launch (Connecting | HandshakeSending | HandshakeReceiving), per
// spec §4.2's singleton discipline: re-entrancy during those states
// returns an explicit busy error, not a new launch.
var ErrBusy = newError(types.ErrKindBusy, "a session is already in progress", nil)
