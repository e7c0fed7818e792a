package ipc

import "net"

// DefaultSocketName is the local-socket name used when none is supplied
// on the helper CLI (spec §6).
const DefaultSocketName = "rpihelperlocalsocket"

// PipePath renders a socket name as the platform pipe path. On Windows
// this is \\.\pipe\<name>; the value is only ever used by the
// platform-specific Listen/Dial implementations, but callers that need to
// log or display it can call this directly.
func PipePath(name string) string {
	return pipePath(name)
}

// Listen creates a world-accessible named-pipe listener so an
// unprivileged client can connect to this elevated process (spec §6).
// Only one client is accepted at a time.
func Listen(name string) (net.Listener, error) {
	return listenPipe(name)
}

// Dial connects to a named pipe previously created with Listen.
func Dial(name string) (net.Conn, error) {
	return dialPipe(name)
}
