//go:build windows

package ipc

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// pipeSecurity grants SYSTEM full control and Interactive Users
// read/write, so an unprivileged client launched by the same interactive
// session can reach a pipe created by the elevated helper. Service
// accounts, batch jobs, and network logons are excluded.
const pipeSecurity = "D:P(A;;GA;;;SY)(A;;GRGW;;;IU)"

func pipePath(name string) string {
	return `\\.\pipe\` + name
}

func listenPipe(name string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	l, err := winio.ListenPipe(pipePath(name), cfg)
	if err != nil {
		return nil, fmt.Errorf("listen pipe %s: %w", pipePath(name), err)
	}
	return l, nil
}

func dialPipe(name string) (net.Conn, error) {
	conn, err := winio.DialPipe(pipePath(name), nil)
	if err != nil {
		return nil, fmt.Errorf("dial pipe %s: %w", pipePath(name), err)
	}
	return conn, nil
}
