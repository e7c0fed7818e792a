package session

import "context"

// Process abstracts a launched helper process for testing and for the
// process-exit watch the client keeps during connect retries (spec §4.2:
// "monitor the helper process handle during connect-retries and bail out
// early if it has exited").
type Process interface {
	// Pid returns the OS process ID.
	Pid() int
	// Alive reports whether the process is still running.
	Alive() bool
	// Wait blocks until the process exits and returns its exit code.
	Wait(ctx context.Context) (int, error)
	// Terminate forcibly ends the process (best-effort, per spec §4.2:
	// "a helper launched by this bridge is also terminated by it").
	Terminate() error
}

// Launcher starts the elevated helper and returns a handle to it.
// Implementations must distinguish elevation-cancelled, helper-not-found,
// and access-denied as separate error kinds (spec §7), returned as
// *Error values with the corresponding types.ErrorKind.
type Launcher interface {
	Launch(ctx context.Context, helperPath string, args []string) (Process, error)
}
