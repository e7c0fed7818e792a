// Package metrics provides per-session counters. The Collector
// accumulates counts during a single helper session; it is a leaf
// package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of a session's counters.
// Safe to read concurrently after creation.
type Snapshot struct {
	// Session lifecycle
	SessionsStarted   int64
	SessionsCompleted int64
	SessionsErrored   int64

	// Commands, by verb
	CommandsByVerb  map[string]int64
	CommandFailures int64

	// Write engine
	BytesWritten int64
	WriteRetries int64
	MBRRetries   int64

	// Verifier
	VerifyMismatches int64

	// Side channels (never fail a command; counted so an operator can
	// notice a silently-degraded diagnostics or notify path)
	DiagnosticsWriteFailures int64
	NotifyPublishFailures    int64

	// Dimensions (informational, set at construction)
	SessionID  string
	SocketName string
}

// Collector accumulates metrics during a single session. Thread-safe
// via sync.Mutex. All increment methods are nil-receiver safe, so a
// component can hold a possibly-nil *Collector without branching.
type Collector struct {
	mu sync.Mutex

	sessionsStarted   int64
	sessionsCompleted int64
	sessionsErrored   int64

	commandsByVerb  map[string]int64
	commandFailures int64

	bytesWritten int64
	writeRetries int64
	mbrRetries   int64

	verifyMismatches int64

	diagnosticsWriteFailures int64
	notifyPublishFailures    int64

	sessionID  string
	socketName string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(sessionID, socketName string) *Collector {
	return &Collector{
		commandsByVerb: make(map[string]int64),
		sessionID:      sessionID,
		socketName:     socketName,
	}
}

// --- Session lifecycle ---

func (c *Collector) IncSessionStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsStarted++
	c.mu.Unlock()
}

func (c *Collector) IncSessionCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsCompleted++
	c.mu.Unlock()
}

func (c *Collector) IncSessionErrored() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsErrored++
	c.mu.Unlock()
}

// --- Commands ---

// IncCommand records one dispatched command for verb, and a failure if
// succeeded is false.
func (c *Collector) IncCommand(verb string, succeeded bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.commandsByVerb[verb]++
	if !succeeded {
		c.commandFailures++
	}
	c.mu.Unlock()
}

// --- Write engine ---

// AddBytesWritten accumulates bytes written by the write engine across
// the session's WRITE commands.
func (c *Collector) AddBytesWritten(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bytesWritten += n
	c.mu.Unlock()
}

func (c *Collector) IncWriteRetry() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.writeRetries++
	c.mu.Unlock()
}

func (c *Collector) IncMBRRetry() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mbrRetries++
	c.mu.Unlock()
}

// --- Verifier ---

func (c *Collector) IncVerifyMismatch() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.verifyMismatches++
	c.mu.Unlock()
}

// --- Side channels ---

func (c *Collector) IncDiagnosticsWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.diagnosticsWriteFailures++
	c.mu.Unlock()
}

func (c *Collector) IncNotifyPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifyPublishFailures++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byVerb := make(map[string]int64, len(c.commandsByVerb))
	for k, v := range c.commandsByVerb {
		byVerb[k] = v
	}

	return Snapshot{
		SessionsStarted:   c.sessionsStarted,
		SessionsCompleted: c.sessionsCompleted,
		SessionsErrored:   c.sessionsErrored,

		CommandsByVerb:  byVerb,
		CommandFailures: c.commandFailures,

		BytesWritten: c.bytesWritten,
		WriteRetries: c.writeRetries,
		MBRRetries:   c.mbrRetries,

		VerifyMismatches: c.verifyMismatches,

		DiagnosticsWriteFailures: c.diagnosticsWriteFailures,
		NotifyPublishFailures:    c.notifyPublishFailures,

		SessionID:  c.sessionID,
		SocketName: c.socketName,
	}
}
