package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("sess-001", "imgwriter")

	c.IncSessionStarted()
	c.IncSessionCompleted()
	c.IncCommand("WRITE", true)
	c.IncCommand("VERIFY", true)
	c.IncCommand("CUSTOMIZE", false)
	c.AddBytesWritten(1 << 30)
	c.AddBytesWritten(512)
	c.IncWriteRetry()
	c.IncWriteRetry()
	c.IncMBRRetry()
	c.IncVerifyMismatch()
	c.IncDiagnosticsWriteFailure()
	c.IncNotifyPublishFailure()

	s := c.Snapshot()

	if s.SessionsStarted != 1 {
		t.Errorf("SessionsStarted = %d, want 1", s.SessionsStarted)
	}
	if s.SessionsCompleted != 1 {
		t.Errorf("SessionsCompleted = %d, want 1", s.SessionsCompleted)
	}
	if s.CommandsByVerb["WRITE"] != 1 || s.CommandsByVerb["VERIFY"] != 1 || s.CommandsByVerb["CUSTOMIZE"] != 1 {
		t.Errorf("CommandsByVerb = %v, want one each of WRITE/VERIFY/CUSTOMIZE", s.CommandsByVerb)
	}
	if s.CommandFailures != 1 {
		t.Errorf("CommandFailures = %d, want 1", s.CommandFailures)
	}
	if s.BytesWritten != (1<<30)+512 {
		t.Errorf("BytesWritten = %d, want %d", s.BytesWritten, (1<<30)+512)
	}
	if s.WriteRetries != 2 {
		t.Errorf("WriteRetries = %d, want 2", s.WriteRetries)
	}
	if s.MBRRetries != 1 {
		t.Errorf("MBRRetries = %d, want 1", s.MBRRetries)
	}
	if s.VerifyMismatches != 1 {
		t.Errorf("VerifyMismatches = %d, want 1", s.VerifyMismatches)
	}
	if s.DiagnosticsWriteFailures != 1 {
		t.Errorf("DiagnosticsWriteFailures = %d, want 1", s.DiagnosticsWriteFailures)
	}
	if s.NotifyPublishFailures != 1 {
		t.Errorf("NotifyPublishFailures = %d, want 1", s.NotifyPublishFailures)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("sess-42", "imgwriter-7")
	s := c.Snapshot()

	if s.SessionID != "sess-42" {
		t.Errorf("SessionID = %q, want %q", s.SessionID, "sess-42")
	}
	if s.SocketName != "imgwriter-7" {
		t.Errorf("SocketName = %q, want %q", s.SocketName, "imgwriter-7")
	}
}

func TestCollector_CommandsByVerbIsolation(t *testing.T) {
	c := NewCollector("sess-001", "imgwriter")
	c.IncCommand("FORMAT", true)

	s1 := c.Snapshot()
	s1.CommandsByVerb["FORMAT"] = 999
	s1.CommandsByVerb["injected"] = 1

	s2 := c.Snapshot()
	if s2.CommandsByVerb["FORMAT"] != 1 {
		t.Errorf("CommandsByVerb[FORMAT] = %d, want 1 (collector should be isolated from snapshot mutation)", s2.CommandsByVerb["FORMAT"])
	}
	if _, exists := s2.CommandsByVerb["injected"]; exists {
		t.Error("CommandsByVerb should not contain a key injected via snapshot mutation")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("sess-001", "imgwriter")
	c.IncSessionStarted()
	c.AddBytesWritten(100)

	s1 := c.Snapshot()

	c.IncSessionCompleted()
	c.AddBytesWritten(900)

	if s1.SessionsCompleted != 0 {
		t.Errorf("s1.SessionsCompleted = %d, want 0 (snapshot should be frozen)", s1.SessionsCompleted)
	}
	if s1.BytesWritten != 100 {
		t.Errorf("s1.BytesWritten = %d, want 100 (snapshot should be frozen)", s1.BytesWritten)
	}

	s2 := c.Snapshot()
	if s2.SessionsCompleted != 1 {
		t.Errorf("s2.SessionsCompleted = %d, want 1", s2.SessionsCompleted)
	}
	if s2.BytesWritten != 1000 {
		t.Errorf("s2.BytesWritten = %d, want 1000", s2.BytesWritten)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.IncSessionStarted()
	c.IncSessionCompleted()
	c.IncSessionErrored()
	c.IncCommand("WRITE", true)
	c.AddBytesWritten(100)
	c.IncWriteRetry()
	c.IncMBRRetry()
	c.IncVerifyMismatch()
	c.IncDiagnosticsWriteFailure()
	c.IncNotifyPublishFailure()

	s := c.Snapshot()
	if s.SessionsStarted != 0 {
		t.Errorf("nil collector snapshot SessionsStarted = %d, want 0", s.SessionsStarted)
	}
	if s.CommandsByVerb != nil {
		t.Errorf("nil collector snapshot CommandsByVerb should be nil, got %v", s.CommandsByVerb)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("sess-001", "imgwriter")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncSessionStarted()
				c.IncCommand("WRITE", true)
				c.AddBytesWritten(1)
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.SessionsStarted != want {
		t.Errorf("SessionsStarted = %d, want %d", s.SessionsStarted, want)
	}
	if s.CommandsByVerb["WRITE"] != want {
		t.Errorf("CommandsByVerb[WRITE] = %d, want %d", s.CommandsByVerb["WRITE"], want)
	}
	if s.BytesWritten != want {
		t.Errorf("BytesWritten = %d, want %d", s.BytesWritten, want)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	c := NewCollector("sess-001", "imgwriter")
	s := c.Snapshot()

	if s.SessionsStarted != 0 || s.SessionsCompleted != 0 || s.SessionsErrored != 0 {
		t.Error("fresh collector should have zero session lifecycle counters")
	}
	if s.CommandFailures != 0 || s.BytesWritten != 0 || s.WriteRetries != 0 || s.MBRRetries != 0 {
		t.Error("fresh collector should have zero command/write counters")
	}
	if s.VerifyMismatches != 0 || s.DiagnosticsWriteFailures != 0 || s.NotifyPublishFailures != 0 {
		t.Error("fresh collector should have zero verify/side-channel counters")
	}
	if len(s.CommandsByVerb) != 0 {
		t.Errorf("fresh collector CommandsByVerb should be empty, got %v", s.CommandsByVerb)
	}
}
