package writeengine

import (
	"context"
	"io"
)

// RawDevice is an exclusively-opened handle to a physical drive or
// dismounted volume, positioned writes only — the write engine never
// assumes a current file offset survives across calls.
type RawDevice interface {
	io.WriterAt
	// SectorSize returns the device's native sector size in bytes, or 0
	// if it could not be queried (callers fall back to defaultSectorSize).
	SectorSize() int
	// Sync flushes any OS write cache to the physical medium.
	Sync() error
	Close() error
}

// openAttempts and openBackoff implement spec §4.3's "three open
// strategies with 2s backoff" for a physical drive; a freshly dismounted
// volume can stay briefly busy while the OS releases its filesystem
// handle, so opening exclusively is retried before failing the command.
// The volume-path variant uses only its first two attempts.
const (
	openAttempts = 3
	openBackoff  = 2 // seconds; kept as an int so tests can assert on it directly
)

// DeviceOpener performs the platform pre-write sequence (DASD lock,
// volume dismount, exclusive CreateFile) and returns a RawDevice ready
// for writes at absolute offsets.
type DeviceOpener interface {
	Open(ctx context.Context, devicePath string) (RawDevice, error)
}
