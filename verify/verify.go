// Package verify implements the VERIFY command: re-reading the written
// device and confirming its SHA-256 matches the source that was
// written to it, without trusting the OS's write-completion signal
// alone.
package verify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"rpi-imager-diskwriter/helper"
	"rpi-imager-diskwriter/types"
)

// chunkSize matches the write engine's streaming unit (spec §4.3/§4.5:
// "10 MiB chunks").
const chunkSize = 10 * 1024 * 1024

// mbrSize matches the write engine's fixed MBR region size.
const mbrSize = 512

// progressInterval mirrors the write engine's 200ms cadence.
const progressInterval = 200 * time.Millisecond

// RandomAccessDevice is a read-only, offset-addressable handle to the
// written device — the read-side counterpart of writeengine.RawDevice.
type RandomAccessDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// DeviceReader opens a device for random-access verification reads.
type DeviceReader interface {
	OpenRandomAccess(ctx context.Context, devicePath string) (RandomAccessDevice, error)
}

// ErrHashMismatch is wrapped into the returned error when the
// recomputed hash does not match the expected one.
var ErrHashMismatch = fmt.Errorf("verification hash mismatch")

// ErrFirstSectorChanged is returned when the first sector, re-read at
// the end of verification, no longer matches what was read at the
// start — a sign something else touched the device mid-verify.
var ErrFirstSectorChanged = fmt.Errorf("first sector changed during verification")

// Verifier re-hashes a device and compares it against a known-good
// hash. Per spec §4.5, the first sector is read once at the start of
// the pass to seed the hash in its correct logical position, then
// read again at the very end and compared byte-for-byte against that
// snapshot — the same "handle the boundary sector specially, confirm
// it last" discipline the write engine applies when it defers the
// MBR write itself. This keeps the resulting hash identical to the
// write engine's own sequential hash while still catching a device
// that changed under us mid-verification.
type Verifier struct {
	Reader DeviceReader
}

// NewVerifier constructs a Verifier over the given device reader.
func NewVerifier(reader DeviceReader) *Verifier {
	return &Verifier{Reader: reader}
}

// Verify implements helper.Dispatcher's Verify method: args are
// [sourcePath, devicePath, expectedHashHex]. sourcePath is stat'd only
// to learn how many bytes to read back; its contents are not re-read.
func (v *Verifier) Verify(ctx context.Context, args []string, report helper.ProgressReporter) error {
	if len(args) != 3 {
		return fmt.Errorf("verify: expected 3 arguments, got %d", len(args))
	}
	sourcePath, devicePath, expectedHex := args[0], args[1], args[2]

	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return fmt.Errorf("verify: malformed expected hash %q: %w", expectedHex, err)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("verify: stat source %s: %w", sourcePath, err)
	}
	totalBytes := info.Size()

	device, err := v.Reader.OpenRandomAccess(ctx, devicePath)
	if err != nil {
		return fmt.Errorf("verify: open device %s: %w", devicePath, err)
	}
	defer device.Close()

	got, err := hashWithFirstSectorRecheck(ctx, device, totalBytes, report)
	if err != nil {
		return err
	}

	if !bytes.Equal(got, expected) {
		return fmt.Errorf("%w: device %s, hash %x, want %x", ErrHashMismatch, devicePath, got, expected)
	}
	return nil
}

// VerifyAgainstOperation lets a same-session VERIFY consult the write
// engine's own bookkeeping (spec §4.5: comparison against
// m_source_hash) instead of re-deriving the expected hash from the
// wire.
func (v *Verifier) VerifyAgainstOperation(ctx context.Context, op *types.WriteOperation, report helper.ProgressReporter) error {
	if op == nil {
		return fmt.Errorf("verify: no prior write operation to verify against")
	}
	return v.Verify(ctx, []string{op.SourcePath, op.DevicePath, hex.EncodeToString(op.SourceHash)}, report)
}

func hashWithFirstSectorRecheck(ctx context.Context, device RandomAccessDevice, totalBytes int64, report helper.ProgressReporter) ([]byte, error) {
	hash := sha256.New()
	buf := make([]byte, chunkSize)
	firstSector := make([]byte, mbrSize)
	var read int64
	lastReport := time.Time{}

	for read < totalBytes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		want := int64(len(buf))
		if remaining := totalBytes - read; remaining < want {
			want = remaining
		}
		n, err := device.ReadAt(buf[:want], read)
		if n > 0 {
			hash.Write(buf[:n])
			if read == 0 {
				copy(firstSector, buf[:min(n, mbrSize)])
			}
			read += int64(n)
			if time.Since(lastReport) >= progressInterval || read == totalBytes {
				report(types.ProgressVerify, read, totalBytes)
				lastReport = time.Now()
			}
		}
		if err != nil && int64(n) < want {
			return nil, fmt.Errorf("verify: read device at offset %d: %w", read-int64(n), err)
		}
	}

	recheck := make([]byte, mbrSize)
	if _, err := device.ReadAt(recheck, 0); err != nil {
		return nil, fmt.Errorf("verify: re-read first sector: %w", err)
	}
	if !bytes.Equal(recheck, firstSector) {
		return nil, ErrFirstSectorChanged
	}

	return hash.Sum(nil), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
