package writeengine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"rpi-imager-diskwriter/helper"
	"rpi-imager-diskwriter/types"
)

// mbrSize is the fixed size of the MBR region captured from the start
// of the source and written last; it is a property of the MBR itself,
// independent of the device's actual sector size.
const mbrSize = 512

// defaultSectorSize is used to pad and align writes when the device's
// sector size cannot be queried (spec §4.3: "query OS sector size,
// default 4096 if unavailable").
const defaultSectorSize = 4096

// chunkSize is the streaming read/write unit. Matches spec §4.3's "read
// up to 10 MiB into a buffer."
const chunkSize = 10 * 1024 * 1024

// mbrRetries and mbrRetryDelay bound the MBR-last finalization write:
// per spec §4.3, the first sector is written last, after the rest of
// the device, and retried if the device is still momentarily busy.
const (
	mbrRetries    = 3
	mbrRetryDelay = 500 * time.Millisecond
)

// bodyWriteRetryDelay bounds the single retry the streaming body loop
// takes after a failed WriteAt, per spec §4.3: "on failure, wait 1s
// and retry once before marking the operation failed."
const bodyWriteRetryDelay = 1 * time.Second

// postCloseDelay is the pause after closing the write handle and
// before issuing the disk-rescan equivalent, per spec §4.3's
// post-write sequence ("wait ~2s").
const postCloseDelay = 2 * time.Second

// progressInterval throttles WRITE/VERIFY progress reporting so a fast
// device doesn't flood the pipe (spec §4.3's 200ms cadence).
const progressInterval = 200 * time.Millisecond

var physicalDriveRe = regexp.MustCompile(`(?i)^\\\\\.\\PhysicalDrive(\d+)$`)

// parseDriveNumber extracts the disk number from a `\\.\PhysicalDriveN`
// path. The volume-path variant (`\\.\A:`) has no disk number to give
// diskpart; it is opened without diskpart preparation and without the
// lock/dismount sequence (see DeviceOpener).
func parseDriveNumber(devicePath string) (int, bool) {
	m := physicalDriveRe.FindStringSubmatch(devicePath)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Engine drives one WRITE command's pipeline end to end.
type Engine struct {
	Diskpart Diskpart
	Opener   DeviceOpener

	// SourceOpen defaults to os.Open; overridable in tests.
	SourceOpen func(path string) (*os.File, error)

	mu     sync.Mutex
	lastOp *types.WriteOperation
}

// NewEngine constructs a write engine over the given collaborators.
func NewEngine(diskpart Diskpart, opener DeviceOpener) *Engine {
	return &Engine{Diskpart: diskpart, Opener: opener, SourceOpen: os.Open}
}

// LastOperation returns the most recently completed write's
// bookkeeping, consulted by VERIFY when it runs in the same session
// (nil if no WRITE has completed yet).
func (e *Engine) LastOperation() *types.WriteOperation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOp
}

// Write implements helper.Dispatcher's Write method: args are
// [sourcePath, devicePath].
func (e *Engine) Write(ctx context.Context, args []string, report helper.ProgressReporter) error {
	if len(args) != 2 {
		return fmt.Errorf("write: expected 2 arguments, got %d", len(args))
	}
	sourcePath, devicePath := args[0], args[1]

	src, err := e.SourceOpen(sourcePath)
	if err != nil {
		return fmt.Errorf("open source %s: %w", sourcePath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat source %s: %w", sourcePath, err)
	}
	totalBytes := info.Size()

	driveNumber, isPhysical := parseDriveNumber(devicePath)
	if isPhysical {
		if err := e.Diskpart.PrepareDisk(ctx, driveNumber); err != nil {
			return fmt.Errorf("prepare disk %d: %w", driveNumber, err)
		}
	}

	device, err := e.Opener.Open(ctx, devicePath)
	if err != nil {
		return fmt.Errorf("open device %s: %w", devicePath, err)
	}

	alignSize := device.SectorSize()
	if alignSize <= 0 {
		alignSize = defaultSectorSize
	}

	op := &types.WriteOperation{
		SourcePath:      sourcePath,
		DevicePath:      devicePath,
		TotalBytes:      totalBytes,
		IsPhysicalDrive: isPhysical,
		DriveNumber:     driveNumber,
	}

	hash := sha256.New()
	mbrBuf := make([]byte, mbrSize)
	buf := make([]byte, chunkSize)
	var offset int64
	lastReport := time.Time{}

	report(types.ProgressWrite, 0, totalBytes)

	for {
		select {
		case <-ctx.Done():
			device.Close()
			return ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			hash.Write(chunk)

			// Buffer whatever portion of this chunk falls within the
			// first sector; it is written last, not now. Whatever
			// falls past the first sector is written immediately at
			// its absolute offset.
			chunkStart := offset
			bufferLen := int64(0)
			if chunkStart < mbrSize {
				bufferLen = mbrSize - chunkStart
				if bufferLen > int64(n) {
					bufferLen = int64(n)
				}
				copy(mbrBuf[chunkStart:chunkStart+bufferLen], chunk[:bufferLen])
			}
			if remainder := chunk[bufferLen:]; len(remainder) > 0 {
				writeOff := chunkStart + bufferLen
				if err := writeBodyWithRetry(device, padToSector(remainder, alignSize), writeOff); err != nil {
					device.Close()
					return fmt.Errorf("write device %s at offset %d: %w", devicePath, writeOff, err)
				}
			}

			offset += int64(n)
			op.BytesWritten = offset

			if time.Since(lastReport) >= progressInterval || offset == totalBytes {
				report(types.ProgressWrite, offset, totalBytes)
				lastReport = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			device.Close()
			return fmt.Errorf("read source %s: %w", sourcePath, readErr)
		}
	}

	op.MBRBuffer = mbrBuf
	op.SourceHash = hash.Sum(nil)

	if err := writeMBRWithRetries(device, padToSector(mbrBuf, alignSize)); err != nil {
		device.Close()
		return err
	}

	if err := device.Sync(); err != nil {
		device.Close()
		return fmt.Errorf("flush device %s: %w", devicePath, err)
	}
	if err := device.Close(); err != nil {
		return fmt.Errorf("close device %s: %w", devicePath, err)
	}
	time.Sleep(postCloseDelay)

	if isPhysical {
		if err := e.Diskpart.RescanAndAssign(ctx, driveNumber); err != nil {
			return fmt.Errorf("rescan disk %d: %w", driveNumber, err)
		}
	}

	report(types.ProgressWrite, totalBytes, totalBytes)

	e.mu.Lock()
	e.lastOp = op
	e.mu.Unlock()
	return nil
}

func writeMBRWithRetries(device RawDevice, mbr []byte) error {
	var lastErr error
	for attempt := 0; attempt < mbrRetries; attempt++ {
		if _, err := device.WriteAt(mbr, 0); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(mbrRetryDelay)
	}
	return fmt.Errorf("write MBR after %d attempts: %w", mbrRetries, lastErr)
}

// writeBodyWithRetry issues one WriteAt for a streaming body chunk,
// retrying exactly once after bodyWriteRetryDelay on failure (spec §4.3).
func writeBodyWithRetry(device RawDevice, p []byte, off int64) error {
	if _, err := device.WriteAt(p, off); err == nil {
		return nil
	}
	time.Sleep(bodyWriteRetryDelay)
	_, err := device.WriteAt(p, off)
	return err
}

func padToSector(chunk []byte, sectorSize int) []byte {
	rem := len(chunk) % sectorSize
	if rem == 0 {
		return chunk
	}
	padded := make([]byte, len(chunk)+(sectorSize-rem))
	copy(padded, chunk)
	return padded
}
