//go:build windows

package writeengine

import (
	"context"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	fsctlLockVolume            = 0x90018
	fsctlDismountVolume        = 0x90020
	fsctlUnlockVolume          = 0x9001c
	fsctlAllowExtendedDasdIo   = 0x90083
	ioctlDiskGetDriveGeometry  = 0x70000
	fileFlagWriteThrough       = 0x80000000
	fileFlagNoBuffering        = 0x20000000

	// lockRetryDelay is the pause before retrying a failed volume lock;
	// spec.md §4.3 treats a lock failure as logged, not fatal, even
	// after the retry is exhausted.
	lockRetryDelay = 2 * time.Second
)

var (
	kernel32         = windows.NewLazySystemDLL("kernel32.dll")
	procDeviceIoCtrl = kernel32.NewProc("DeviceIoControl")
)

// openStrategy is one (shareMode, flags) combination tried in sequence
// against CreateFile, per spec.md §4.3 step 3.
type openStrategy struct {
	shareMode uint32
	flags     uint32
}

// physicalOpenStrategies backs a `\\.\PhysicalDriveN` open: three
// attempts, shared read/write unbuffered first, then exclusive
// unbuffered, then exclusive with default attributes.
var physicalOpenStrategies = []openStrategy{
	{shareMode: windows.FILE_SHARE_READ | windows.FILE_SHARE_WRITE, flags: fileFlagNoBuffering | fileFlagWriteThrough},
	{shareMode: 0, flags: fileFlagNoBuffering | fileFlagWriteThrough},
	{shareMode: 0, flags: windows.FILE_ATTRIBUTE_NORMAL},
}

// volumeOpenStrategies backs a `\\.\A:` open: spec.md §4.3's "volume
// path variant" tries only two attempts, write-through first.
var volumeOpenStrategies = []openStrategy{
	{shareMode: 0, flags: fileFlagWriteThrough},
	{shareMode: 0, flags: fileFlagNoBuffering | fileFlagWriteThrough},
}

func deviceIoControl(h windows.Handle, code uint32) error {
	var bytesReturned uint32
	r1, _, lastErr := procDeviceIoCtrl.Call(
		uintptr(h), uintptr(code), 0, 0, 0, 0,
		uintptr(unsafe.Pointer(&bytesReturned)), 0,
	)
	if r1 == 0 {
		return lastErr
	}
	return nil
}

// diskGeometry mirrors the fixed-size prefix of Windows' DISK_GEOMETRY
// struct that IOCTL_DISK_GET_DRIVE_GEOMETRY fills in; only BytesPerSector
// is consulted.
type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

// querySectorSize issues IOCTL_DISK_GET_DRIVE_GEOMETRY on h and returns
// the reported bytes-per-sector, or 0 if the query fails.
func querySectorSize(h windows.Handle) int {
	var geom diskGeometry
	var bytesReturned uint32
	r1, _, _ := procDeviceIoCtrl.Call(
		uintptr(h), uintptr(ioctlDiskGetDriveGeometry), 0, 0,
		uintptr(unsafe.Pointer(&geom)), unsafe.Sizeof(geom),
		uintptr(unsafe.Pointer(&bytesReturned)), 0,
	)
	if r1 == 0 || geom.BytesPerSector == 0 {
		return 0
	}
	return int(geom.BytesPerSector)
}

// windowsOpener implements DeviceOpener with the DASD lock/dismount
// sequence and a retried exclusive CreateFile, grounded on the
// prepareWindowsDevice/openWindowsDevice pattern used for raw FAT
// device access on Windows.
type windowsOpener struct{}

// NewDeviceOpener returns the Windows raw-device opener.
func NewDeviceOpener() DeviceOpener { return windowsOpener{} }

func (windowsOpener) Open(ctx context.Context, devicePath string) (RawDevice, error) {
	// The DASD/lock/dismount sequence in spec.md §4.3 step 4 sits under
	// the "physical drive only" pre-write heading; the volume-path
	// variant only gets the plain exclusive open.
	_, isPhysical := parseDriveNumber(devicePath)
	strategies := volumeOpenStrategies
	attempts := 2
	if isPhysical {
		strategies = physicalOpenStrategies
		attempts = openAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		file, err := openExclusive(devicePath, attempt, strategies)
		if err == nil {
			handle := windows.Handle(file.Fd())
			locked := false
			if isPhysical {
				deviceIoControl(handle, fsctlAllowExtendedDasdIo)
				locked = lockVolumeWithRetry(handle) == nil
				if err := deviceIoControl(handle, fsctlDismountVolume); err != nil && err != windows.ERROR_NOT_SUPPORTED && err != windows.ERROR_NOT_LOCKED {
					deviceIoControl(handle, fsctlUnlockVolume)
					locked = false
				}
			}
			return &windowsRawDevice{file: file, locked: locked, sectorSize: querySectorSize(handle)}, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(openBackoff) * time.Second):
		}
	}
	return nil, fmt.Errorf("open device %s after %d attempts: %w", devicePath, attempts, lastErr)
}

// lockVolumeWithRetry attempts FSCTL_LOCK_VOLUME once, then once more
// after lockRetryDelay if the first attempt failed for a reason other
// than the ioctl simply not being supported on this device.
func lockVolumeWithRetry(h windows.Handle) error {
	err := deviceIoControl(h, fsctlLockVolume)
	if err == nil || err == windows.ERROR_NOT_SUPPORTED {
		return nil
	}
	time.Sleep(lockRetryDelay)
	if err := deviceIoControl(h, fsctlLockVolume); err == nil || err == windows.ERROR_NOT_SUPPORTED {
		return nil
	}
	return err
}

// openExclusive tries CreateFile with the strategy at index attempt
// (spec.md §4.3 step 3); for a physical drive that is shared read/write
// unbuffered first, then exclusive unbuffered, then exclusive with
// default attributes.
func openExclusive(devicePath string, attempt int, strategies []openStrategy) (*os.File, error) {
	strategy := strategies[attempt%len(strategies)]
	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(devicePath),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		strategy.shareMode,
		nil,
		windows.OPEN_EXISTING,
		strategy.flags,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devicePath, err)
	}
	return os.NewFile(uintptr(handle), devicePath), nil
}

type windowsRawDevice struct {
	file       *os.File
	locked     bool
	sectorSize int
}

func (d *windowsRawDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.file.WriteAt(p, off)
}

func (d *windowsRawDevice) SectorSize() int { return d.sectorSize }

func (d *windowsRawDevice) Sync() error { return d.file.Sync() }

func (d *windowsRawDevice) Close() error {
	if d.locked {
		deviceIoControl(windows.Handle(d.file.Fd()), fsctlUnlockVolume)
	}
	return d.file.Close()
}
