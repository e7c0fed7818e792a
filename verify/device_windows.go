//go:build windows

package verify

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// windowsDeviceReader opens the device for read-only random access with
// a CreateFile that shares read and write access, without the DASD
// lock/dismount sequence the write engine uses for writing:
// by the time VERIFY runs, writeengine has already unlocked and
// remounted the volume.
type windowsDeviceReader struct{}

// NewDeviceReader returns the Windows random-access device reader.
func NewDeviceReader() DeviceReader { return windowsDeviceReader{} }

func (windowsDeviceReader) OpenRandomAccess(ctx context.Context, devicePath string) (RandomAccessDevice, error) {
	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(devicePath),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0, 0,
	)
	if err != nil {
		return nil, fmt.Errorf("open device %s for verification: %w", devicePath, err)
	}
	return &windowsRandomAccessDevice{file: os.NewFile(uintptr(handle), devicePath)}, nil
}

type windowsRandomAccessDevice struct {
	file *os.File
}

func (d *windowsRandomAccessDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.file.ReadAt(p, off)
}

func (d *windowsRandomAccessDevice) Close() error {
	return d.file.Close()
}
