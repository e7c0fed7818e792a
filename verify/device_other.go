//go:build !windows

package verify

import (
	"context"
	"errors"
)

// ErrUnsupportedPlatform mirrors writeengine's sentinel: raw device
// verification is only meaningful on the Windows target platform.
var ErrUnsupportedPlatform = errors.New("device verification is only supported on windows")

type unsupportedDeviceReader struct{}

// NewDeviceReader returns the non-Windows stub.
func NewDeviceReader() DeviceReader { return unsupportedDeviceReader{} }

func (unsupportedDeviceReader) OpenRandomAccess(ctx context.Context, devicePath string) (RandomAccessDevice, error) {
	return nil, ErrUnsupportedPlatform
}
