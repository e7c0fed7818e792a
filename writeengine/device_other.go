//go:build !windows

package writeengine

import "context"

type unsupportedOpener struct{}

// NewDeviceOpener returns a DeviceOpener that always fails, on
// non-Windows GOOS.
func NewDeviceOpener() DeviceOpener { return unsupportedOpener{} }

func (unsupportedOpener) Open(ctx context.Context, devicePath string) (RawDevice, error) {
	return nil, ErrUnsupportedPlatform
}
