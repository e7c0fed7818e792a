package fatcustom

import (
	"context"
	"errors"
)

// ErrUnsupportedPlatform is returned by the real FilesystemOpener until a
// FAT12/16/32 driver library is wired in; mirrors writeengine's
// unsupportedOpener/unsupportedDiskpart stance on the same gap.
var ErrUnsupportedPlatform = errors.New("fatcustom: no FAT filesystem driver wired in")

type unsupportedOpener struct{}

// NewFilesystemOpener returns the production FilesystemOpener. It always
// fails until a real FAT driver is wired in; FakeFilesystemOpener stands
// in for tests and for exercising the Customize logic above this
// boundary.
func NewFilesystemOpener() FilesystemOpener { return unsupportedOpener{} }

func (unsupportedOpener) Open(ctx context.Context, drive string) (Filesystem, error) {
	return nil, ErrUnsupportedPlatform
}
