//go:build !windows

package writeengine

import (
	"context"
	"errors"
)

// ErrUnsupportedPlatform is returned by the non-Windows write path
// stubs. The write engine is Windows-only per spec §1 Non-goals; these
// stubs exist only so the package cross-compiles and its pure-Go logic
// (hashing, sector padding, progress cadence) stays unit-testable.
var ErrUnsupportedPlatform = errors.New("raw device writes are only supported on windows")

type unsupportedDiskpart struct{}

// NewDiskpart returns a Diskpart that always fails, on non-Windows GOOS.
func NewDiskpart() Diskpart { return unsupportedDiskpart{} }

func (unsupportedDiskpart) PrepareDisk(ctx context.Context, driveNumber int) error {
	return ErrUnsupportedPlatform
}

func (unsupportedDiskpart) RescanAndAssign(ctx context.Context, driveNumber int) error {
	return ErrUnsupportedPlatform
}
