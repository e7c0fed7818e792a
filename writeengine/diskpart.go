// Package writeengine implements the raw block-device write pipeline:
// offlining and cleaning the target disk, streaming the source image to
// it with SHA-256 absorption, writing the MBR last, and reassigning
// drive letters afterward.
package writeengine

import "context"

// Diskpart isolates the partition-table side effects the write engine
// needs but does not implement itself, behind a small interface — the
// "mock the diskpart-equivalent" boundary spec.md's Design Notes call
// for. Windows builds back it with an out-of-process `diskpart.exe /s`
// invocation; tests use a fake that just records calls.
type Diskpart interface {
	// PrepareDisk takes driveNumber offline and clears its partition
	// table so the physical drive can be opened for raw access.
	PrepareDisk(ctx context.Context, driveNumber int) error
	// RescanAndAssign rescans the disk and assigns drive letters to
	// partitions 1 and 2 if present, run once the raw write has completed
	// and the device handle has been closed.
	RescanAndAssign(ctx context.Context, driveNumber int) error
}
