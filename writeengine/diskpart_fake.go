package writeengine

import (
	"context"
	"sync"
)

// FakeDiskpart records calls instead of touching any real disk, for
// engine tests.
type FakeDiskpart struct {
	mu       sync.Mutex
	Prepared []int
	Rescans  []int

	PrepareErr error
	RescanErr  error
}

func (f *FakeDiskpart) PrepareDisk(ctx context.Context, driveNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prepared = append(f.Prepared, driveNumber)
	return f.PrepareErr
}

func (f *FakeDiskpart) RescanAndAssign(ctx context.Context, driveNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rescans = append(f.Rescans, driveNumber)
	return f.RescanErr
}
