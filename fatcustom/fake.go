package fatcustom

import (
	"context"
	"sync"
)

// FakeFilesystem is an in-memory Filesystem, standing in for a real FAT
// driver in tests: the driver itself is an external collaborator spec.md
// §4.4 leaves unspecified, so nothing in this package depends on a
// concrete FAT implementation.
type FakeFilesystem struct {
	mu     sync.Mutex
	Files  map[string][]byte
	Closed bool
	Synced int
}

// NewFakeFilesystem returns an empty in-memory filesystem, optionally
// seeded with existing boot-partition files.
func NewFakeFilesystem(seed map[string][]byte) *FakeFilesystem {
	files := make(map[string][]byte, len(seed))
	for name, data := range seed {
		files[name] = append([]byte(nil), data...)
	}
	return &FakeFilesystem{Files: files}
}

func (f *FakeFilesystem) ReadFile(name string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Files[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (f *FakeFilesystem) WriteFile(name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[name] = append([]byte(nil), data...)
	return nil
}

func (f *FakeFilesystem) Exists(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Files[name]
	return ok, nil
}

func (f *FakeFilesystem) Sync() error { f.Synced++; return nil }
func (f *FakeFilesystem) Close() error { f.Closed = true; return nil }

// FakeFilesystemOpener always returns the same FakeFilesystem, recording
// the drive letter it was asked to open.
type FakeFilesystemOpener struct {
	FS           *FakeFilesystem
	OpenedDrives []string
	OpenErr      error
}

// NewFakeFilesystemOpener returns an opener backed by fs.
func NewFakeFilesystemOpener(fs *FakeFilesystem) *FakeFilesystemOpener {
	return &FakeFilesystemOpener{FS: fs}
}

func (o *FakeFilesystemOpener) Open(ctx context.Context, drive string) (Filesystem, error) {
	o.OpenedDrives = append(o.OpenedDrives, drive)
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	return o.FS, nil
}
