// Package fatcustom implements the CUSTOMIZE command: patching config.txt,
// cmdline.txt, and the init-format-specific first-boot files on a FAT boot
// partition, against an external FAT-filesystem collaborator this package
// only depends on through a narrow interface.
package fatcustom

import "context"

// Filesystem is the external collaborator boundary spec.md §4.4 leaves
// unspecified: a FAT1-rooted view of a boot partition, opened by drive
// letter, with the handful of file operations the customiser needs.
// Real implementations wrap a third-party FAT library; tests use an
// in-memory fake.
type Filesystem interface {
	// ReadFile returns a file's contents, or ok=false if it does not
	// exist.
	ReadFile(name string) (data []byte, ok bool, err error)
	// WriteFile creates or overwrites a file's contents.
	WriteFile(name string, data []byte) error
	// Exists reports whether a file is present at the FAT root.
	Exists(name string) (bool, error)
	// Sync flushes pending writes before the filesystem is closed.
	Sync() error
	// Close releases the underlying device handle.
	Close() error
}

// FilesystemOpener opens a drive letter as a FAT filesystem.
type FilesystemOpener interface {
	Open(ctx context.Context, drive string) (Filesystem, error)
}
