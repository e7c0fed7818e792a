package writeengine

import (
	"bytes"
	"context"
	"errors"
	"sync"
)

var errWriteFailed = errors.New("fake device: write failed")

// FakeRawDevice is an in-memory RawDevice standing in for a physical
// drive in tests: WriteAt grows a backing buffer as needed and records
// every write for assertions (MBR-last ordering, sector padding).
type FakeRawDevice struct {
	mu     sync.Mutex
	buf    []byte
	Writes []FakeWrite
	Closed bool
	Synced int

	// SectorSizeVal is returned by SectorSize; 0 defaults to 512, matching
	// a typical fixed-media device.
	SectorSizeVal int
	// FailWritesN makes the next N WriteAt calls fail before writes start
	// succeeding, so tests can exercise the body-write retry path.
	FailWritesN int
	WriteErr    error
}

// FakeWrite records one WriteAt call in order.
type FakeWrite struct {
	Offset int64
	Data   []byte
}

func (d *FakeRawDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailWritesN > 0 {
		d.FailWritesN--
		err := d.WriteErr
		if err == nil {
			err = errWriteFailed
		}
		return 0, err
	}
	end := off + int64(len(p))
	if end > int64(len(d.buf)) {
		grown := make([]byte, end)
		copy(grown, d.buf)
		d.buf = grown
	}
	copy(d.buf[off:end], p)
	cp := make([]byte, len(p))
	copy(cp, p)
	d.Writes = append(d.Writes, FakeWrite{Offset: off, Data: cp})
	return len(p), nil
}

func (d *FakeRawDevice) SectorSize() int {
	if d.SectorSizeVal != 0 {
		return d.SectorSizeVal
	}
	return 512
}

func (d *FakeRawDevice) Sync() error  { d.Synced++; return nil }
func (d *FakeRawDevice) Close() error { d.Closed = true; return nil }

// Bytes returns a copy of everything written so far, in final form
// (later writes at overlapping offsets win, as on a real device).
func (d *FakeRawDevice) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return bytes.Clone(d.buf)
}

// FakeDeviceOpener always returns the same FakeRawDevice, recording the
// device path it was asked to open.
type FakeDeviceOpener struct {
	Device      *FakeRawDevice
	OpenedPaths []string
	OpenErr     error
}

// NewFakeDeviceOpener returns an opener backed by a fresh FakeRawDevice.
func NewFakeDeviceOpener() *FakeDeviceOpener {
	return &FakeDeviceOpener{Device: &FakeRawDevice{}}
}

func (o *FakeDeviceOpener) Open(ctx context.Context, devicePath string) (RawDevice, error) {
	o.OpenedPaths = append(o.OpenedPaths, devicePath)
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	return o.Device, nil
}
