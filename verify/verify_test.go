package verify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rpi-imager-diskwriter/types"
)

// fakeRandomAccessDevice is an in-memory RandomAccessDevice backed by a
// byte slice, with an optional hook to mutate the backing bytes right
// before the final first-sector recheck read.
type fakeRandomAccessDevice struct {
	data       []byte
	closed     bool
	beforeLast func(data []byte)
	reads      int
}

func (d *fakeRandomAccessDevice) ReadAt(p []byte, off int64) (int, error) {
	d.reads++
	if off == 0 && d.reads > 1 && d.beforeLast != nil {
		d.beforeLast(d.data)
	}
	if off >= int64(len(d.data)) {
		return 0, nil
	}
	n := copy(p, d.data[off:])
	return n, nil
}

func (d *fakeRandomAccessDevice) Close() error { d.closed = true; return nil }

type fakeDeviceReader struct {
	device *fakeRandomAccessDevice
	err    error
	opened []string
}

func (r *fakeDeviceReader) OpenRandomAccess(ctx context.Context, devicePath string) (RandomAccessDevice, error) {
	r.opened = append(r.opened, devicePath)
	if r.err != nil {
		return nil, r.err
	}
	return r.device, nil
}

func writeTempSource(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.img")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp source: %v", err)
	}
	return path
}

func TestVerifier_Verify_Success(t *testing.T) {
	data := bytes.Repeat([]byte{0x5A}, 3*chunkSize+321)
	sourcePath := writeTempSource(t, data)

	device := &fakeRandomAccessDevice{data: data}
	reader := &fakeDeviceReader{device: device}
	verifier := NewVerifier(reader)

	want := sha256.Sum256(data)

	var progress []int64
	err := verifier.Verify(context.Background(), []string{sourcePath, `\\.\PhysicalDrive2`, hex.EncodeToString(want[:])}, func(kind types.ProgressKind, now, total int64) {
		if kind != types.ProgressVerify {
			t.Errorf("progress kind = %v, want ProgressVerify", kind)
		}
		progress = append(progress, now)
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !device.closed {
		t.Error("device was not closed after verification")
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("progress went backwards: %d then %d", progress[i-1], progress[i])
		}
	}
	if len(progress) == 0 || progress[len(progress)-1] != int64(len(data)) {
		t.Errorf("final progress = %v, want last entry %d", progress, len(data))
	}
}

func TestVerifier_Verify_HashMismatch(t *testing.T) {
	data := bytes.Repeat([]byte{0x11}, 4096)
	sourcePath := writeTempSource(t, data)

	corrupt := bytes.Clone(data)
	corrupt[10] ^= 0xFF
	device := &fakeRandomAccessDevice{data: corrupt}
	reader := &fakeDeviceReader{device: device}
	verifier := NewVerifier(reader)

	want := sha256.Sum256(data)
	err := verifier.Verify(context.Background(), []string{sourcePath, `\\.\PhysicalDrive2`, hex.EncodeToString(want[:])}, func(types.ProgressKind, int64, int64) {})
	if !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("err = %v, want ErrHashMismatch", err)
	}
}

func TestVerifier_Verify_FirstSectorChangedMidVerify(t *testing.T) {
	data := bytes.Repeat([]byte{0x22}, 2*chunkSize)
	sourcePath := writeTempSource(t, data)

	device := &fakeRandomAccessDevice{
		data: bytes.Clone(data),
		beforeLast: func(buf []byte) {
			buf[0] ^= 0xFF
		},
	}
	reader := &fakeDeviceReader{device: device}
	verifier := NewVerifier(reader)

	want := sha256.Sum256(data)
	err := verifier.Verify(context.Background(), []string{sourcePath, `\\.\PhysicalDrive2`, hex.EncodeToString(want[:])}, func(types.ProgressKind, int64, int64) {})
	if !errors.Is(err, ErrFirstSectorChanged) {
		t.Fatalf("err = %v, want ErrFirstSectorChanged", err)
	}
}

func TestVerifier_Verify_MalformedExpectedHash(t *testing.T) {
	sourcePath := writeTempSource(t, []byte("small"))
	verifier := NewVerifier(&fakeDeviceReader{device: &fakeRandomAccessDevice{}})

	err := verifier.Verify(context.Background(), []string{sourcePath, `\\.\PhysicalDrive2`, "not-hex"}, func(types.ProgressKind, int64, int64) {})
	if err == nil {
		t.Fatal("expected an error for a malformed expected hash")
	}
}

func TestVerifier_VerifyAgainstOperation(t *testing.T) {
	data := bytes.Repeat([]byte{0x33}, 1500)
	sourcePath := writeTempSource(t, data)
	sum := sha256.Sum256(data)

	device := &fakeRandomAccessDevice{data: data}
	reader := &fakeDeviceReader{device: device}
	verifier := NewVerifier(reader)

	op := &types.WriteOperation{
		SourcePath: sourcePath,
		DevicePath: `\\.\PhysicalDrive5`,
		SourceHash: sum[:],
	}

	if err := verifier.VerifyAgainstOperation(context.Background(), op, func(types.ProgressKind, int64, int64) {}); err != nil {
		t.Fatalf("VerifyAgainstOperation failed: %v", err)
	}
	if len(reader.opened) != 1 || reader.opened[0] != op.DevicePath {
		t.Errorf("opened = %v, want [%s]", reader.opened, op.DevicePath)
	}
}

func TestVerifier_VerifyAgainstOperation_NilOperation(t *testing.T) {
	verifier := NewVerifier(&fakeDeviceReader{device: &fakeRandomAccessDevice{}})
	if err := verifier.VerifyAgainstOperation(context.Background(), nil, func(types.ProgressKind, int64, int64) {}); err == nil {
		t.Fatal("expected an error when no prior write operation exists")
	}
}
