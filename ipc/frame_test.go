package ipc

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"rpi-imager-diskwriter/types"
)

func TestStringFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, NewStringFrame(types.HandshakeHello)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	decoder := NewFrameDecoder(&buf)
	payload, err := decoder.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	f, err := DecodeStringFrame(payload)
	if err != nil {
		t.Fatalf("DecodeStringFrame failed: %v", err)
	}
	if f.Value != types.HandshakeHello {
		t.Errorf("Value = %q, want %q", f.Value, types.HandshakeHello)
	}
}

func TestProgressFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, NewProgressFrame(types.ProgressWrite, 512, 1024)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	decoder := NewFrameDecoder(&buf)
	payload, err := decoder.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	f, err := DecodeProgressFrame(payload)
	if err != nil {
		t.Fatalf("DecodeProgressFrame failed: %v", err)
	}
	if f.Kind != types.ProgressWrite || f.Now != 512 || f.Total != 1024 {
		t.Errorf("got (%v, %d, %d), want (%v, 512, 1024)", f.Kind, f.Now, f.Total, types.ProgressWrite)
	}
}

func TestDecode_Discriminates(t *testing.T) {
	strBuf, _ := Encode(NewStringFrame("SUCCESS"))
	progBuf, _ := Encode(NewProgressFrame(types.ProgressVerify, 0, 100))

	strPayload := strBuf[LengthPrefixSize:]
	progPayload := progBuf[LengthPrefixSize:]

	got, err := Decode(strPayload)
	if err != nil {
		t.Fatalf("Decode(string) failed: %v", err)
	}
	if _, ok := got.(*StringFrame); !ok {
		t.Errorf("Decode(string) = %T, want *StringFrame", got)
	}

	got, err = Decode(progPayload)
	if err != nil {
		t.Fatalf("Decode(progress) failed: %v", err)
	}
	if _, ok := got.(*ProgressFrame); !ok {
		t.Errorf("Decode(progress) = %T, want *ProgressFrame", got)
	}
}

func TestFrameDecoder_EOF(t *testing.T) {
	decoder := NewFrameDecoder(bytes.NewReader(nil))
	if _, err := decoder.ReadFrame(); err != io.EOF {
		t.Errorf("ReadFrame on empty stream = %v, want io.EOF", err)
	}
}

func TestFrameDecoder_PartialLengthPrefix(t *testing.T) {
	decoder := NewFrameDecoder(bytes.NewReader([]byte{0x00, 0x01}))
	_, err := decoder.ReadFrame()
	if !IsFatalFrameError(err) {
		t.Fatalf("ReadFrame on truncated prefix = %v, want fatal FrameError", err)
	}
}

func TestFrameDecoder_PartialPayload(t *testing.T) {
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], 100)
	decoder := NewFrameDecoder(bytes.NewReader(append(lengthBuf[:], []byte("short")...)))
	_, err := decoder.ReadFrame()
	if !IsFatalFrameError(err) {
		t.Fatalf("ReadFrame on truncated payload = %v, want fatal FrameError", err)
	}
}

func TestFrameDecoder_TooLarge(t *testing.T) {
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], MaxPayloadSize+1)
	decoder := NewFrameDecoder(bytes.NewReader(lengthBuf[:]))
	_, err := decoder.ReadFrame()
	if !IsFatalFrameError(err) {
		t.Fatalf("ReadFrame over max size = %v, want fatal FrameError", err)
	}
	var fe *FrameError
	if ok := AsFrameError(err, &fe); !ok || fe.Kind != FrameErrorTooLarge {
		t.Errorf("expected FrameErrorTooLarge, got %+v", fe)
	}
}

func TestEncode_RejectsOversizedPayload(t *testing.T) {
	huge := make([]byte, MaxPayloadSize+16)
	_, err := Encode(NewStringFrame(string(huge)))
	if !IsFatalFrameError(err) {
		t.Fatalf("Encode of oversized payload = %v, want fatal FrameError", err)
	}
}

// AsFrameError is a small errors.As wrapper kept local to the test file so
// the assertions above read naturally without importing errors twice.
func AsFrameError(err error, target **FrameError) bool {
	for err != nil {
		if fe, ok := err.(*FrameError); ok {
			*target = fe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
