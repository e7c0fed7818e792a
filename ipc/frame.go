// Package ipc implements the length-prefixed msgpack framing shared by
// the session client and the helper daemon.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"rpi-imager-diskwriter/types"
)

// Frame size constants. A single physical drive write never needs a
// payload anywhere near this large — frames carry only handshake tokens,
// command text, progress tuples and completion status.
const (
	// MaxFrameSize is the maximum frame size (1 MiB), including the
	// length prefix. CUSTOMIZE embeds base64 blobs (firstrun.sh, cloud-init
	// user-data); 1 MiB is generous headroom over any of those.
	MaxFrameSize = 1 * 1024 * 1024
	// LengthPrefixSize is the size of the big-endian length prefix.
	LengthPrefixSize = 4
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - prefix).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
)

// Frame type discriminants, stored in the msgpack payload's "type" field.
const (
	frameTypeString   = "string"
	frameTypeProgress = "progress"
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates the stream ended partway through a
	// frame. The decoder already blocks in io.ReadFull until a whole frame
	// has arrived, so this only surfaces once the stream itself has
	// broken, and IsFatal treats it as fatal.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error { return e.Err }

// IsFatal reports whether the error should move the state machine to
// Error, per spec §4.1's three-tier failure semantics. A frame error
// reaching this far means the stream broke mid-frame, which is fatal;
// a plain io.EOF between frames is not a FrameError at all.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError reports whether err is a fatal FrameError.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// StringFrame carries a handshake token, command text, or completion
// status — every wire frame that is "just a string" per spec §3/§6.
type StringFrame struct {
	Type  string `msgpack:"type"`
	Value string `msgpack:"value"`
}

// ProgressFrame carries the triple (kind, now, total) per spec §3.
// Invariant: Now <= Total, except Total == 0 meaning unknown.
type ProgressFrame struct {
	Type  string             `msgpack:"type"`
	Kind  types.ProgressKind `msgpack:"kind"`
	Now   int64              `msgpack:"now"`
	Total int64              `msgpack:"total"`
}

// NewStringFrame builds a StringFrame ready for Encode.
func NewStringFrame(value string) StringFrame {
	return StringFrame{Type: frameTypeString, Value: value}
}

// NewProgressFrame builds a ProgressFrame ready for Encode.
func NewProgressFrame(kind types.ProgressKind, now, total int64) ProgressFrame {
	return ProgressFrame{Type: frameTypeProgress, Kind: kind, Now: now, Total: total}
}

// Encode marshals a StringFrame or ProgressFrame and returns the
// length-prefixed wire bytes.
func Encode(frame any) ([]byte, error) {
	payload, err := msgpack.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{Kind: FrameErrorTooLarge, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize)}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}

// WriteFrame encodes frame and writes it to w in one call.
func WriteFrame(w io.Writer, frame any) error {
	buf, err := Encode(frame)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame's raw msgpack payload from the stream.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError Kind=FrameErrorTooLarge: frame exceeds the limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{Kind: FrameErrorTooLarge, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize)}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read payload", Err: err}
	}
	return payload, nil
}

// frameTypeProbe peeks at the type field without a full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// Decode decodes a payload into a *StringFrame or *ProgressFrame,
// discriminating on the "type" field.
func Decode(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame type", Err: err}
	}
	switch probe.Type {
	case frameTypeString:
		return DecodeStringFrame(payload)
	case frameTypeProgress:
		return DecodeProgressFrame(payload)
	default:
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unknown frame type %q", probe.Type)}
	}
}

// DecodeStringFrame decodes a payload as a StringFrame.
func DecodeStringFrame(payload []byte) (*StringFrame, error) {
	var f StringFrame
	if err := msgpack.Unmarshal(payload, &f); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode string frame", Err: err}
	}
	return &f, nil
}

// DecodeProgressFrame decodes a payload as a ProgressFrame.
func DecodeProgressFrame(payload []byte) (*ProgressFrame, error) {
	var f ProgressFrame
	if err := msgpack.Unmarshal(payload, &f); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode progress frame", Err: err}
	}
	return &f, nil
}

// ReadString reads the next frame and requires it to be a StringFrame,
// used for the handshake and completion exchanges where only a bare
// string is ever valid.
func ReadString(d *FrameDecoder) (string, error) {
	payload, err := d.ReadFrame()
	if err != nil {
		return "", err
	}
	f, err := DecodeStringFrame(payload)
	if err != nil {
		return "", err
	}
	return f.Value, nil
}
