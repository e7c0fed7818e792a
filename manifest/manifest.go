// Package manifest uploads a small per-device JSON record to S3 after a
// successful WRITE+VERIFY pair, so an organisation imaging a fleet of
// devices from a central console has a queryable trail of which image
// went onto which device and when. Purely additive: nothing in the
// write/verify pipeline consults this package, and an upload failure is
// only ever logged, never returned to the caller (spec.md §4.9).
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rpi-imager-diskwriter/log"
)

// Record is the JSON body uploaded for one completed device.
type Record struct {
	SessionID  string    `json:"session_id"`
	DevicePath string    `json:"device_path"`
	SourceHash string    `json:"source_hash"`
	BytesTotal int64     `json:"bytes_total"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r *Record) key() string {
	return fmt.Sprintf("%s/%s.json", r.SessionID, time.Now().UTC().Format("20060102T150405Z"))
}

// Uploader abstracts the object-store write, so tests don't need a real
// S3 bucket.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

// Sink wraps an Uploader the way notify.Sink wraps a Notifier: a nil
// Uploader (no --manifest-bucket) makes Publish a no-op, and an upload
// failure is logged as a warning rather than propagated.
type Sink struct {
	uploader Uploader
	logger   *log.Logger
}

// NewSink constructs a Sink. uploader may be nil.
func NewSink(uploader Uploader, logger *log.Logger) *Sink {
	return &Sink{uploader: uploader, logger: logger}
}

// Publish uploads r as a JSON object keyed by session id and timestamp.
func (s *Sink) Publish(ctx context.Context, r *Record) {
	if s == nil || s.uploader == nil {
		return
	}
	body, err := json.Marshal(r)
	if err != nil {
		s.logger.Warn("manifest marshal failed", map[string]any{"session_id": r.SessionID, "error": err.Error()})
		return
	}
	if err := s.uploader.Upload(ctx, r.key(), body); err != nil {
		s.logger.Warn("manifest upload failed", map[string]any{"session_id": r.SessionID, "error": err.Error()})
	}
}
