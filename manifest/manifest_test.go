package manifest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rpi-imager-diskwriter/log"
	"rpi-imager-diskwriter/types"
)

func TestSink_Publish_UploadsRecord(t *testing.T) {
	uploader := &FakeUploader{}
	sink := NewSink(uploader, log.NewLogger(types.SessionMeta{SessionID: "s1"}))

	rec := &Record{SessionID: "s1", DevicePath: `\\.\PhysicalDrive2`, SourceHash: "abc", BytesTotal: 1024, StartedAt: time.Unix(0, 0), FinishedAt: time.Unix(10, 0)}
	sink.Publish(context.Background(), rec)

	if len(uploader.Keys) != 1 {
		t.Fatalf("got %d uploads, want 1", len(uploader.Keys))
	}
	var got Record
	if err := json.Unmarshal(uploader.Bodies[0], &got); err != nil {
		t.Fatalf("uploaded body is not valid JSON: %v", err)
	}
	if got.SessionID != "s1" || got.BytesTotal != 1024 {
		t.Errorf("uploaded record = %+v, want session s1 with 1024 bytes", got)
	}
}

func TestSink_Publish_NilUploaderIsNoop(t *testing.T) {
	sink := NewSink(nil, log.NewLogger(types.SessionMeta{SessionID: "s1"}))
	sink.Publish(context.Background(), &Record{SessionID: "s1"})
}

func TestSink_Publish_UploadFailureIsSwallowed(t *testing.T) {
	uploader := &FakeUploader{UploadErr: context.DeadlineExceeded}
	sink := NewSink(uploader, log.NewLogger(types.SessionMeta{SessionID: "s1"}))
	sink.Publish(context.Background(), &Record{SessionID: "s1"})
}

func TestNilSink_PublishIsNoop(t *testing.T) {
	var sink *Sink
	sink.Publish(context.Background(), &Record{SessionID: "s1"})
}
