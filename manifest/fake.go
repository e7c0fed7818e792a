package manifest

import "context"

// FakeUploader records every Upload call for tests.
type FakeUploader struct {
	Keys      []string
	Bodies    [][]byte
	UploadErr error
}

func (f *FakeUploader) Upload(ctx context.Context, key string, body []byte) error {
	if f.UploadErr != nil {
		return f.UploadErr
	}
	f.Keys = append(f.Keys, key)
	f.Bodies = append(f.Bodies, body)
	return nil
}
