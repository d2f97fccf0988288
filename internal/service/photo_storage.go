package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// FileStorage abstracts photo destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// DataURIStorage inlines photos as base64 data URIs stored on the student record.
type DataURIStorage struct{}

// Upload implements FileStorage.
func (DataURIStorage) Upload(_ context.Context, _ string, reader io.Reader) (string, error) {
	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	mime := mimetype.Detect(payload)
	return fmt.Sprintf("data:%s;base64,%s", mime.String(), base64.StdEncoding.EncodeToString(payload)), nil
}
