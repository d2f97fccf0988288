package b2

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kurin/blazer/b2"
	"github.com/rs/zerolog"
)

// Config contains credentials and the target bucket for Backblaze B2.
type Config struct {
	AccountID      string
	ApplicationKey string
	Bucket         string
	Prefix         string
}

// Service stores photo objects in a B2 bucket.
type Service struct {
	bucket *b2.Bucket
	prefix string
	logger zerolog.Logger
}

// New authorizes against B2 and resolves the bucket.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.AccountID == "" || cfg.ApplicationKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("b2 account id, application key and bucket must be provided")
	}

	client, err := b2.NewClient(ctx, cfg.AccountID, cfg.ApplicationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Service{
		bucket: bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.With().Str("component", "b2").Logger(),
	}, nil
}

// Upload writes the object and returns its public download URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	key := name
	if s.prefix != "" {
		key = s.prefix + "/" + name
	}

	writer := s.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(writer, reader); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	s.logger.Info().Str("key", key).Msg("photo uploaded to b2")
	return objectURL(s.bucket.BaseURL(), s.bucket.Name(), key), nil
}

// objectURL builds the friendly download URL of a public bucket object.
func objectURL(baseURL, bucket, key string) string {
	return fmt.Sprintf("%s/file/%s/%s", strings.TrimRight(baseURL, "/"), bucket, strings.TrimLeft(key, "/"))
}
