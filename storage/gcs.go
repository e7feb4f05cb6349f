// Package storage stores generated audio in Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"video-insight/config"
)

type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS uses application default credentials unless opts say otherwise.
// STORAGE_EMULATOR_HOST is honoured by the client library.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}
	if os.Getenv("STORAGE_EMULATOR_HOST") != "" {
		opts = append(opts, option.WithoutAuthentication())
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	config.Logger.Infof("object storage initialized (bucket=%s)", bucket)
	return &GCS{client: client, bucket: bucket}, nil
}

func (s *GCS) Close() error { return s.client.Close() }

// Upload writes data to path, replacing any existing object.
func (s *GCS) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, max-age=0"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// SignedURL returns a V4 GET URL valid for ttl.
func (s *GCS) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	u, err := s.client.Bucket(s.bucket).SignedURL(path, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", path, err)
	}
	return u, nil
}

// AudioPath is the object key for an analysis' spoken summary.
func AudioPath(videoID, analysisID, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("audio/%s/%s.%s", videoID, analysisID, ext)
}
