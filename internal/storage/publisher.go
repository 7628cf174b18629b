// Package storage publishes finished reports to Google Cloud Storage.
//
// Publishing is optional: it only happens when a bucket is configured and the
// CLI is asked to upload. Credentials come from Application Default
// Credentials.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

// DefaultUploadTimeout bounds a single upload.
const DefaultUploadTimeout = 2 * time.Minute

// Publisher stores a report under an object name and returns its URI.
type Publisher interface {
	Publish(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
}

var _ Publisher = (*GCSPublisher)(nil)

// openFunc opens a writer for one object. Closing the writer finalizes the
// upload.
type openFunc func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// GCSPublisher uploads reports to one bucket.
type GCSPublisher struct {
	bucket  string
	timeout time.Duration
	open    openFunc
	close   func() error
}

// NewGCSPublisher creates a storage client for bucket.
func NewGCSPublisher(ctx context.Context, bucket string) (*GCSPublisher, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSPublisher{
		bucket:  bucket,
		timeout: DefaultUploadTimeout,
		open: func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = contentType
			return w
		},
		close: client.Close,
	}, nil
}

// Bucket returns the target bucket name.
func (p *GCSPublisher) Bucket() string {
	return p.bucket
}

// Publish implements Publisher.
func (p *GCSPublisher) Publish(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	objectName = strings.TrimLeft(objectName, "/")
	if objectName == "" {
		return "", fmt.Errorf("storage: object name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	w := p.open(ctx, p.bucket, objectName, contentType)
	if _, err := io.Copy(w, r); err != nil {
		// Closing after a failed copy aborts the upload.
		_ = w.Close()
		return "", fmt.Errorf("copy report to GCS writer: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return ObjectURI(p.bucket, objectName), nil
}

// Close releases the storage client.
func (p *GCSPublisher) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// ObjectURI formats a gs:// URI.
func ObjectURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}
