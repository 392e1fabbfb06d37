package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSArchive copies uploads into a bucket under Prefix.
type GCSArchive struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

func NewGCSArchive(client *storage.Client, bucket, prefix string, logger *slog.Logger) *GCSArchive {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSArchive{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Save writes the object once; an existing object with the same name is kept.
func (a *GCSArchive) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	object := path.Join(a.prefix, SafeName(name))
	if err := SaveToGCSAtomically(ctx, a.client.Bucket(a.bucket), object, r, a.logger); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, object), nil
}

// SaveToGCSAtomically writes content to an object only if it doesn't already exist.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content io.Reader, logger *slog.Logger) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, content); err != nil {
		_ = writer.Close()
		if preconditionFailed(err) {
			logger.Info("object already exists, skipping", "object", objectName)
			return nil
		}
		logger.Error("failed to copy content to gcs object", "object", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if preconditionFailed(err) {
			logger.Info("object already exists, skipping", "object", objectName)
			return nil
		}
		logger.Error("failed to close gcs writer", "object", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// Download copies bucket/object to dst.
func Download(ctx context.Context, client *storage.Client, bucket, object, dst string) (int64, error) {
	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("download gs://%s/%s: %w", bucket, object, err)
	}
	return n, nil
}

func preconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
