package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cinevault/cinevault/internal/config"
)

// ObjectStore keeps the durable copy of each video in S3-compatible object
// storage. Files are spooled to a local directory first so ffprobe can read
// them from disk, then mirrored to the bucket.
type ObjectStore struct {
	client     *minio.Client
	bucketName string
	spoolDir   string
}

// NewObjectStore creates a new object storage backend
func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	spoolDir := cfg.LocalDir
	if spoolDir == "" {
		spoolDir = "./videos"
	}
	if err := os.MkdirAll(spoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	return &ObjectStore{
		client:     client,
		bucketName: cfg.BucketName,
		spoolDir:   spoolDir,
	}, nil
}

// Save spools the file to disk, mirrors it to the bucket, and returns the
// local path for probing
func (s *ObjectStore) Save(ctx context.Context, objectName string, reader io.Reader, size int64) (string, error) {
	path := filepath.Join(s.spoolDir, filepath.Base(objectName))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write spool file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to sync spool file: %w", err)
	}
	file.Close()

	_, err = s.client.FPutObject(ctx, s.bucketName, objectName, path, minio.PutObjectOptions{
		ContentType: ContentType(path),
	})
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return path, nil
}

// Remove deletes the object and its local spool copy
func (s *ObjectStore) Remove(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	if err := os.Remove(filepath.Join(s.spoolDir, filepath.Base(objectName))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove spool file: %w", err)
	}

	return nil
}
