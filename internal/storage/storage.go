package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cinevault/cinevault/internal/config"
)

// Store persists uploaded video files. Save must not return until the file
// is fully written; the ingestion pipeline probes the file right after.
type Store interface {
	// Save writes the file under the given object name and returns the
	// local filesystem path the file can be probed at.
	Save(ctx context.Context, objectName string, reader io.Reader, size int64) (string, error)
	// Remove deletes a stored file
	Remove(ctx context.Context, objectName string) error
}

// New creates the storage backend selected by configuration
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "disk":
		return NewDiskStore(cfg.LocalDir)
	case "s3":
		return NewObjectStore(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// DiskStore stores video files on the local filesystem, the default for a
// self-hosted library.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk-backed store rooted at dir
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		dir = "./videos"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the uploaded bytes to disk and syncs before returning
func (s *DiskStore) Save(ctx context.Context, objectName string, reader io.Reader, size int64) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(objectName))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	// The probe reads this path immediately; make sure the bytes are durable
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to sync file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return path, nil
}

// Remove deletes a stored file
func (s *DiskStore) Remove(ctx context.Context, objectName string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(objectName)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Path returns the local path a stored object lives at
func (s *DiskStore) Path(objectName string) string {
	return filepath.Join(s.dir, filepath.Base(objectName))
}

// ObjectName derives the deterministic storage name for a video: the video
// id plus the original file's extension, defaulting to .mp4.
func ObjectName(videoID, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if ext == "" {
		ext = ".mp4"
	}
	return videoID + ext
}

// ContentType returns the content type based on file extension
func ContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
