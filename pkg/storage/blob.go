package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists binary objects (license images) on disk grouped by
// container. It mirrors the put/get/delete surface of a hosted object store
// so the rest of the code never touches the filesystem directly.
type BlobStore struct {
	baseDir string
}

// NewBlobStore ensures the base directory exists and returns a handle.
func NewBlobStore(baseDir string) (*BlobStore, error) {
	if baseDir == "" {
		baseDir = "./blobs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &BlobStore{baseDir: baseDir}, nil
}

// Exists reports whether the blob is present.
func (s *BlobStore) Exists(container, key string) (bool, error) {
	path, err := s.resolve(container, key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return true, nil
}

// Upload writes the blob bytes and records its content type alongside.
func (s *BlobStore) Upload(container, key string, data []byte, contentType string) error {
	path, err := s.resolve(container, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if contentType != "" {
		if err := os.WriteFile(path+".contenttype", []byte(contentType), 0o644); err != nil {
			return fmt.Errorf("write blob content type: %w", err)
		}
	}
	return nil
}

// Open returns a read-only handle for the stored blob.
func (s *BlobStore) Open(container, key string) (*os.File, error) {
	path, err := s.resolve(container, key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return file, nil
}

// ContentType returns the recorded content type, empty when unknown.
func (s *BlobStore) ContentType(container, key string) string {
	path, err := s.resolve(container, key)
	if err != nil {
		return ""
	}
	raw, err := os.ReadFile(path + ".contenttype")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// Delete removes the blob. Missing blobs are not an error.
func (s *BlobStore) Delete(container, key string) error {
	path, err := s.resolve(container, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	_ = os.Remove(path + ".contenttype")
	return nil
}

func (s *BlobStore) resolve(container, key string) (string, error) {
	if container == "" || key == "" {
		return "", fmt.Errorf("container and key required")
	}
	cleaned := filepath.Clean(filepath.Join(container, key))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
