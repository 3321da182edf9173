package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects as files under a directory, for development and
// single-node deployments. The HTTP layer serves the directory at publicURL.
type LocalStore struct {
	dir       string
	publicURL string
}

func NewLocalStore(dir, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{dir: dir, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *LocalStore) URL(key string) string {
	return s.publicURL + "/" + key
}

// path maps a key to a file inside dir, rejecting keys that escape it.
func (s *LocalStore) path(key string) (string, error) {
	if !fs.ValidPath(key) || key == "." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}
