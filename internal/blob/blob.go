// Package blob stores uploaded media files on the local filesystem.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrInvalidName = errors.New("invalid blob name")
)

// FSStore keeps blobs as flat files under one directory.
type FSStore struct {
	dir string
}

// NewFSStore creates dir if needed and returns a store rooted there.
func NewFSStore(dir string) (*FSStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("blob dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Put copies r into the blob called name and returns its path. The file appears
// atomically.
func (s *FSStore) Put(name string, r io.Reader) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	path := s.Path(name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("commit blob: %w", err)
	}
	return path, nil
}

// PutFile moves or copies the file at src into the blob called name.
func (s *FSStore) PutFile(name, src string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	path := s.Path(name)
	if err := os.Rename(src, path); err == nil {
		return path, nil
	}
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	return s.Put(name, f)
}

// Path returns where the blob called name lives.
func (s *FSStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FSStore) Open(name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *FSStore) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
