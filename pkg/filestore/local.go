package filestore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStore keeps objects as plain files below a root directory, mapping
// key path segments to directories.
type LocalStore struct {
	rootPath string
	mu       sync.Mutex
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(rootPath string) (*LocalStore, error) {
	if rootPath == "" {
		return nil, errors.New("filestore root path must be set")
	}
	if err := os.MkdirAll(rootPath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStore{rootPath: rootPath}, nil
}

func (s *LocalStore) pathForKey(key string) (string, error) {
	path := filepath.Join(s.rootPath, filepath.FromSlash(key))
	// reject keys escaping the root
	if !strings.HasPrefix(path, filepath.Clean(s.rootPath)+string(os.PathSeparator)) {
		return "", errors.New("object key resolves outside the store root: " + key)
	}
	return path, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.pathForKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = os.MkdirAll(filepath.Dir(path), os.ModePerm)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func (s *LocalStore) PutStream(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = os.MkdirAll(filepath.Dir(path), os.ModePerm)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, reader)
	return err
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.pathForKey(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}
