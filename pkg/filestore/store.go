// Package filestore abstracts the blob store holding original photos,
// derived variants and export archives. The pipeline only ever addresses
// objects through keys following the objectkey path scheme.
package filestore

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PutStream(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type StoreConfigYaml struct {
	Backend string `yaml:"backend"` // "local" or "s3"

	// local backend
	RootPath string `yaml:"root_path"`

	// s3 backend
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// NewStore builds the configured store backend.
func NewStore(conf StoreConfigYaml) (Store, error) {
	switch conf.Backend {
	case "local", "":
		return NewLocalStore(conf.RootPath)
	case "s3":
		return NewS3Store(conf)
	default:
		return nil, errors.New("unknown filestore backend: " + conf.Backend)
	}
}
