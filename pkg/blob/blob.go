// Package blob stores opaque artifacts such as trained model snapshots.
package blob

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrInvalidKey  = errors.New("invalid blob key")
	ErrUnsupported = errors.New("unsupported blob driver")
)

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type Config struct {
	Driver string `env:"ROUNDS_BLOB_DRIVER" envDefault:"fs"`
	// Root prefixes relative keys for the fs driver. Empty keeps keys as
	// given, relative to the working directory.
	Root string `env:"ROUNDS_BLOB_ROOT" envDefault:""`

	S3 S3Config `envPrefix:"ROUNDS_BLOB_S3_"`
}

func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "fs", "":
		return NewFS(cfg.Root), nil
	case "memory":
		return NewMemory(), nil
	case "s3":
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, cfg.Driver)
	}
}
