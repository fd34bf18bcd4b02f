// Package storage holds course materials in an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConfigured is returned for every operation of the disabled store.
var ErrNotConfigured = errors.New("object storage is not configured")

// ObjectStore is the capability used to persist and serve course materials.
// SignedGet issues a time-boxed retrieval URL; Delete is best-effort.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	SignedGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Disabled is the ObjectStore selected at startup when no storage backend is
// configured. Every operation fails with ErrNotConfigured so the rest of the
// service keeps running.
type Disabled struct{}

func (Disabled) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return ErrNotConfigured
}

func (Disabled) SignedGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) Delete(ctx context.Context, key string) error {
	return ErrNotConfigured
}
