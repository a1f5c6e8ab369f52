package storage

import (
	"context"
	"errors"
)

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GetObject downloads the full object body.
	GetObject(ctx context.Context, objectKey string) ([]byte, error)

	// PutObject uploads body under objectKey, replacing any previous revision.
	PutObject(ctx context.Context, objectKey string, contentType string, body []byte) error
}

var (
	ErrObjectNotFound = errors.New("object not found in storage")
)
