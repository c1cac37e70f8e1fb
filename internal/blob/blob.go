// Package blob stores binary objects such as profile images.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists at a path.
var ErrNotFound = errors.New("blob not found")

// Store uploads objects and hands out URLs clients can fetch them from.
type Store interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, path string) (string, error)
}
