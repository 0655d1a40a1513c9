// Package blob stores photo bytes keyed by filename with content-type metadata.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned by Get when no object exists for the key
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey is returned by Put for keys that cannot be stored safely
var ErrInvalidKey = errors.New("invalid blob key")

// Object is a stored blob opened for reading. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store is a key/value store for binary objects.
// Put overwrites any existing object under the same key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
}

// ValidKey reports whether key is a single, non-special path segment
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, "/\\\x00")
}
