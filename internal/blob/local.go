package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blobs as files under a directory: bytes in objects/,
// content types in meta/.
type Local struct {
	dir string
}

// NewLocal creates the directory layout and returns a Local store
func NewLocal(dir string) (*Local, error) {
	for _, sub := range []string{"objects", "meta"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create blob directory: %w", err)
		}
	}
	return &Local{dir: dir}, nil
}

func (l *Local) objectPath(key string) string {
	return filepath.Join(l.dir, "objects", key)
}

func (l *Local) metaPath(key string) string {
	return filepath.Join(l.dir, "meta", key)
}

// Put writes r to a temporary file and renames it over key
func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}

	if err := writeAtomic(l.objectPath(key), r); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := writeAtomic(l.metaPath(key), strings.NewReader(contentType)); err != nil {
		return fmt.Errorf("failed to write metadata for %s: %w", key, err)
	}
	return nil
}

// Get opens the file stored under key
func (l *Local) Get(ctx context.Context, key string) (*Object, error) {
	if !ValidKey(key) {
		return nil, ErrNotFound
	}

	f, err := os.Open(l.objectPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	// A missing metadata file leaves the content type empty
	contentType, err := os.ReadFile(l.metaPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.Close()
		return nil, fmt.Errorf("failed to read metadata for %s: %w", key, err)
	}

	return &Object{
		Body:        f,
		ContentType: string(contentType),
		Size:        info.Size(),
	}, nil
}

func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
