package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalPhotoFetcher reads photographs from a directory tree. Locations
// resolving outside the root are rejected.
type LocalPhotoFetcher struct {
	root     string
	maxBytes int64
}

// NewLocalPhotoFetcher creates a fetcher rooted at dir
func NewLocalPhotoFetcher(dir string, maxBytes int64) (*LocalPhotoFetcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("photo root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("photo root %s is not a directory", dir)
	}
	return &LocalPhotoFetcher{root: dir, maxBytes: maxBytes}, nil
}

// Fetch reads a photograph. The location is a slash-separated path relative
// to the root, optionally as a file:// URL.
func (l *LocalPhotoFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := localName(location)
	if err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo root: %w", err)
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	defer f.Close()

	return readLimited(f, l.maxBytes)
}

func localName(location string) (string, error) {
	name := location
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
		}
		name = u.Host + u.Path
	}
	name = strings.TrimPrefix(name, "/")
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}
	return filepath.FromSlash(name), nil
}
