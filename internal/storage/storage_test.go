package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPhotoFetcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2019", "06"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2019", "06", "DSC_0001.jpg"), photoBytes, 0o600))

	// A file outside the root that traversal would reach
	outside := filepath.Join(filepath.Dir(root), "secret.jpg")
	require.NoError(t, os.WriteFile(outside, photoBytes, 0o600))
	t.Cleanup(func() { os.Remove(outside) })

	fetcher, err := NewLocalPhotoFetcher(root, 1024)
	require.NoError(t, err)

	tests := []struct {
		name     string
		location string
		wantErr  error
	}{
		{"relative path", "2019/06/DSC_0001.jpg", nil},
		{"leading slash", "/2019/06/DSC_0001.jpg", nil},
		{"file url", "file:///2019/06/DSC_0001.jpg", nil},
		{"missing", "2019/06/DSC_0002.jpg", ErrNotFound},
		{"parent traversal", "../secret.jpg", ErrInvalidLocation},
		{"nested traversal", "2019/../../secret.jpg", ErrInvalidLocation},
		{"empty", "", ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := fetcher.Fetch(context.Background(), tt.location)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, photoBytes, data)
		})
	}
}

func TestLocalPhotoFetcher_Symlink(t *testing.T) {
	root := t.TempDir()
	outsideDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outsideDir, "x.jpg"), photoBytes, 0o600))
	if err := os.Symlink(outsideDir, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	fetcher, err := NewLocalPhotoFetcher(root, 0)
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), "link/x.jpg")
	assert.Error(t, err)
}

func TestNewLocalPhotoFetcher_NotDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewLocalPhotoFetcher(file, 0)
	assert.Error(t, err)

	_, err = NewLocalPhotoFetcher(filepath.Join(file, "missing"), 0)
	assert.Error(t, err)
}

func TestParseBlobLocation(t *testing.T) {
	tests := []struct {
		location  string
		container string
		blob      string
		wantErr   bool
	}{
		{"https://acct.blob.core.windows.net/photos/2019/DSC_0001.jpg", "photos", "2019/DSC_0001.jpg", false},
		{"https://acct.blob.core.windows.net/photos?blob=DSC_0001.jpg", "photos", "DSC_0001.jpg", false},
		{"https://acct.blob.core.windows.net/photos/", "", "", true},
		{"https://acct.blob.core.windows.net/", "", "", true},
		{"https://acct.blob.core.windows.net/a/b?blob=c.jpg", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			container, blob, err := parseBlobLocation(tt.location)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidLocation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.container, container)
			assert.Equal(t, tt.blob, blob)
		})
	}
}

func TestNewAzurePhotoFetcher_BadKey(t *testing.T) {
	_, err := NewAzurePhotoFetcher("acct", "not base64!", 0)
	assert.Error(t, err)
}
