package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxPhotoSize bounds the bytes read for one photograph
const DefaultMaxPhotoSize = 64 << 20

var (
	// ErrNotFound indicates the photograph does not exist at the location
	ErrNotFound = errors.New("photo not found")

	// ErrTooLarge indicates the photograph exceeds the configured size limit
	ErrTooLarge = errors.New("photo exceeds size limit")

	// ErrInvalidLocation indicates a location the backend cannot address
	ErrInvalidLocation = errors.New("invalid photo location")
)

// PhotoFetcher retrieves the encoded bytes of a photograph
type PhotoFetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// readLimited reads r fully, failing with ErrTooLarge past limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxPhotoSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
