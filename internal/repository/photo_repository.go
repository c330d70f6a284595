package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-photo-sharpness/internal/decode"
	"go-photo-sharpness/internal/logger"
	"go-photo-sharpness/internal/photo"
	"go-photo-sharpness/internal/storage"
	"go-photo-sharpness/pkg/validation"

	"github.com/sirupsen/logrus"
)

// StoragePhotoRepository implements PhotoRepository on top of a storage
// backend and the reference decoder
type StoragePhotoRepository struct {
	fetcher   storage.PhotoFetcher
	validator validation.LocationValidator
}

// NewStoragePhotoRepository creates a new storage-backed photo repository.
// A nil validator only rejects empty locations.
func NewStoragePhotoRepository(fetcher storage.PhotoFetcher, validator validation.LocationValidator) PhotoRepository {
	return &StoragePhotoRepository{
		fetcher:   fetcher,
		validator: validator,
	}
}

// FetchPhoto retrieves a photograph and decodes it. Storage and decode
// errors are returned wrapped so callers can match their sentinels.
func (r *StoragePhotoRepository) FetchPhoto(ctx context.Context, location string, overrides decode.Overrides) (*photo.Photo, error) {
	start := time.Now()

	data, err := r.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}

	p, err := decode.Decode(location, data, overrides)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"photo":        location,
		"bytes":        len(data),
		"camera_model": p.MakerNote.CameraModel,
		"fetch_ms":     time.Since(start).Milliseconds(),
	}).Debug("Photo fetched and decoded")

	return p, nil
}

// ValidateLocation validates if the provided location is acceptable
func (r *StoragePhotoRepository) ValidateLocation(location string) error {
	if strings.TrimSpace(location) == "" {
		return ErrInvalidLocation
	}
	if r.validator == nil {
		return nil
	}
	return r.validator.Validate(location)
}
