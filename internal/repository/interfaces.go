package repository

import (
	"context"
	"time"

	"go-photo-sharpness/internal/classifier"
	"go-photo-sharpness/internal/decode"
	"go-photo-sharpness/internal/photo"
)

// PhotoRepository defines the interface for photograph access operations
type PhotoRepository interface {
	// FetchPhoto retrieves and decodes a photograph, applying overrides to
	// the camera fields read from its metadata
	FetchPhoto(ctx context.Context, location string, overrides decode.Overrides) (*photo.Photo, error)

	// ValidateLocation validates if the provided location is acceptable
	ValidateLocation(location string) error
}

// ResultRepository defines the interface for classification result operations
type ResultRepository interface {
	// SaveResult stores a result, assigning an id when it has none
	SaveResult(ctx context.Context, record *ResultRecord) error

	// GetResult retrieves a stored result
	GetResult(ctx context.Context, id string) (*ResultRecord, error)

	// GetHistory retrieves the results recorded for a photo location, oldest first
	GetHistory(ctx context.Context, location string) ([]*ResultRecord, error)

	Close() error
}

// ResultRecord is a persisted classification
type ResultRecord struct {
	ID                string            `json:"id"`
	Location          string            `json:"location"`
	CameraModel       string            `json:"camera_model,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	ProcessingTimeSec float64           `json:"processing_time_sec"`
	Result            classifier.Result `json:"result"`
}
