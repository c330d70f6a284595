package analyzer

import (
	"go-photo-sharpness/internal/afpoint"
	"go-photo-sharpness/internal/photo"

	"gonum.org/v1/gonum/mat"
)

// FeatureExtractor turns decoded photographs into feature vectors
type FeatureExtractor interface {
	// Extract computes the features of one photograph. The cursor carries
	// the last good AF index; the returned Extraction holds the index the
	// next photograph should be resolved against.
	Extract(p *photo.Photo, cursor afpoint.Cursor) (Extraction, error)

	// ExtractBatch resolves AF indices for the ordered run first, then
	// computes features concurrently. Items are returned in input order.
	ExtractBatch(photos []*photo.Photo, initial afpoint.Cursor) []BatchItem

	// Lifecycle management
	Close() error
}

// MetricsCalculator handles sharpness metric computation
type MetricsCalculator interface {
	VarianceSharpness(m mat.Matrix) float64
	Gradient(m mat.Matrix) *mat.Dense
	GradientSharpness(grad mat.Matrix) float64
	QuadrantEnergy(tile mat.Matrix) (Quadrants, error)
}
