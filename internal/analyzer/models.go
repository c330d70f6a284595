package analyzer

import (
	"fmt"

	"go-photo-sharpness/internal/photo"
)

// Feature keys in vector order. The keys match the column names of the
// training data the polynomial models are fitted on.
const (
	KeyWholeVariance = "wv"
	KeyTileVariance  = "pv"
	KeyWholeGradient = "wg"
	KeyTileGradient  = "pg"
	KeyFocalLength   = "f"
	KeyFocalDistance = "d"
	KeyQuadrant0     = "a0"
	KeyQuadrant1     = "a1"
	KeyQuadrant2     = "a2"
	KeyQuadrant3     = "a3"
)

// FeatureKeys lists every feature key in vector order
var FeatureKeys = []string{
	KeyWholeVariance, KeyTileVariance, KeyWholeGradient, KeyTileGradient,
	KeyFocalLength, KeyFocalDistance,
	KeyQuadrant0, KeyQuadrant1, KeyQuadrant2, KeyQuadrant3,
}

// FeatureVector holds the sharpness signals of one photograph.
type FeatureVector struct {
	WholeVariance float64 `json:"wv"`
	TileVariance  float64 `json:"pv"`
	WholeGradient float64 `json:"wg"`
	TileGradient  float64 `json:"pg"`
	FocalLength   float64 `json:"f"`
	FocalDistance float64 `json:"d"`
	Quadrants
}

// Values returns the vector in FeatureKeys order
func (fv FeatureVector) Values() []float64 {
	return []float64{
		fv.WholeVariance, fv.TileVariance, fv.WholeGradient, fv.TileGradient,
		fv.FocalLength, fv.FocalDistance,
		fv.Quadrants.A0, fv.Quadrants.A1, fv.Quadrants.A2, fv.Quadrants.A3,
	}
}

// Value returns a single feature by key.
func (fv FeatureVector) Value(key string) (float64, error) {
	for i, k := range FeatureKeys {
		if k == key {
			return fv.Values()[i], nil
		}
	}
	return 0, fmt.Errorf("unknown feature key %q", key)
}

// Map returns the features keyed by name
func (fv FeatureVector) Map() map[string]float64 {
	values := fv.Values()
	m := make(map[string]float64, len(values))
	for i, k := range FeatureKeys {
		m[k] = values[i]
	}
	return m
}

// Extraction is the outcome of feature extraction for one photograph.
type Extraction struct {
	Features      FeatureVector
	ResolvedIndex int
	Calibration   string
}

// BatchItem pairs a photograph with its extraction result in a batch run.
type BatchItem struct {
	Photo      *photo.Photo
	Extraction Extraction
	Err        error
}
