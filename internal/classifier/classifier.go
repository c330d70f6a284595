// Package classifier scores photographs with a polynomial model and maps
// the score onto a Sharp, Questionable or Unsharp verdict.
package classifier

import (
	"errors"
	"fmt"

	"go-photo-sharpness/internal/afpoint"
	"go-photo-sharpness/internal/analyzer"
	"go-photo-sharpness/internal/model"
	"go-photo-sharpness/internal/photo"
)

// Result is the classification of one photograph.
type Result struct {
	Photo         string                 `json:"photo"`
	Features      analyzer.FeatureVector `json:"features"`
	Score         float64                `json:"score"`
	Verdict       Verdict                `json:"verdict"`
	ResolvedIndex int                    `json:"resolved_index"`
	Calibration   string                 `json:"calibration,omitempty"`
	Degraded      bool                   `json:"degraded"`
}

// NextCursor returns the cursor the following photograph resolves against
func (r Result) NextCursor() afpoint.Cursor {
	return afpoint.NewCursor(r.ResolvedIndex)
}

// Classifier combines a feature extractor, a compiled model and thresholds.
type Classifier struct {
	extractor  analyzer.FeatureExtractor
	model      *model.Model
	thresholds Thresholds
}

// New creates a classifier. A nil model selects the degraded fallback.
func New(extractor analyzer.FeatureExtractor, m *model.Model, thresholds Thresholds) (*Classifier, error) {
	if extractor == nil {
		return nil, errors.New("classifier requires a feature extractor")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = model.Fallback()
	}
	return &Classifier{extractor: extractor, model: m, thresholds: thresholds}, nil
}

// Model returns the model in use
func (c *Classifier) Model() *model.Model { return c.model }

// Thresholds returns the verdict cut points
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Classify extracts the features of p against cursor, scores them and
// returns the verdict. On a feature error the result still carries the
// resolved index and whatever features were computed.
func (c *Classifier) Classify(p *photo.Photo, cursor afpoint.Cursor) (Result, error) {
	ext, err := c.extractor.Extract(p, cursor)
	return c.finish(p, ext, err)
}

// BatchResult pairs a classification with its error
type BatchResult struct {
	Result Result
	Err    error
}

// ClassifyBatch classifies an ordered run of photographs. AF indices are
// resolved in order before features are computed concurrently; a failing
// photograph does not abort the others.
func (c *Classifier) ClassifyBatch(photos []*photo.Photo, initial afpoint.Cursor) []BatchResult {
	items := c.extractor.ExtractBatch(photos, initial)
	results := make([]BatchResult, len(items))
	for i, item := range items {
		results[i].Result, results[i].Err = c.finish(item.Photo, item.Extraction, item.Err)
	}
	return results
}

// Score evaluates the model on a feature vector and applies the thresholds.
func (c *Classifier) Score(fv analyzer.FeatureVector) (float64, Verdict, error) {
	score, err := c.model.ScoreFeatures(fv)
	if err != nil {
		return 0, Unsharp, err
	}
	return score, c.thresholds.Classify(score), nil
}

func (c *Classifier) finish(p *photo.Photo, ext analyzer.Extraction, err error) (Result, error) {
	result := Result{
		Photo:         p.Name,
		Features:      ext.Features,
		ResolvedIndex: ext.ResolvedIndex,
		Calibration:   ext.Calibration,
		Degraded:      c.model.Degraded(),
	}
	if err != nil {
		return result, err
	}

	score, verdict, err := c.Score(ext.Features)
	if err != nil {
		return result, fmt.Errorf("photo %s: %w", p.Name, err)
	}
	result.Score = score
	result.Verdict = verdict
	return result, nil
}
