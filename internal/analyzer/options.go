package analyzer

import (
	"fmt"
	"strings"
)

// GradientMode selects how the two gradient components are combined.
type GradientMode int

const (
	// GradientEuclidean uses sqrt(dx^2 + dy^2) per sample
	GradientEuclidean GradientMode = iota
	// GradientSingleAxis uses |dx| only, matching features recorded by the
	// legacy tooling that dropped the row-direction component
	GradientSingleAxis
)

// String returns the configuration name of the mode
func (m GradientMode) String() string {
	switch m {
	case GradientEuclidean:
		return "euclidean"
	case GradientSingleAxis:
		return "single_axis"
	default:
		return fmt.Sprintf("GradientMode(%d)", int(m))
	}
}

// ParseGradientMode parses a configuration name
func ParseGradientMode(s string) (GradientMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "euclidean":
		return GradientEuclidean, nil
	case "single_axis", "single-axis", "legacy":
		return GradientSingleAxis, nil
	default:
		return 0, fmt.Errorf("unknown gradient mode %q", s)
	}
}

// AnalysisOptions configures feature extraction
type AnalysisOptions struct {
	GradientMode GradientMode

	// MaxSample is the normalization bound for variance sharpness
	MaxSample float64

	// CameraModel overrides the camera model of every photograph
	CameraModel string

	// Performance options
	UseWorkerPool bool
	MaxWorkers    int
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		GradientMode:  GradientEuclidean,
		MaxSample:     255,
		UseWorkerPool: true,
		MaxWorkers:    0, // Use default CPU count
	}
}

// LegacyOptions returns options reproducing features recorded by the
// original tooling, for models fitted on that data.
func LegacyOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.GradientMode = GradientSingleAxis
	return opts
}

// WithGradientMode returns options using the given gradient mode
func (opts AnalysisOptions) WithGradientMode(mode GradientMode) AnalysisOptions {
	opts.GradientMode = mode
	return opts
}

// WithCameraModel returns options pinned to a camera calibration
func (opts AnalysisOptions) WithCameraModel(model string) AnalysisOptions {
	opts.CameraModel = model
	return opts
}

// WithWorkers returns options with a fixed worker count
func (opts AnalysisOptions) WithWorkers(n int) AnalysisOptions {
	opts.MaxWorkers = n
	opts.UseWorkerPool = n != 1
	return opts
}
