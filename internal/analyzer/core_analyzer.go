package analyzer

import (
	"fmt"
	"sync"

	"go-photo-sharpness/internal/afpoint"
	"go-photo-sharpness/internal/photo"
)

// coreAnalyzer implements FeatureExtractor and orchestrates all components
type coreAnalyzer struct {
	workerPool        *WorkerPool
	metricsCalculator MetricsCalculator
	registry          *afpoint.Registry
	options           AnalysisOptions
}

// NewFeatureExtractor creates a feature extractor over the given calibration
// registry. A nil registry uses the built-in calibrations.
func NewFeatureExtractor(registry *afpoint.Registry, options AnalysisOptions) (FeatureExtractor, error) {
	if registry == nil {
		registry = afpoint.DefaultRegistry()
	}
	if options.CameraModel != "" {
		if _, err := registry.Lookup(options.CameraModel); err != nil {
			return nil, err
		}
	}

	ca := &coreAnalyzer{
		metricsCalculator: NewMetricsCalculator(options.GradientMode, options.MaxSample),
		registry:          registry,
		options:           options,
	}
	if options.UseWorkerPool {
		ca.workerPool = NewWorkerPool(options.MaxWorkers)
		ca.workerPool.Start()
	}
	return ca, nil
}

// Extract resolves the AF index against cursor and computes the features of
// one photograph. Whole-image features are computed first; when the tile
// features fail the partial vector is returned together with the error.
func (ca *coreAnalyzer) Extract(p *photo.Photo, cursor afpoint.Cursor) (Extraction, error) {
	index, _ := cursor.Resolve(p.MakerNote.AFPointIndex)
	return ca.extractResolved(p, index)
}

func (ca *coreAnalyzer) extractResolved(p *photo.Photo, index int) (Extraction, error) {
	mc := ca.metricsCalculator
	ext := Extraction{ResolvedIndex: index}

	gradient := mc.Gradient(p.Luma)
	ext.Features.WholeVariance = mc.VarianceSharpness(p.Luma)
	ext.Features.WholeGradient = mc.GradientSharpness(gradient)
	ext.Features.FocalLength = p.MakerNote.FocalLength
	ext.Features.FocalDistance = p.MakerNote.FocalDistance

	camera := ca.options.CameraModel
	if camera == "" {
		camera = p.MakerNote.CameraModel
	}
	table, err := ca.registry.Lookup(camera)
	if err != nil {
		return ext, fmt.Errorf("photo %s: %w", p.Name, err)
	}
	ext.Calibration = table.Name() + "/" + table.Version()

	center, err := table.Center(index)
	if err != nil {
		return ext, fmt.Errorf("photo %s: %w", p.Name, err)
	}
	luma, err := p.Tile(photo.LayerLuma, center)
	if err != nil {
		return ext, fmt.Errorf("photo %s: af point %d: %w", p.Name, index, err)
	}
	grad, err := photo.MatrixTile(photo.LayerGradient, gradient, center)
	if err != nil {
		return ext, fmt.Errorf("photo %s: af point %d: %w", p.Name, index, err)
	}

	ext.Features.TileVariance = mc.VarianceSharpness(luma.Data)
	ext.Features.TileGradient = mc.GradientSharpness(grad.Data)
	q, err := mc.QuadrantEnergy(luma.Data)
	if err != nil {
		return ext, fmt.Errorf("photo %s: %w", p.Name, err)
	}
	ext.Features.Quadrants = q

	return ext, nil
}

// ExtractBatch resolves the AF index chain in input order, then computes the
// features of every photograph concurrently.
func (ca *coreAnalyzer) ExtractBatch(photos []*photo.Photo, initial afpoint.Cursor) []BatchItem {
	reported := make([]int, len(photos))
	for i, p := range photos {
		reported[i] = p.MakerNote.AFPointIndex
	}
	resolved := afpoint.ResolveSequence(reported, initial.LastGood)

	items := make([]BatchItem, len(photos))
	if ca.workerPool == nil {
		for i, p := range photos {
			ext, err := ca.extractResolved(p, resolved[i])
			items[i] = BatchItem{Photo: p, Extraction: ext, Err: err}
		}
		return items
	}

	// Batches may share the pool, so each one joins on its own jobs.
	var wg sync.WaitGroup
	for i, p := range photos {
		i, p := i, p
		wg.Add(1)
		ca.workerPool.Submit(func() {
			defer wg.Done()
			ext, err := ca.extractResolved(p, resolved[i])
			items[i] = BatchItem{Photo: p, Extraction: ext, Err: err}
		})
	}
	wg.Wait()

	return items
}

// Close releases the worker pool
func (ca *coreAnalyzer) Close() error {
	if ca.workerPool != nil {
		ca.workerPool.Close()
	}
	return nil
}
