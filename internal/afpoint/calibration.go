package afpoint

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"github.com/arbovm/levenshtein"
)

var (
	// ErrIndexOutOfRange indicates an AF point index outside the calibration table
	ErrIndexOutOfRange = errors.New("af point index out of range")

	// ErrUnknownCamera indicates no calibration is registered for a camera model
	ErrUnknownCamera = errors.New("no af point calibration for camera")
)

// Table maps AF point indices to sensor pixel centres. Index 0 is the sentinel
// for "no specific point reported" and is never a real focus point.
type Table struct {
	name    string
	version string
	centers []image.Point
}

// NewTable builds an immutable table. The first entry is the index 0 sentinel.
func NewTable(name, version string, centers []image.Point) *Table {
	c := make([]image.Point, len(centers))
	copy(c, centers)
	return &Table{name: name, version: version, centers: c}
}

// Name returns the calibration name
func (t *Table) Name() string { return t.name }

// Version returns the calibration version
func (t *Table) Version() string { return t.version }

// Len returns the number of entries including the sentinel
func (t *Table) Len() int { return len(t.centers) }

// Center returns the pixel centre for an AF point index.
func (t *Table) Center(index int) (image.Point, error) {
	if index < 0 || index >= len(t.centers) {
		return image.Point{}, fmt.Errorf("%w: %d not in [0, %d) for %s/%s",
			ErrIndexOutOfRange, index, len(t.centers), t.name, t.version)
	}
	return t.centers[index], nil
}

// Registry holds calibrations keyed by normalized camera model.
type Registry struct {
	mu       sync.RWMutex
	tables   map[string]*Table
	fallback string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Register adds a calibration for one or more camera models. The first call
// also sets the default used for photographs without a camera model.
func (r *Registry) Register(t *Table, models ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		key := normalizeModel(m)
		r.tables[key] = t
		if r.fallback == "" {
			r.fallback = key
		}
	}
}

// SetDefault selects which registered model is used when none is given.
func (r *Registry) SetDefault(model string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeModel(model)
	if _, ok := r.tables[key]; !ok {
		return r.unknownLocked(model)
	}
	r.fallback = key
	return nil
}

// Lookup returns the calibration for a camera model. An empty model selects
// the default calibration.
func (r *Registry) Lookup(model string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := normalizeModel(model)
	if key == "" {
		key = r.fallback
	}
	if t, ok := r.tables[key]; ok {
		return t, nil
	}
	return nil, r.unknownLocked(model)
}

// Models returns the registered camera models, sorted
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	models := make([]string, 0, len(r.tables))
	for k := range r.tables {
		models = append(models, k)
	}
	sort.Strings(models)
	return models
}

func (r *Registry) unknownLocked(model string) error {
	key := normalizeModel(model)
	best, bestDist := "", -1
	for k := range r.tables {
		d := levenshtein.Distance(key, k)
		if bestDist < 0 || d < bestDist || (d == bestDist && k < best) {
			best, bestDist = k, d
		}
	}
	// Suggest only when the names are plausibly the same camera.
	if best != "" && bestDist <= len(key)/3+1 {
		return fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownCamera, model, best)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCamera, model)
}

func normalizeModel(model string) string {
	return strings.Join(strings.Fields(strings.ToUpper(model)), " ")
}

// nikon39Point is the 39-point AF layout of 6016x4016 sensors.
var nikon39Point = []image.Point{
	{0, 0},
	{3015, 2014}, {3015, 1759}, {3015, 1504}, {3015, 2269}, {3015, 2524},
	{3249, 2014}, {3249, 1759}, {3249, 1504}, {3249, 2269}, {3249, 2524},
	{2781, 2014}, {2781, 1759}, {2781, 1504}, {2781, 2269}, {2781, 2524},
	{3483, 2014}, {3483, 1674}, {3483, 2354},
	{3717, 2014}, {3717, 1674}, {3717, 2354},
	{3951, 2014}, {3951, 1674}, {3951, 2354},
	{4185, 2014}, {4185, 1674}, {4185, 2354},
	{2547, 2014}, {2547, 1674}, {2547, 2354},
	{2313, 2014}, {2313, 1674}, {2313, 2354},
	{2079, 2014}, {2079, 1674}, {2079, 2354},
	{1845, 2014}, {1845, 1674}, {1845, 2354},
}

// DefaultRegistry returns a registry with the built-in calibrations.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTable("nikon-39pt-6016x4016", "v1", nikon39Point), "NIKON D610", "NIKON D600")
	return r
}
