// Package model rebuilds the polynomial sharpness model from its serialized
// form and scores feature vectors with it.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go-photo-sharpness/internal/analyzer"
)

// ErrFeatureCountMismatch indicates terms, coefficients and input features
// that do not line up.
var ErrFeatureCountMismatch = errors.New("feature count mismatch")

// BiasInput names the constant 1 column in an artifact's inputs list
const BiasInput = "bias"

// biasColumn marks the bias column in Model.columns
const biasColumn = -1

// Artifact is the persisted form of a model as written by the training
// script.
type Artifact struct {
	FeatureNames []string  `json:"featureNames"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`

	// Inputs selects the feature keys forming the input vector, in order.
	// Empty means the full feature vector.
	Inputs []string `json:"inputs,omitempty"`
}

// Model is a compiled polynomial. It is immutable after construction and
// safe for concurrent use.
type Model struct {
	artifact Artifact
	terms    []Term
	columns  []int
	degraded bool
}

// Load reads a model artifact from a JSON file.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// Decode reads a model artifact from r.
func Decode(r io.Reader) (*Model, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	return FromArtifact(a)
}

// FromArtifact compiles every term and checks the artifact is consistent.
// Any malformed term rejects the whole model.
func FromArtifact(a Artifact) (*Model, error) {
	if len(a.FeatureNames) != len(a.Coefficients) {
		return nil, fmt.Errorf("%w: %d terms, %d coefficients",
			ErrFeatureCountMismatch, len(a.FeatureNames), len(a.Coefficients))
	}

	m := &Model{
		artifact: cloneArtifact(a),
		terms:    make([]Term, len(a.FeatureNames)),
	}

	for i, name := range a.FeatureNames {
		t, err := Compile(name)
		if err != nil {
			return nil, fmt.Errorf("term %d: %w", i, err)
		}
		m.terms[i] = t
	}

	columns, err := resolveInputs(a.Inputs)
	if err != nil {
		return nil, err
	}
	m.columns = columns

	width := m.InputWidth()
	for i, t := range m.terms {
		if t.MaxIndex() >= width {
			return nil, fmt.Errorf("%w: term %d %q reads x%d but the input vector has %d entries",
				ErrFeatureCountMismatch, i, a.FeatureNames[i], t.MaxIndex(), width)
		}
	}

	return m, nil
}

func resolveInputs(inputs []string) ([]int, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	columns := make([]int, len(inputs))
	for i, key := range inputs {
		if key == BiasInput {
			columns[i] = biasColumn
			continue
		}
		idx := featureIndex(key)
		if idx < 0 {
			return nil, fmt.Errorf("%w: unknown input %q", ErrFeatureCountMismatch, key)
		}
		columns[i] = idx
	}
	return columns, nil
}

func featureIndex(key string) int {
	for i, k := range analyzer.FeatureKeys {
		if k == key {
			return i
		}
	}
	return -1
}

func cloneArtifact(a Artifact) Artifact {
	return Artifact{
		FeatureNames: append([]string(nil), a.FeatureNames...),
		Coefficients: append([]float64(nil), a.Coefficients...),
		Intercept:    a.Intercept,
		Inputs:       append([]string(nil), a.Inputs...),
	}
}

// Score evaluates intercept + sum(coefficient_k * term_k(x)).
func (m *Model) Score(x []float64) (float64, error) {
	if need := m.RequiredInputs(); len(x) < need {
		return 0, fmt.Errorf("%w: model reads %d inputs, got %d", ErrFeatureCountMismatch, need, len(x))
	}
	score := m.artifact.Intercept
	for i, t := range m.terms {
		score += m.artifact.Coefficients[i] * t.Eval(x)
	}
	return score, nil
}

// ScoreFeatures selects the model inputs from fv and scores them.
func (m *Model) ScoreFeatures(fv analyzer.FeatureVector) (float64, error) {
	return m.Score(m.InputVector(fv))
}

// InputVector builds the model input vector from a feature vector
func (m *Model) InputVector(fv analyzer.FeatureVector) []float64 {
	values := fv.Values()
	if m.columns == nil {
		return values
	}
	x := make([]float64, len(m.columns))
	for i, c := range m.columns {
		if c == biasColumn {
			x[i] = 1
			continue
		}
		x[i] = values[c]
	}
	return x
}

// InputWidth returns the length of the vector built by InputVector
func (m *Model) InputWidth() int {
	if m.columns == nil {
		return len(analyzer.FeatureKeys)
	}
	return len(m.columns)
}

// RequiredInputs returns the minimum input vector length Score accepts
func (m *Model) RequiredInputs() int {
	need := 0
	for _, t := range m.terms {
		if t.MaxIndex()+1 > need {
			need = t.MaxIndex() + 1
		}
	}
	return need
}

// Terms returns the compiled terms
func (m *Model) Terms() []Term {
	return append([]Term(nil), m.terms...)
}

// Artifact returns a copy of the serialized form
func (m *Model) Artifact() Artifact {
	return cloneArtifact(m.artifact)
}

// Inputs returns the feature keys forming the input vector
func (m *Model) Inputs() []string {
	if len(m.artifact.Inputs) == 0 {
		return append([]string(nil), analyzer.FeatureKeys...)
	}
	return append([]string(nil), m.artifact.Inputs...)
}

// Degraded reports whether this is the built-in fallback model
func (m *Model) Degraded() bool {
	return m.degraded
}

// Fallback returns the built-in linear model over wv, pg, f, a0, a1 and a3.
// It is a degraded stand-in for a trained artifact, not a production model.
func Fallback() *Model {
	m, err := FromArtifact(Artifact{
		FeatureNames: []string{"x0", "x3", "x4", "x6", "x7", "x9"},
		Coefficients: []float64{-3.886, 0.2868, -0.004756, 9.471e-5, -8.920e-4, -7.009e-4},
		Intercept:    3.310097,
	})
	if err != nil {
		panic(fmt.Sprintf("fallback model: %v", err))
	}
	m.degraded = true
	return m
}

// MarshalJSON writes the artifact form
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.artifact)
}
