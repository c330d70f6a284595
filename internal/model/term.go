package model

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedTerm indicates a feature name outside the term grammar
var ErrMalformedTerm = errors.New("malformed term")

var (
	fetchPattern = regexp.MustCompile(`^x(\d+)$`)
	powerPattern = regexp.MustCompile(`^x(\d+)\^(\d+)$`)
)

// FactorKind tags the variants of Factor
type FactorKind int

const (
	// Constant contributes the value 1
	Constant FactorKind = iota
	// Fetch contributes x[Index] raised to Power
	Fetch
)

// Factor is one multiplicative component of a term.
type Factor struct {
	Kind  FactorKind
	Index int
	Power int
}

// Term is a product of factors.
type Term struct {
	Factors []Factor
}

// Compile parses a feature name such as "1", "x3" or "x0 x1^2".
func Compile(s string) (Term, error) {
	if s == "" {
		return Term{}, fmt.Errorf("%w: empty term", ErrMalformedTerm)
	}

	parts := strings.Split(s, " ")
	term := Term{Factors: make([]Factor, 0, len(parts))}
	for _, part := range parts {
		f, err := compileFactor(part)
		if err != nil {
			return Term{}, fmt.Errorf("%w in %q", err, s)
		}
		term.Factors = append(term.Factors, f)
	}
	return term, nil
}

func compileFactor(s string) (Factor, error) {
	if s == "1" {
		return Factor{Kind: Constant}, nil
	}
	if m := fetchPattern.FindStringSubmatch(s); m != nil {
		index, err := strconv.Atoi(m[1])
		if err != nil {
			return Factor{}, fmt.Errorf("%w: factor %q: %v", ErrMalformedTerm, s, err)
		}
		return Factor{Kind: Fetch, Index: index, Power: 1}, nil
	}
	if m := powerPattern.FindStringSubmatch(s); m != nil {
		index, err := strconv.Atoi(m[1])
		if err != nil {
			return Factor{}, fmt.Errorf("%w: factor %q: %v", ErrMalformedTerm, s, err)
		}
		power, err := strconv.Atoi(m[2])
		if err != nil {
			return Factor{}, fmt.Errorf("%w: factor %q: %v", ErrMalformedTerm, s, err)
		}
		return Factor{Kind: Fetch, Index: index, Power: power}, nil
	}
	return Factor{}, fmt.Errorf("%w: factor %q", ErrMalformedTerm, s)
}

// Eval returns the product of the factor values over x. The caller ensures
// len(x) > MaxIndex().
func (t Term) Eval(x []float64) float64 {
	v := 1.0
	for _, f := range t.Factors {
		if f.Kind == Constant {
			continue
		}
		v *= pow(x[f.Index], f.Power)
	}
	return v
}

// MaxIndex returns the largest fetched index, or -1 for constant-only terms.
func (t Term) MaxIndex() int {
	highest := -1
	for _, f := range t.Factors {
		if f.Kind == Fetch && f.Index > highest {
			highest = f.Index
		}
	}
	return highest
}

// String returns the feature name the term was compiled from
func (t Term) String() string {
	parts := make([]string, len(t.Factors))
	for i, f := range t.Factors {
		switch {
		case f.Kind == Constant:
			parts[i] = "1"
		case f.Power == 1:
			parts[i] = "x" + strconv.Itoa(f.Index)
		default:
			parts[i] = "x" + strconv.Itoa(f.Index) + "^" + strconv.Itoa(f.Power)
		}
	}
	return strings.Join(parts, " ")
}

// pow raises v to a small non-negative integer power by repeated squaring.
func pow(v float64, p int) float64 {
	switch p {
	case 0:
		return 1
	case 1:
		return v
	case 2:
		return v * v
	}
	if p > 64 {
		return math.Pow(v, float64(p))
	}
	r := 1.0
	for p > 0 {
		if p&1 == 1 {
			r *= v
		}
		v *= v
		p >>= 1
	}
	return r
}
