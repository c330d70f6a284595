package classifier

import (
	"errors"
	"fmt"
)

// Verdict is the three-way sharpness classification of a photograph
type Verdict int

const (
	Unsharp Verdict = iota
	Questionable
	Sharp
)

var verdictNames = map[Verdict]string{
	Unsharp:      "unsharp",
	Questionable: "questionable",
	Sharp:        "sharp",
}

// String returns the lower-case verdict name
func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Bucket returns the output directory a photograph with this verdict is
// routed into.
func (v Verdict) Bucket() string {
	return v.String()
}

// ParseVerdict parses a verdict name
func ParseVerdict(s string) (Verdict, error) {
	for v, name := range verdictNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown verdict %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (v Verdict) MarshalText() ([]byte, error) {
	if _, ok := verdictNames[v]; !ok {
		return nil, fmt.Errorf("invalid verdict %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ErrInvalidThresholds indicates cut points that do not satisfy Low < High
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Thresholds are the two cut points between the verdicts
type Thresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// DefaultThresholds returns the operating thresholds the models were fitted
// against.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 2.5, High: 3.0}
}

// Validate checks Low < High
func (t Thresholds) Validate() error {
	if !(t.Low < t.High) {
		return fmt.Errorf("%w: low %v must be below high %v", ErrInvalidThresholds, t.Low, t.High)
	}
	return nil
}

// Classify maps a score onto a verdict: below Low is Unsharp, from Low up to
// High is Questionable, High and above is Sharp.
func (t Thresholds) Classify(score float64) Verdict {
	switch {
	case score >= t.High:
		return Sharp
	case score >= t.Low:
		return Questionable
	default:
		return Unsharp
	}
}
