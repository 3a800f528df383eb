package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Series is a per-snapshot parameter that may be given either as a single
// scalar (applied to every snapshot) or as one value per snapshot.
//
// YAML/JSON accept both shapes:
//
//	marginal_cost: 4
//	marginal_cost: [0, 2, 4, 8]
type Series struct {
	Scalar float64
	Values []float64
}

// Const returns a scalar series.
func Const(v float64) Series { return Series{Scalar: v} }

// Of returns a per-snapshot series. The slice is copied.
func Of(values ...float64) Series {
	out := make([]float64, len(values))
	copy(out, values)
	return Series{Values: out}
}

// IsVarying reports whether the series carries one value per snapshot.
func (s Series) IsVarying() bool { return s.Values != nil }

// Len is the number of per-snapshot values, or 0 for a scalar.
func (s Series) Len() int { return len(s.Values) }

// At returns the value at snapshot t.
func (s Series) At(t int) float64 {
	if s.Values == nil {
		return s.Scalar
	}
	return s.Values[t]
}

// Expand materializes the series for n snapshots.
func (s Series) Expand(n int) []float64 {
	out := make([]float64, n)
	for t := range out {
		out[t] = s.At(t)
	}
	return out
}

func (s Series) checkLen(n int, field string) error {
	if s.Values != nil && len(s.Values) != n {
		return fmt.Errorf("%s has %d values, expected %d", field, len(s.Values), n)
	}
	return nil
}

func (s Series) checkRange(lo, hi float64, field string) error {
	if s.Values == nil {
		if s.Scalar < lo || s.Scalar > hi {
			return fmt.Errorf("%s must be in [%g, %g], got %g", field, lo, hi, s.Scalar)
		}
		return nil
	}
	for t, v := range s.Values {
		if v < lo || v > hi {
			return fmt.Errorf("%s[%d] must be in [%g, %g], got %g", field, t, lo, hi, v)
		}
	}
	return nil
}

func (s *Series) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = Series{Scalar: v}
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return err
		}
		if vs == nil {
			vs = []float64{}
		}
		*s = Series{Values: vs}
		return nil
	default:
		return fmt.Errorf("line %d: expected number or list of numbers", node.Line)
	}
}

func (s Series) MarshalYAML() (interface{}, error) {
	if s.Values != nil {
		return s.Values, nil
	}
	return s.Scalar, nil
}

func (s *Series) UnmarshalJSON(b []byte) error {
	var vs []float64
	if err := json.Unmarshal(b, &vs); err == nil {
		if vs == nil {
			// JSON null leaves the zero scalar.
			*s = Series{}
			return nil
		}
		*s = Series{Values: vs}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("expected number or array of numbers: %w", err)
	}
	*s = Series{Scalar: v}
	return nil
}

func (s Series) MarshalJSON() ([]byte, error) {
	if s.Values != nil {
		return json.Marshal(s.Values)
	}
	return json.Marshal(s.Scalar)
}
