package caltable

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// DistortionTerm is one coefficient of a SIP distortion polynomial,
// Coeff * u^P * v^Q on the named axis
type DistortionTerm struct {
	// Axis is one of A, B (pixel to ideal) or AP, BP (ideal to pixel)
	Axis string

	// P is the power of the column offset
	P int

	// Q is the power of the row offset
	Q int

	// Coeff is the coefficient, in pixels^(1-P-Q)
	Coeff float64
}

// ReadDistortion parses a distortion coefficient table.  The CSV must have a
// header with columns axis, p, q, coeff in any order.
func ReadDistortion(r io.Reader) ([]DistortionTerm, error) {
	// the axis column is text, so this cannot go through ReadCSV
	recs, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(recs) < 2 {
		return nil, ErrNoData
	}
	col := map[string]int{}
	for i, name := range recs[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, need := range []string{"axis", "p", "q", "coeff"} {
		if _, ok := col[need]; !ok {
			return nil, ErrColumnNotFound{Column: need, Have: recs[0]}
		}
	}
	out := make([]DistortionTerm, 0, len(recs)-1)
	for ln, rec := range recs[1:] {
		var term DistortionTerm
		term.Axis = strings.ToUpper(strings.TrimSpace(rec[col["axis"]]))
		switch term.Axis {
		case "A", "B", "AP", "BP":
		default:
			return nil, fmt.Errorf("caltable: distortion line %d: unknown axis %q", ln+2, term.Axis)
		}
		var p, q float64
		if _, err := fmt.Sscan(rec[col["p"]], &p); err != nil {
			return nil, fmt.Errorf("caltable: distortion line %d p: %w", ln+2, err)
		}
		if _, err := fmt.Sscan(rec[col["q"]], &q); err != nil {
			return nil, fmt.Errorf("caltable: distortion line %d q: %w", ln+2, err)
		}
		if p < 0 || q < 0 || p != math.Trunc(p) || q != math.Trunc(q) {
			return nil, fmt.Errorf("caltable: distortion line %d: powers must be non-negative integers", ln+2)
		}
		term.P, term.Q = int(p), int(q)
		if _, err := fmt.Sscan(rec[col["coeff"]], &term.Coeff); err != nil {
			return nil, fmt.Errorf("caltable: distortion line %d coeff: %w", ln+2, err)
		}
		out = append(out, term)
	}
	return out, nil
}

// LoadDistortion reads a distortion coefficient table from disk
func LoadDistortion(path string) ([]DistortionTerm, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	terms, err := ReadDistortion(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return terms, nil
}
