// Package caltable holds calibration tables: tabular (x, y) curves and the
// loaders that read them from CSV, VOTable and distortion coefficient files.
package caltable

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Extrapolation is the policy a Curve follows outside its support
type Extrapolation int

const (
	// Zero evaluates to zero outside the support (numpy interp left=0, right=0)
	Zero Extrapolation = iota

	// Edge evaluates to the nearest endpoint's value outside the support
	Edge
)

var (
	// ErrEmpty is generated when a curve is built from no points
	ErrEmpty = errors.New("caltable: curve has no points")

	// ErrLength is generated when x and y differ in length
	ErrLength = errors.New("caltable: x and y differ in length")
)

// Curve is a piecewise linear function sampled at X.  It is immutable after
// NewCurve and safe for concurrent reads.
type Curve struct {
	x, y  []float64
	extra Extrapolation
	pl    interp.PiecewiseLinear
}

// NewCurve builds a curve from samples.  The samples are sorted by x and
// repeated x values keep their first y.  x and y are copied.
func NewCurve(x, y []float64, extra Extrapolation) (*Curve, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLength, len(x), len(y))
	}
	if len(x) == 0 {
		return nil, ErrEmpty
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

	c := &Curve{extra: extra}
	for _, i := range idx {
		if n := len(c.x); n > 0 && c.x[n-1] == x[i] {
			continue
		}
		c.x = append(c.x, x[i])
		c.y = append(c.y, y[i])
	}
	if len(c.x) > 1 {
		if err := c.pl.Fit(c.x, c.y); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustCurve is NewCurve for package level tables known to be valid; it panics on error
func MustCurve(x, y []float64, extra Extrapolation) *Curve {
	c, err := NewCurve(x, y, extra)
	if err != nil {
		panic(err)
	}
	return c
}

// Constant returns a curve equal to v everywhere
func Constant(v float64) *Curve {
	return &Curve{x: []float64{0}, y: []float64{v}, extra: Edge}
}

// At evaluates the curve at x
func (c *Curve) At(x float64) float64 {
	lo, hi := c.x[0], c.x[len(c.x)-1]
	if x < lo || x > hi {
		if c.extra == Zero {
			return 0
		}
		if x < lo {
			return c.y[0]
		}
		return c.y[len(c.y)-1]
	}
	if len(c.x) == 1 {
		return c.y[0]
	}
	return c.pl.Predict(x)
}

// Eval evaluates the curve at every x in xs
func (c *Curve) Eval(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = c.At(x)
	}
	return out
}

// Domain returns the smallest and largest sampled x
func (c *Curve) Domain() (float64, float64) {
	return c.x[0], c.x[len(c.x)-1]
}

// Len is the number of distinct samples
func (c *Curve) Len() int { return len(c.x) }

// Samples returns copies of the sorted sample points
func (c *Curve) Samples() (x, y []float64) {
	x = append([]float64(nil), c.x...)
	y = append([]float64(nil), c.y...)
	return x, y
}
