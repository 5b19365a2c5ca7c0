package wcs

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pandoramission/pandorasat/caltable"
)

// ErrNoForward is generated when a distortion table has neither A nor B terms
var ErrNoForward = errors.New("wcs: distortion has no A or B terms")

// Term is one coefficient of a distortion polynomial, C * u^P * v^Q
type Term struct {
	P, Q int
	C    float64
}

// Poly is a sum of Terms
type Poly []Term

// Eval evaluates the polynomial at (u, v)
func (p Poly) Eval(u, v float64) float64 {
	var s float64
	for _, t := range p {
		s += t.C * math.Pow(u, float64(t.P)) * math.Pow(v, float64(t.Q))
	}
	return s
}

// Order is the largest P+Q in the polynomial
func (p Poly) Order() int {
	o := 0
	for _, t := range p {
		if n := t.P + t.Q; n > o {
			o = n
		}
	}
	return o
}

// SIP is a Simple Imaging Polynomial distortion.  A and B take pixel offsets
// from the reference pixel to undistorted offsets; AP and BP go back.
type SIP struct {
	A, B   Poly
	AP, BP Poly
}

// HasInverse reports whether AP or BP are populated
func (s *SIP) HasInverse() bool { return len(s.AP) > 0 || len(s.BP) > 0 }

// Order is the order of the forward polynomials
func (s *SIP) Order() int {
	a, b := s.A.Order(), s.B.Order()
	if a > b {
		return a
	}
	return b
}

// Forward applies A and B to the offset (u, v)
func (s *SIP) Forward(u, v float64) (float64, float64) {
	return u + s.A.Eval(u, v), v + s.B.Eval(u, v)
}

// Inverse applies AP and BP to the undistorted offset (u, v)
func (s *SIP) Inverse(u, v float64) (float64, float64) {
	return u + s.AP.Eval(u, v), v + s.BP.Eval(u, v)
}

// FromTerms groups distortion table rows by axis
func FromTerms(terms []caltable.DistortionTerm) (*SIP, error) {
	s := &SIP{}
	for _, t := range terms {
		term := Term{P: t.P, Q: t.Q, C: t.Coeff}
		switch t.Axis {
		case "A":
			s.A = append(s.A, term)
		case "B":
			s.B = append(s.B, term)
		case "AP":
			s.AP = append(s.AP, term)
		case "BP":
			s.BP = append(s.BP, term)
		default:
			return nil, fmt.Errorf("wcs: unknown distortion axis %q", t.Axis)
		}
	}
	if len(s.A) == 0 && len(s.B) == 0 {
		return nil, ErrNoForward
	}
	return s, nil
}

// fitGrid is the number of samples per axis used to fit the inverse
const fitGrid = 32

// FitInverse fills AP and BP by linear least squares on a grid over a
// width x height pixel array whose reference pixel is crpix.  The inverse is
// one order higher than the forward polynomials.
func (s *SIP) FitInverse(width, height int, crpix [2]float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("wcs: cannot fit a distortion inverse over a %dx%d array", width, height)
	}
	order := s.Order() + 1
	if order < 2 {
		order = 2
	}
	var powers [][2]int
	for n := 2; n <= order; n++ {
		for p := n; p >= 0; p-- {
			powers = append(powers, [2]int{p, n - p})
		}
	}
	// normalise so the design matrix stays well conditioned
	norm := math.Max(float64(width), float64(height)) / 2

	npts := fitGrid * fitGrid
	design := mat.NewDense(npts, len(powers), nil)
	du := mat.NewVecDense(npts, nil)
	dv := mat.NewVecDense(npts, nil)
	k := 0
	for i := 0; i < fitGrid; i++ {
		for j := 0; j < fitGrid; j++ {
			u := float64(j)*float64(width-1)/(fitGrid-1) - crpix[0]
			v := float64(i)*float64(height-1)/(fitGrid-1) - crpix[1]
			U, V := s.Forward(u, v)
			for c, pq := range powers {
				design.Set(k, c, math.Pow(U/norm, float64(pq[0]))*math.Pow(V/norm, float64(pq[1])))
			}
			du.SetVec(k, u-U)
			dv.SetVec(k, v-V)
			k++
		}
	}
	var cu, cv mat.VecDense
	if err := cu.SolveVec(design, du); err != nil {
		return fmt.Errorf("wcs: fitting AP: %w", err)
	}
	if err := cv.SolveVec(design, dv); err != nil {
		return fmt.Errorf("wcs: fitting BP: %w", err)
	}
	s.AP, s.BP = nil, nil
	for c, pq := range powers {
		scale := math.Pow(norm, float64(pq[0]+pq[1]))
		s.AP = append(s.AP, Term{P: pq[0], Q: pq[1], C: cu.AtVec(c) / scale})
		s.BP = append(s.BP, Term{P: pq[0], Q: pq[1], C: cv.AtVec(c) / scale})
	}
	return nil
}
