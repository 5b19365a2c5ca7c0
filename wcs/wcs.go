// Package wcs maps between sky and pixel coordinates with a gnomonic (TAN)
// projection and optional SIP polynomial distortion.
//
// Pixel coordinates are zero based (x, y) = (column, row).
package wcs

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/unit"
)

var (
	// ErrScale is generated when the pixel scale is zero or negative
	ErrScale = errors.New("wcs: pixel scale must be positive")

	// ErrBehind is generated for sky positions 90° or more from the tangent
	// point, which do not project onto the plane
	ErrBehind = errors.New("wcs: position is not on the tangent plane")
)

// Params describe a WCS
type Params struct {
	// RA and Dec are the sky position of the reference pixel (CRVAL)
	RA  unit.RA
	Dec unit.Angle

	// CRPix is the (x, y) of the reference pixel
	CRPix [2]float64

	// Scale is the angle subtended by one pixel
	Scale unit.Angle

	// Rotation is the position angle of the array, east of north
	Rotation unit.Angle

	// Width and Height give the array size, used to fit a missing SIP inverse
	Width, Height int

	// SIP is the distortion, nil for none
	SIP *SIP
}

// WCS is a sky <-> pixel transform.  It is immutable once built.
type WCS struct {
	p Params

	// cd maps pixel offsets to intermediate world coordinates in radians,
	// cdInv maps back
	cd, cdInv [2][2]float64

	sinDec0, cosDec0 float64
}

// New builds a WCS.  A SIP with only forward terms has its inverse fitted
// over the array given by Width and Height.
func New(p Params) (*WCS, error) {
	if !(p.Scale > 0) {
		return nil, ErrScale
	}
	if p.SIP != nil && !p.SIP.HasInverse() {
		sip := *p.SIP
		err := sip.FitInverse(p.Width, p.Height, p.CRPix)
		if err != nil {
			return nil, err
		}
		p.SIP = &sip
	}
	s := p.Scale.Rad()
	sin, cos := math.Sincos(p.Rotation.Rad())
	w := &WCS{p: p}
	// east to the left with north up at zero rotation
	w.cd = [2][2]float64{
		{-s * cos, s * sin},
		{s * sin, s * cos},
	}
	det := w.cd[0][0]*w.cd[1][1] - w.cd[0][1]*w.cd[1][0]
	w.cdInv = [2][2]float64{
		{w.cd[1][1] / det, -w.cd[0][1] / det},
		{-w.cd[1][0] / det, w.cd[0][0] / det},
	}
	w.sinDec0, w.cosDec0 = math.Sincos(p.Dec.Rad())
	return w, nil
}

// Params returns the parameters the WCS was built from, with any fitted
// SIP inverse filled in
func (w *WCS) Params() Params { return w.p }

// Pix2World returns the sky position of pixel (x, y)
func (w *WCS) Pix2World(x, y float64) (unit.RA, unit.Angle) {
	u, v := x-w.p.CRPix[0], y-w.p.CRPix[1]
	if w.p.SIP != nil {
		u, v = w.p.SIP.Forward(u, v)
	}
	xi := w.cd[0][0]*u + w.cd[0][1]*v
	eta := w.cd[1][0]*u + w.cd[1][1]*v

	den := w.cosDec0 - eta*w.sinDec0
	ra := w.p.RA.Rad() + math.Atan2(xi, den)
	dec := math.Atan2(eta*w.cosDec0+w.sinDec0, math.Hypot(xi, den))
	return unit.RAFromRad(ra), unit.Angle(dec)
}

// World2Pix returns the pixel position of a sky position.  Positions 90° or
// more from the reference return ErrBehind.
func (w *WCS) World2Pix(ra unit.RA, dec unit.Angle) (float64, float64, error) {
	sinDec, cosDec := math.Sincos(dec.Rad())
	sinDRA, cosDRA := math.Sincos(ra.Rad() - w.p.RA.Rad())
	cosc := w.sinDec0*sinDec + w.cosDec0*cosDec*cosDRA
	if cosc <= 0 {
		return 0, 0, fmt.Errorf("%w: %.4f° from the reference", ErrBehind, math.Acos(cosc)*180/math.Pi)
	}
	xi := cosDec * sinDRA / cosc
	eta := (w.cosDec0*sinDec - w.sinDec0*cosDec*cosDRA) / cosc

	u := w.cdInv[0][0]*xi + w.cdInv[0][1]*eta
	v := w.cdInv[1][0]*xi + w.cdInv[1][1]*eta
	if w.p.SIP != nil {
		u, v = w.p.SIP.Inverse(u, v)
	}
	return u + w.p.CRPix[0], v + w.p.CRPix[1], nil
}
