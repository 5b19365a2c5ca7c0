package detector

import (
	"fmt"
	"math"

	"github.com/pandoramission/pandorasat/optics"
	"github.com/pandoramission/pandorasat/units"
)

// TraceStart and TraceEnd bound the pixel offsets, relative to the
// reference pixel, that a spectral trace covers: [TraceStart, TraceEnd)
const (
	TraceStart = -200
	TraceEnd   = 100
)

// Trace is a spectrum dispersed along the detector's rows
type Trace struct {
	// Pixel is the offset from the reference pixel along the trace
	Pixel []float64

	// Wavelength is the wavelength falling on each pixel
	Wavelength []units.Length

	// Sensitivity is the electron rate per pixel for a unit flux density
	// source, S(λ)·|dλ/dpixel| with dλ in Å
	Sensitivity []float64
}

// NewTrace builds the trace of a detector that has a dispersion table
func NewTrace(cal SensorCalibration, o optics.Optics) (*Trace, error) {
	d, ok := cal.(Disperser)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not dispersed", ErrNotConfigured, cal.Name())
	}
	disp, ok := d.Dispersion()
	if !ok {
		return nil, fmt.Errorf("%w: %s dispersion table", ErrNotConfigured, cal.Name())
	}
	n := TraceEnd - TraceStart
	tr := &Trace{
		Pixel:      make([]float64, n),
		Wavelength: make([]units.Length, n),
	}
	width := make([]float64, n)
	for i := range tr.Pixel {
		p := float64(TraceStart + i)
		tr.Pixel[i] = p
		tr.Wavelength[i] = units.Length(disp.At(p))
		dl := units.Length(disp.At(p+0.5) - disp.At(p-0.5))
		width[i] = math.Abs(dl.Angstroms())
	}
	sens, err := Sensitivity(cal, o, tr.Wavelength)
	if err != nil {
		return nil, err
	}
	for i := range sens {
		sens[i] *= width[i]
	}
	tr.Sensitivity = sens
	return tr, nil
}
