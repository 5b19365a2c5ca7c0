package detector

import (
	"github.com/pandoramission/pandorasat/caltable"
	"github.com/pandoramission/pandorasat/units"
)

const (
	// visibleCutOn is the wavelength below which VISDA sees no light
	visibleCutOn = 380 * units.Nanometer

	// visibleScale is the transmission of the optics ahead of the dichroic
	visibleScale = 0.752
)

// Visible is the visible detector, VISDA.  Its throughput is set by the
// transmission of the dichroic that splits light between the two arrays.
type Visible struct {
	spec Spec

	// dichroic maps wavelength (nm) to the percentage of light sent to NIRDA
	dichroic *caltable.Curve

	qe QECurve

	// dispersion maps pixel offset along the trace to wavelength in meters
	dispersion *caltable.Curve
}

// NewVisible returns VISDA from its dichroic curve, x in nm and y in percent,
// its QE and its trace dispersion.  A nil dichroic sends all light to VISDA;
// dispersion may be nil when no trace is needed.
func NewVisible(dichroic *caltable.Curve, qe QECurve, dispersion *caltable.Curve) *Visible {
	if dichroic == nil {
		dichroic = caltable.Constant(0)
	}
	return &Visible{spec: VisibleSpec, dichroic: dichroic, qe: qe, dispersion: dispersion}
}

// Name returns VISDA
func (v *Visible) Name() string { return "VISDA" }

// Spec returns the detector geometry and noise
func (v *Visible) Spec() Spec { return v.spec }

// Throughput returns (100 - dichroic%)/100 * 0.752, zero below 380 nm
func (v *Visible) Throughput(wavelength []units.Length) []float64 {
	out := make([]float64, len(wavelength))
	for i, wl := range wavelength {
		if wl < visibleCutOn {
			continue
		}
		out[i] = (100 - v.dichroic.At(wl.Nanometers())) / 100 * visibleScale
	}
	return out
}

// QE returns the quantum efficiency, zero outside the measured curve
func (v *Visible) QE(wavelength []units.Length) ([]float64, error) {
	return v.qe.Eval(v.Name(), wavelength)
}

// Gain returns the non-linear VISDA gain table
func (v *Visible) Gain() GainTable { return VisibleGain }

// Dispersion returns the pixel to wavelength map, if loaded
func (v *Visible) Dispersion() (*caltable.Curve, bool) {
	return v.dispersion, v.dispersion != nil
}
