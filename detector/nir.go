package detector

import (
	"github.com/pandoramission/pandorasat/caltable"
	"github.com/pandoramission/pandorasat/units"
)

// nirThroughput is the flat transmission of the NIR channel
const nirThroughput = 0.61

// NIR is the near infrared detector, NIRDA, which sits behind a prism
type NIR struct {
	spec Spec
	qe   QECurve

	// dispersion maps pixel offset along the trace to wavelength in meters
	dispersion *caltable.Curve
}

// NewNIR returns NIRDA.  qe is usually UnconfiguredQE; dispersion may be nil
// when no trace is needed.
func NewNIR(qe QECurve, dispersion *caltable.Curve) *NIR {
	return &NIR{spec: NIRSpec, qe: qe, dispersion: dispersion}
}

// Name returns NIRDA
func (n *NIR) Name() string { return "NIRDA" }

// Spec returns the detector geometry and noise
func (n *NIR) Spec() Spec { return n.spec }

// Throughput is 0.61 at every wavelength
func (n *NIR) Throughput(wavelength []units.Length) []float64 {
	out := make([]float64, len(wavelength))
	for i := range out {
		out[i] = nirThroughput
	}
	return out
}

// QE returns the quantum efficiency, or ErrNotConfigured when no curve was given
func (n *NIR) QE(wavelength []units.Length) ([]float64, error) {
	return n.qe.Eval(n.Name(), wavelength)
}

// Gain returns the single valued NIRDA gain
func (n *NIR) Gain() GainTable { return NIRGain }

// Dispersion returns the pixel to wavelength map, if loaded
func (n *NIR) Dispersion() (*caltable.Curve, bool) {
	return n.dispersion, n.dispersion != nil
}
