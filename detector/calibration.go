package detector

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"

	"github.com/pandoramission/pandorasat/caltable"
	"github.com/pandoramission/pandorasat/optics"
	"github.com/pandoramission/pandorasat/spectral"
	"github.com/pandoramission/pandorasat/units"
)

// SensorCalibration describes the wavelength dependent response of a
// detector.  NIR and Visible implement it independently; the photometry
// built on top (sensitivity, zero-point, magnitudes) lives in free functions
// in this file.
type SensorCalibration interface {
	// Name is the detector name, e.g. VISDA
	Name() string

	// Spec returns the fixed geometry, timing and noise properties
	Spec() Spec

	// Throughput returns the optical transmission at each wavelength
	Throughput(wavelength []units.Length) []float64

	// QE returns the quantum efficiency (electron / photon) at each wavelength.
	// Wavelengths outside the QE curve evaluate to zero.
	QE(wavelength []units.Length) ([]float64, error)

	// Gain returns the gain table used to convert electrons and counts
	Gain() GainTable
}

// Disperser is implemented by detectors that sit behind a disperser and map
// pixel position along a trace to wavelength
type Disperser interface {
	// Dispersion maps pixel offset along the trace to wavelength in meters
	Dispersion() (*caltable.Curve, bool)
}

// QECurve is the quantum efficiency of a detector, either Configured with a
// curve or Unconfigured.  The zero value is Unconfigured.
type QECurve struct {
	curve *caltable.Curve
}

// ConfiguredQE returns a QE backed by c, whose x axis is wavelength in meters
func ConfiguredQE(c *caltable.Curve) QECurve { return QECurve{curve: c} }

// UnconfiguredQE is a QE with no curve; evaluating it is a configuration error
var UnconfiguredQE = QECurve{}

// Configured reports whether a curve is present
func (q QECurve) Configured() bool { return q.curve != nil }

// Eval evaluates the QE at each wavelength
func (q QECurve) Eval(detector string, wavelength []units.Length) ([]float64, error) {
	if q.curve == nil {
		return nil, fmt.Errorf("%w: %s quantum efficiency", ErrNotConfigured, detector)
	}
	return q.curve.Eval(units.In(wavelength, units.Meter)), nil
}

// referenceSED is the unit flux density the sensitivity is normalized to,
// 1 erg / s / cm^2 / Å
const referenceSED = 1.0

// Sensitivity returns the detected electron rate per unit flux density at each
// wavelength: area * throughput * QE / photon energy, with area in cm^2 and
// photon energy in erg.  Multiply by a spectrum in erg/s/cm²/Å and integrate
// over Å to get electrons per second.
func Sensitivity(cal SensorCalibration, o optics.Optics, wavelength []units.Length) ([]float64, error) {
	qe, err := cal.QE(wavelength)
	if err != nil {
		return nil, err
	}
	tp := cal.Throughput(wavelength)
	area := o.AreaCm2()
	out := make([]float64, len(wavelength))
	for i, wl := range wavelength {
		if tp[i] == 0 || qe[i] == 0 {
			continue
		}
		e := spectral.PhotonEnergy(wl).Ergs()
		photonFluxDensity := area * referenceSED * tp[i] / e
		out[i] = photonFluxDensity * qe[i] / referenceSED
	}
	return out, nil
}

// degenerate is the magnitude below which an integrated sensitivity counts as zero
const degenerate = 1e-30

// ZeroPoint estimates the flux of a magnitude zero source in the detector's
// band from a reference (Vega) spectrum, ∫F·S dλ / ∫S dλ, by trapezoidal
// integration on the reference spectrum's own wavelength samples.
func ZeroPoint(cal SensorCalibration, o optics.Optics, vega spectral.Spectrum) (float64, error) {
	err := vega.Validate()
	if err != nil {
		return 0, err
	}
	wl, flux := sortedSpectrum(vega)
	if len(wl) < 2 {
		return 0, fmt.Errorf("%w: reference spectrum has one distinct wavelength", ErrDegenerateZeroPoint)
	}
	sens, err := Sensitivity(cal, o, wl)
	if err != nil {
		return 0, err
	}
	x := units.In(wl, units.Angstrom)
	weighted := make([]float64, len(sens))
	for i := range sens {
		weighted[i] = flux[i] * sens[i]
	}
	den := integrate.Trapezoidal(x, sens)
	if math.IsNaN(den) || math.IsInf(den, 0) || math.Abs(den) < degenerate {
		return 0, fmt.Errorf("%w: %s", ErrDegenerateZeroPoint, cal.Name())
	}
	return integrate.Trapezoidal(x, weighted) / den, nil
}

// MagnitudeFromFlux converts a flux to a magnitude against zero-point zp
func MagnitudeFromFlux(flux, zp float64) (float64, error) {
	if !(flux > 0) || !(zp > 0) {
		return 0, fmt.Errorf("%w: flux %g, zero-point %g", ErrDomain, flux, zp)
	}
	return -2.5 * math.Log10(flux/zp), nil
}

// FluxFromMagnitude converts a magnitude to a flux against zero-point zp
func FluxFromMagnitude(mag, zp float64) float64 {
	return zp * math.Pow(10, -mag/2.5)
}

// Midpoint returns the sensitivity weighted mean wavelength over 0.1 to 3 µm
func Midpoint(cal SensorCalibration, o optics.Optics) (units.Length, error) {
	wl := units.Arange(0.1*units.Micron, 3*units.Micron, 0.005*units.Micron)
	sens, err := Sensitivity(cal, o, wl)
	if err != nil {
		return 0, err
	}
	var num, den float64
	for i, s := range sens {
		num += s * wl[i].Meters()
		den += s
	}
	if den == 0 {
		return 0, fmt.Errorf("%w: %s has no sensitivity between 0.1 and 3 um", ErrDomain, cal.Name())
	}
	return units.Length(num / den), nil
}

// sortedSpectrum returns the samples of s in increasing wavelength, dropping
// repeated wavelengths, as the trapezoid rule needs
func sortedSpectrum(s spectral.Spectrum) ([]units.Length, []float64) {
	idx := make([]int, len(s.Wavelength))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return s.Wavelength[idx[i]] < s.Wavelength[idx[j]] })
	wl := make([]units.Length, 0, len(idx))
	flux := make([]float64, 0, len(idx))
	for _, i := range idx {
		if n := len(wl); n > 0 && wl[n-1] == s.Wavelength[i] {
			continue
		}
		wl = append(wl, s.Wavelength[i])
		flux = append(flux, s.Flux[i])
	}
	return wl, flux
}
