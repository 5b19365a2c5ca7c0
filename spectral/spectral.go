// Package spectral contains physical constants, photon energy conversion, and
// reference spectra (Vega, benchmark stars) used to calibrate the detectors.
package spectral

import (
	"errors"
	"fmt"

	"github.com/pandoramission/pandorasat/caltable"
	"github.com/pandoramission/pandorasat/units"
)

const (
	// Planck is the Planck constant in J s (exact, SI 2019)
	Planck = 6.62607015e-34

	// SpeedOfLight is the speed of light in m/s (exact)
	SpeedOfLight = 299792458.0
)

// PhotonEnergy returns the energy of one photon of the given wavelength, hc/λ
func PhotonEnergy(wavelength units.Length) units.Energy {
	return units.Energy(Planck * SpeedOfLight / wavelength.Meters())
}

// ErrMismatch is generated when a spectrum's wavelength and flux differ in length
var ErrMismatch = errors.New("spectral: wavelength and flux differ in length")

// Spectrum is a flux density sampled on a wavelength grid.
// Flux is in erg / s / cm^2 / Å.
type Spectrum struct {
	Wavelength []units.Length
	Flux       []float64
}

// Validate checks the spectrum is non-empty and consistent
func (s Spectrum) Validate() error {
	if len(s.Wavelength) != len(s.Flux) {
		return fmt.Errorf("%w: %d != %d", ErrMismatch, len(s.Wavelength), len(s.Flux))
	}
	if len(s.Wavelength) < 2 {
		return fmt.Errorf("spectral: spectrum needs at least two samples, has %d", len(s.Wavelength))
	}
	return nil
}

// Angstroms returns the wavelength grid in Å
func (s Spectrum) Angstroms() []float64 {
	return units.In(s.Wavelength, units.Angstrom)
}

// Interp evaluates the spectrum on another grid, zero outside its support
func (s Spectrum) Interp(wavelength []units.Length) ([]float64, error) {
	c, err := caltable.NewCurve(units.In(s.Wavelength, units.Meter), s.Flux, caltable.Zero)
	if err != nil {
		return nil, err
	}
	return c.Eval(units.In(wavelength, units.Meter)), nil
}

// SEDProvider returns a model spectrum for a star of the given effective
// temperature (K), surface gravity (log g, cgs) and magnitude.
// Implementations typically wrap a remote model grid; none is provided here.
type SEDProvider func(teff, logg, mag float64) (Spectrum, error)

// FromTable builds a spectrum from the first two columns of a table, wavelength
// in Å and flux density in erg / s / cm^2 / Å
func FromTable(t *caltable.Table) (Spectrum, error) {
	if len(t.Columns) < 2 {
		return Spectrum{}, fmt.Errorf("spectral: spectrum table needs two columns, has %d", len(t.Columns))
	}
	s := Spectrum{
		Wavelength: units.Lengths(t.Columns[0], units.Angstrom),
		Flux:       append([]float64(nil), t.Columns[1]...),
	}
	return s, s.Validate()
}

// LoadSpectrum reads a two column CSV spectrum (Å, erg/s/cm²/Å) from disk
func LoadSpectrum(path string) (Spectrum, error) {
	t, err := caltable.LoadCSV(path)
	if err != nil {
		return Spectrum{}, err
	}
	s, err := FromTable(t)
	if err != nil {
		return Spectrum{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadVega reads the Vega reference spectrum used for zero-points
func LoadVega(path string) (Spectrum, error) { return LoadSpectrum(path) }

// LoadBenchmark reads the benchmark star spectrum used for SNR requirements
func LoadBenchmark(path string) (Spectrum, error) { return LoadSpectrum(path) }
