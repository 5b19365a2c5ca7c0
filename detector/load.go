package detector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pandoramission/pandorasat/caltable"
	"github.com/pandoramission/pandorasat/units"
)

// LoadVisible builds VISDA from its dichroic transmission CSV (nm, percent),
// QE VOTable (Wavelength in Å, Transmission) and trace dispersion CSV.  An
// empty dispersionPath leaves the detector without a trace.
func LoadVisible(dichroicPath, qePath, dispersionPath string) (*Visible, error) {
	t, err := caltable.LoadCSV(dichroicPath)
	if err != nil {
		return nil, err
	}
	dichroic, err := t.Curve(0, 1, 1, caltable.Edge)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dichroicPath, err)
	}
	qe, err := LoadQE(qePath)
	if err != nil {
		return nil, err
	}
	var dispersion *caltable.Curve
	if dispersionPath != "" {
		dispersion, err = LoadDispersion(dispersionPath)
		if err != nil {
			return nil, err
		}
	}
	return NewVisible(dichroic, qe, dispersion), nil
}

// LoadNIR builds NIRDA.  An empty qePath leaves the QE unconfigured and an
// empty dispersionPath leaves the detector without a trace.
func LoadNIR(qePath, dispersionPath string) (*NIR, error) {
	qe := UnconfiguredQE
	if qePath != "" {
		var err error
		qe, err = LoadQE(qePath)
		if err != nil {
			return nil, err
		}
	}
	var dispersion *caltable.Curve
	if dispersionPath != "" {
		var err error
		dispersion, err = LoadDispersion(dispersionPath)
		if err != nil {
			return nil, err
		}
	}
	return NewNIR(qe, dispersion), nil
}

// LoadQE reads a QE table with columns Wavelength (Å) and Transmission,
// from a VOTable (.xml, .vot) or CSV file
func LoadQE(path string) (QECurve, error) {
	var (
		t   *caltable.Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".vot":
		t, err = caltable.LoadVOTable(path)
	default:
		t, err = caltable.LoadCSV(path)
	}
	if err != nil {
		return UnconfiguredQE, err
	}
	c, err := namedCurve(t, "Wavelength", "Transmission", float64(units.Angstrom), caltable.Zero)
	if err != nil {
		return UnconfiguredQE, fmt.Errorf("%s: %w", path, err)
	}
	return ConfiguredQE(c), nil
}

// LoadDispersion reads a trace dispersion CSV, columns pixel and
// wavelength (µm), into a curve from pixel offset to wavelength in meters
func LoadDispersion(path string) (*caltable.Curve, error) {
	t, err := caltable.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	c, err := namedCurve(t, "pixel", "wavelength", 1, caltable.Edge)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	x, y := c.Samples()
	for i := range y {
		y[i] *= float64(units.Micron)
	}
	return caltable.NewCurve(x, y, caltable.Edge)
}

func namedCurve(t *caltable.Table, xName, yName string, xScale float64, extra caltable.Extrapolation) (*caltable.Curve, error) {
	x, err := t.Column(xName)
	if err != nil {
		return nil, err
	}
	y, err := t.Column(yName)
	if err != nil {
		return nil, err
	}
	xs := make([]float64, len(x))
	for i, v := range x {
		xs[i] = v * xScale
	}
	return caltable.NewCurve(xs, y, extra)
}
