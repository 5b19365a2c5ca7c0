// Package detector models the two Pandora focal plane arrays, VISDA and
// NIRDA: their throughput, quantum efficiency, sensitivity, zero-point,
// gain, field of view, spectral trace and sky projection.
//
// Each array implements SensorCalibration.  A Detector wraps one with the
// shared optics and computes the expensive derived quantities once, when it
// is built.  Everything is read-only after New, so a Detector may be shared
// between goroutines.
package detector

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/soniakeys/unit"

	"github.com/pandoramission/pandorasat/caltable"
	"github.com/pandoramission/pandorasat/flatfield"
	"github.com/pandoramission/pandorasat/optics"
	"github.com/pandoramission/pandorasat/spectral"
	"github.com/pandoramission/pandorasat/units"
	"github.com/pandoramission/pandorasat/wcs"
)

// Detector is a SensorCalibration together with the optics in front of it
// and the state derived from both
type Detector struct {
	cal    SensorCalibration
	optics optics.Optics
	log    *slog.Logger

	zp    float64
	zpErr error

	mid    units.Length
	midErr error

	fov    *Mask
	fovErr error

	trace    *Trace
	traceErr error

	flat       *flatfield.Flat
	distortion []caltable.DistortionTerm
	sip        *wcs.SIP
}

// Option configures a Detector
type Option func(*Detector)

// WithFlat attaches a flat-field image, which must match the array shape
func WithFlat(f flatfield.Flat) Option {
	return func(d *Detector) {
		d.flat = &f
	}
}

// WithDistortion attaches SIP distortion terms used by WCS
func WithDistortion(terms []caltable.DistortionTerm) Option {
	return func(d *Detector) {
		d.distortion = terms
	}
}

// WithLogger sets the logger for construction messages.  The default
// discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.log = l
	}
}

// New builds a Detector.  vega is the reference spectrum for the zero-point.
// A zero-point, midpoint, field of view or trace that cannot be computed is
// not an error here; the reason is returned by the matching method.
// A flat of the wrong shape or unusable distortion terms are errors.
func New(cal SensorCalibration, o optics.Optics, vega spectral.Spectrum, opts ...Option) (*Detector, error) {
	d := &Detector{cal: cal, optics: o}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d.log = d.log.With("detector", cal.Name())
	s := cal.Spec()

	if d.flat != nil && (d.flat.Rows != s.Rows || d.flat.Cols != s.Cols) {
		return nil, fmt.Errorf("%s flat: %w: flat is %dx%d, detector is %dx%d",
			cal.Name(), flatfield.ErrShape, d.flat.Rows, d.flat.Cols, s.Rows, s.Cols)
	}
	if len(d.distortion) > 0 {
		sip, err := wcs.FromTerms(d.distortion)
		if err != nil {
			return nil, fmt.Errorf("%s distortion: %w", cal.Name(), err)
		}
		if !sip.HasInverse() {
			r0, c0 := s.Center()
			err = sip.FitInverse(s.Cols, s.Rows, [2]float64{c0, r0})
			if err != nil {
				return nil, fmt.Errorf("%s distortion: %w", cal.Name(), err)
			}
			d.log.Debug("fitted SIP inverse", "order", sip.Order()+1)
		}
		d.sip = sip
	}

	d.zp, d.zpErr = ZeroPoint(cal, o, vega)
	d.mid, d.midErr = Midpoint(cal, o)
	d.fov, d.fovErr = FieldOfView(s)
	if _, ok := cal.(Disperser); ok {
		d.trace, d.traceErr = NewTrace(cal, o)
	} else {
		d.traceErr = fmt.Errorf("%w: %s is not dispersed", ErrNotConfigured, cal.Name())
	}
	d.log.Debug("derived state",
		"zeropoint", d.zp, "zeropoint_err", d.zpErr,
		"midpoint_um", d.mid.Microns(), "fieldstop", d.fov != nil, "trace", d.trace != nil)
	return d, nil
}

// Name is the detector name
func (d *Detector) Name() string { return d.cal.Name() }

// Spec returns the geometry, timing and noise
func (d *Detector) Spec() Spec { return d.cal.Spec() }

// Calibration returns the wrapped SensorCalibration
func (d *Detector) Calibration() SensorCalibration { return d.cal }

// Optics returns the optics the detector sits behind
func (d *Detector) Optics() optics.Optics { return d.optics }

// Throughput returns the optical transmission at each wavelength
func (d *Detector) Throughput(wavelength []units.Length) []float64 {
	return d.cal.Throughput(wavelength)
}

// QE returns the quantum efficiency at each wavelength
func (d *Detector) QE(wavelength []units.Length) ([]float64, error) {
	return d.cal.QE(wavelength)
}

// Sensitivity returns the electron rate per unit flux density at each wavelength
func (d *Detector) Sensitivity(wavelength []units.Length) ([]float64, error) {
	return Sensitivity(d.cal, d.optics, wavelength)
}

// ZeroPoint returns the flux of a zero magnitude source, in erg/s/cm²/Å
func (d *Detector) ZeroPoint() (float64, error) { return d.zp, d.zpErr }

// MagnitudeFromFlux converts a flux to a magnitude in this detector's band
func (d *Detector) MagnitudeFromFlux(flux float64) (float64, error) {
	if d.zpErr != nil {
		return 0, d.zpErr
	}
	return MagnitudeFromFlux(flux, d.zp)
}

// FluxFromMagnitude converts a magnitude in this detector's band to a flux
func (d *Detector) FluxFromMagnitude(mag float64) (float64, error) {
	if d.zpErr != nil {
		return 0, d.zpErr
	}
	return FluxFromMagnitude(mag, d.zp), nil
}

// ApplyGain converts electrons to DN or DN to electrons
func (d *Detector) ApplyGain(q units.Quantity) (units.Quantity, error) {
	return d.cal.Gain().Apply(q)
}

// Midpoint is the sensitivity weighted mean wavelength
func (d *Detector) Midpoint() (units.Length, error) { return d.mid, d.midErr }

// FieldOfView returns the fieldstop mask
func (d *Detector) FieldOfView() (*Mask, error) { return d.fov, d.fovErr }

// Trace returns the spectral trace of a dispersed detector
func (d *Detector) Trace() (*Trace, error) { return d.trace, d.traceErr }

// Flat returns the flat-field, if one was attached
func (d *Detector) Flat() (flatfield.Flat, error) {
	if d.flat == nil {
		return flatfield.Flat{}, fmt.Errorf("%w: %s flat-field", ErrNotConfigured, d.Name())
	}
	return *d.flat, nil
}

// WCS returns the sky projection of the array pointed at (ra, dec) with no
// rotation
func (d *Detector) WCS(ra unit.RA, dec unit.Angle) (*wcs.WCS, error) {
	return d.WCSWithRotation(ra, dec, 0)
}

// WCSWithRotation returns the sky projection of the array pointed at
// (ra, dec) at position angle theta
func (d *Detector) WCSWithRotation(ra unit.RA, dec unit.Angle, theta unit.Angle) (*wcs.WCS, error) {
	s := d.Spec()
	r0, c0 := s.Center()
	return wcs.New(wcs.Params{
		RA:       ra,
		Dec:      dec,
		CRPix:    [2]float64{c0, r0},
		Scale:    s.PixelScale,
		Rotation: theta,
		Width:    s.Cols,
		Height:   s.Rows,
		SIP:      d.sip,
	})
}

// Info summarises a detector
type Info struct {
	Name              string   `json:"name"`
	Rows              int      `json:"rows"`
	Cols              int      `json:"cols"`
	PixelScaleArcsec  float64  `json:"pixel_scale_arcsec"`
	PixelPitchMicron  float64  `json:"pixel_pitch_um"`
	FieldstopMM       float64  `json:"fieldstop_radius_mm,omitempty"`
	IntegrationTime   float64  `json:"integration_time_s"`
	Dark              float64  `json:"dark_e_per_s"`
	ReadNoise         *float64 `json:"read_noise_e,omitempty"`
	Bias              *float64 `json:"bias_e,omitempty"`
	Background        *float64 `json:"background_e_per_s,omitempty"`
	MidpointMicron    *float64 `json:"midpoint_um,omitempty"`
	ZeroPoint         *float64 `json:"zeropoint,omitempty"`
	ZeroPointError    string   `json:"zeropoint_error,omitempty"`
	HasFlat           bool     `json:"flat"`
	HasDistortion     bool     `json:"distortion"`
	SubarrayRows      int      `json:"subarray_rows,omitempty"`
	SubarrayCols      int      `json:"subarray_cols,omitempty"`
	SubarrayFrameTime float64  `json:"subarray_frame_time_s,omitempty"`
}

// Info returns a summary of the detector.  Quantities that are not known
// are left out.
func (d *Detector) Info() Info {
	s := d.Spec()
	info := Info{
		Name:              d.Name(),
		Rows:              s.Rows,
		Cols:              s.Cols,
		PixelScaleArcsec:  s.PixelScale.Sec(),
		PixelPitchMicron:  s.PixelPitch.Microns(),
		FieldstopMM:       s.FieldstopRadius.Millimeters(),
		IntegrationTime:   s.IntegrationTime.Seconds(),
		Dark:              s.Dark,
		ReadNoise:         s.ReadNoise.ptr(),
		Bias:              s.Bias.ptr(),
		Background:        s.Background.ptr(),
		HasFlat:           d.flat != nil,
		HasDistortion:     d.sip != nil,
		SubarrayRows:      s.Subarray.Rows,
		SubarrayCols:      s.Subarray.Cols,
		SubarrayFrameTime: s.Subarray.FrameTime().Seconds(),
	}
	if d.midErr == nil {
		m := d.mid.Microns()
		info.MidpointMicron = &m
	}
	if d.zpErr == nil {
		zp := d.zp
		info.ZeroPoint = &zp
	} else {
		info.ZeroPointError = d.zpErr.Error()
	}
	return info
}

// IsNotConfigured reports whether err stems from a missing calibration table
// or detector property
func IsNotConfigured(err error) bool { return errors.Is(err, ErrNotConfigured) }
