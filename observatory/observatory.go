// Package observatory assembles the Pandora observatory: optics, orbit, both
// detectors and a jittered pointing over one observation.
package observatory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/soniakeys/unit"

	"github.com/pandoramission/pandorasat/caltable"
	"github.com/pandoramission/pandorasat/config"
	"github.com/pandoramission/pandorasat/detector"
	"github.com/pandoramission/pandorasat/flatfield"
	"github.com/pandoramission/pandorasat/jitter"
	"github.com/pandoramission/pandorasat/optics"
	"github.com/pandoramission/pandorasat/spectral"
	"github.com/pandoramission/pandorasat/units"
)

// ErrUnknownDetector is generated when a detector name matches neither array
var ErrUnknownDetector = errors.New("observatory: unknown detector")

// jitterOversample is the number of jitter samples per correlation time
const jitterOversample = 5

// Pointing is where the observatory is looking
type Pointing struct {
	RA  unit.RA
	Dec unit.Angle

	// Theta is the position angle
	Theta unit.Angle
}

func (p Pointing) String() string {
	return fmt.Sprintf("RA: %.3f°, Dec: %.3f°, theta: %.3f°", p.RA.Deg(), p.Dec.Deg(), p.Theta.Deg())
}

// Track is the jittered pointing of one detector, one entry per frame
type Track struct {
	// Time is seconds from the start of the observation
	Time []float64

	// Row and Col are the jitter in pixels
	Row, Col []float64

	// Theta is the position angle, nominal plus jitter, in degrees
	Theta []float64

	// RA and Dec are the sky position of the array centre
	RA  []unit.RA
	Dec []unit.Angle
}

// Len is the number of frames
func (t Track) Len() int { return len(t.Time) }

// Observatory is read-only after New
type Observatory struct {
	Optics optics.Optics
	Orbit  optics.Orbit

	NIR     *detector.Detector
	Visible *detector.Detector

	pointing Pointing
	start    time.Time
	duration time.Duration
	jparams  jitter.Params
	jit      jitter.Series
	tracks   map[string]Track
	log      *slog.Logger
}

// Option configures New
type Option func(*Observatory)

// WithLogger sets the logger, which is also handed to both detectors
func WithLogger(l *slog.Logger) Option {
	return func(o *Observatory) {
		o.log = l
	}
}

// New loads the calibration tables named by cfg, builds both detectors and
// generates the jitter for the observation.  Any failure is returned and no
// Observatory is made.
func New(cfg config.Config, opts ...Option) (*Observatory, error) {
	o := &Observatory{
		Optics: optics.Optics{MirrorDiameter: units.Length(cfg.MirrorDiameter) * units.Meter},
		Orbit:  optics.NewOrbit(),
		pointing: Pointing{
			RA:    unit.RAFromDeg(cfg.Pointing.RA),
			Dec:   unit.AngleFromDeg(cfg.Pointing.Dec),
			Theta: unit.AngleFromDeg(cfg.Pointing.Theta),
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Optics.MirrorDiameter <= 0 {
		return nil, fmt.Errorf("observatory: mirror diameter must be positive, got %v", o.Optics.MirrorDiameter)
	}
	var err error
	o.start, o.duration, err = cfg.Observation.Span()
	if err != nil {
		return nil, err
	}

	vega, err := spectral.LoadVega(cfg.Path(cfg.Tables.Vega))
	if err != nil {
		return nil, err
	}
	vis, err := detector.LoadVisible(cfg.Path(cfg.Tables.Dichroic), cfg.Path(cfg.Tables.VisibleQE), cfg.Path(cfg.Tables.VisibleDispersion))
	if err != nil {
		return nil, err
	}
	o.Visible, err = o.newDetector(cfg, vis, vega, cfg.Tables.VisibleDistortion)
	if err != nil {
		return nil, err
	}
	nir, err := detector.LoadNIR(cfg.Path(cfg.Tables.NIRQE), cfg.Path(cfg.Tables.Dispersion))
	if err != nil {
		return nil, err
	}
	o.NIR, err = o.newDetector(cfg, nir, vega, cfg.Tables.NIRDistortion)
	if err != nil {
		return nil, err
	}

	err = o.generateJitter(cfg.Jitter)
	if err != nil {
		return nil, err
	}
	o.log.Info("observatory ready", "pointing", o.pointing.String(),
		"duration", o.duration, "jitter_samples", o.jit.Len())
	return o, nil
}

func (o *Observatory) newDetector(cfg config.Config, cal detector.SensorCalibration, vega spectral.Spectrum, distortion string) (*detector.Detector, error) {
	opts := []detector.Option{detector.WithLogger(o.log)}
	flat, _, err := flatfield.LoadLatest(cfg.FlatPath(), cal.Name())
	switch {
	case err == nil:
		opts = append(opts, detector.WithFlat(flat))
	case errors.Is(err, flatfield.ErrNoFlat):
		o.log.Debug("no flat-field", "detector", cal.Name(), "dir", cfg.FlatPath())
	default:
		return nil, err
	}
	if distortion != "" {
		terms, err := caltable.LoadDistortion(cfg.Path(distortion))
		if err != nil {
			return nil, err
		}
		opts = append(opts, detector.WithDistortion(terms))
	}
	return detector.New(cal, o.Optics, vega, opts...)
}

// generateJitter draws jitter once for the whole observation, at five
// samples per correlation time, and resamples it onto each detector's frames
func (o *Observatory) generateJitter(c config.Jitter) error {
	timescale, err := c.CorrelationTime()
	if err != nil {
		return err
	}
	o.jparams = jitter.Params{
		RowSigma:        c.RowSigma,
		ColSigma:        c.ColSigma,
		ThetaSigma:      c.ThetaSigma,
		CorrelationTime: timescale,
		FrameTime:       timescale / jitterOversample,
		N:               int(jitterOversample * o.duration.Seconds() / timescale.Seconds()),
	}
	if c.Seed >= 0 {
		o.jparams.Seed = jitter.Seed(uint64(c.Seed))
	}
	o.jit, err = jitter.Generate(o.jparams)
	if err != nil {
		return fmt.Errorf("observatory: observation of %v is shorter than a fifth of the jitter timescale %v: %w",
			o.duration, timescale, err)
	}
	o.tracks = make(map[string]Track, 2)
	for _, d := range o.Detectors() {
		tr, err := o.track(d)
		if err != nil {
			return err
		}
		o.tracks[d.Name()] = tr
	}
	return nil
}

// track resamples the jitter onto a detector's frame times,
// t_i = i·duration/nints for nints = duration / integration time
func (o *Observatory) track(d *detector.Detector) (Track, error) {
	s := d.Spec()
	nints := int(o.duration / s.IntegrationTime)
	if nints < 1 {
		nints = 1
	}
	t := make([]float64, nints)
	for i := range t {
		t[i] = float64(i) / float64(nints) * o.duration.Seconds()
	}
	j, err := o.jit.Resample(t)
	if err != nil {
		return Track{}, err
	}
	w, err := d.WCSWithRotation(o.pointing.RA, o.pointing.Dec, o.pointing.Theta)
	if err != nil {
		return Track{}, err
	}
	tr := Track{
		Time:  j.Time,
		Row:   j.Row,
		Col:   j.Col,
		Theta: make([]float64, nints),
		RA:    make([]unit.RA, nints),
		Dec:   make([]unit.Angle, nints),
	}
	r0, c0 := s.Center()
	for i := range t {
		tr.Theta[i] = o.pointing.Theta.Deg() + j.Theta[i]
		tr.RA[i], tr.Dec[i] = w.Pix2World(c0+j.Col[i], r0+j.Row[i])
	}
	return tr, nil
}

// Pointing returns the nominal pointing
func (o *Observatory) Pointing() Pointing { return o.pointing }

// Start is the start of the observation
func (o *Observatory) Start() time.Time { return o.start }

// Duration is the length of the observation
func (o *Observatory) Duration() time.Duration { return o.duration }

// Jitter returns the raw jitter series and the parameters it was drawn with
func (o *Observatory) Jitter() (jitter.Series, jitter.Params) { return o.jit, o.jparams }

// Detectors returns NIRDA and VISDA
func (o *Observatory) Detectors() []*detector.Detector {
	return []*detector.Detector{o.NIR, o.Visible}
}

// Detector looks a detector up by name: NIRDA or NIR, VISDA or Visible,
// case insensitive
func (o *Observatory) Detector(name string) (*detector.Detector, error) {
	switch strings.ToLower(name) {
	case "nirda", "nir":
		return o.NIR, nil
	case "visda", "visible", "vis":
		return o.Visible, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDetector, name)
}

// Track returns the jittered pointing of the named detector
func (o *Observatory) Track(name string) (Track, error) {
	d, err := o.Detector(name)
	if err != nil {
		return Track{}, err
	}
	return o.tracks[d.Name()], nil
}

func (o *Observatory) String() string {
	return "Pandora Observatory (" + o.pointing.String() + ")"
}
