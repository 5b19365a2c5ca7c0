// Package httpapi exposes an Observatory over HTTP as read-only JSON.
//
// Every detector is served under its lowercase name, /visda/... and
// /nirda/...; /routes lists everything and /metrics serves Prometheus
// metrics.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/mdobak/go-xerrors"
	"github.com/soniakeys/unit"

	"github.com/pandoramission/pandorasat/detector"
	"github.com/pandoramission/pandorasat/observatory"
	"github.com/pandoramission/pandorasat/units"
)

// maxSamples bounds the number of wavelengths a sensitivity request may ask for
const maxSamples = 100000

// errBadRequest marks errors in the request rather than the model
var errBadRequest = errors.New("bad request")

// Server serves one Observatory
type Server struct {
	obs     *observatory.Observatory
	log     *slog.Logger
	metrics *metrics
	routes  RouteTable
}

// New returns a Server.  A nil logger discards.
func New(obs *observatory.Observatory, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{obs: obs, log: log, metrics: newMetrics(), routes: RouteTable{}}
	s.routes[MethodPath{http.MethodGet, "/pointing"}] = s.pointing
	for _, d := range obs.Detectors() {
		for mp, h := range s.detectorRoutes(d) {
			mp.Path = "/" + strings.ToLower(d.Name()) + mp.Path
			s.routes[mp] = h
		}
	}
	return s
}

// Routes lists the served endpoints
func (s *Server) Routes() []string {
	return append(s.routes.Endpoints(), "GET /metrics", "GET /routes")
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	s.routes.Bind(r)
	r.Get("/routes", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, s.Routes())
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	return r
}

// fail classifies err, logs it and replies with a matching status
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		code = http.StatusInternalServerError
		kind = "internal"
		ue   *detector.UnitError
	)
	switch {
	case errors.Is(err, errBadRequest):
		code, kind = http.StatusBadRequest, "request"
	case errors.As(err, &ue):
		code, kind = http.StatusBadRequest, "unit"
	case errors.Is(err, detector.ErrNotConfigured):
		code, kind = http.StatusNotImplemented, "not_configured"
	case errors.Is(err, detector.ErrDegenerateZeroPoint):
		code, kind = http.StatusUnprocessableEntity, "degenerate_zeropoint"
	case errors.Is(err, detector.ErrDomain), errors.Is(err, units.ErrShape):
		code, kind = http.StatusUnprocessableEntity, "domain"
	}
	s.metrics.failures.WithLabelValues(kind).Inc()
	s.log.ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path), slog.Int("status", code), slog.Any("error", xerrors.New(err)))
	http.Error(w, err.Error(), code)
}

func (s *Server) pointing(w http.ResponseWriter, r *http.Request) {
	p := s.obs.Pointing()
	replyJSON(w, map[string]interface{}{
		"ra":         p.RA.Deg(),
		"dec":        p.Dec.Deg(),
		"theta":      p.Theta.Deg(),
		"start":      s.obs.Start(),
		"duration_s": s.obs.Duration().Seconds(),
	})
}

func (s *Server) detectorRoutes(d *detector.Detector) RouteTable {
	return RouteTable{
		{http.MethodGet, "/info"}: func(w http.ResponseWriter, r *http.Request) {
			replyJSON(w, d.Info())
		},
		{http.MethodGet, "/zeropoint"}:   s.getFloat(d.ZeroPoint),
		{http.MethodGet, "/midpoint"}:    s.getFloat(func() (float64, error) { m, err := d.Midpoint(); return m.Microns(), err }),
		{http.MethodGet, "/sensitivity"}: s.sensitivity(d),
		{http.MethodPost, "/gain"}:       s.gain(d),
		{http.MethodGet, "/jitter"}:      s.jitter(d),
		{http.MethodGet, "/wcs"}:         s.wcs(d),
		{http.MethodGet, "/fov"}:         s.fov(d),
		{http.MethodGet, "/trace"}:       s.trace(d),
	}
}

// getFloat calls a float-getting function and replies {"f64": value}
func (s *Server) getFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		replyJSON(w, FloatT{F64: f})
	}
}

// queryFloat reads a finite float query parameter, or def when absent
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: query parameter %s: %v", errBadRequest, name, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: query parameter %s must be finite, got %s", errBadRequest, name, str)
	}
	return f, nil
}

// sensitivity replies with the sensitivity curve on [min, max) µm in steps
// of step µm, by default 0.1 to 3 µm in 5 nm steps
func (s *Server) sensitivity(d *detector.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			vals [3]float64
			err  error
		)
		for i, q := range []struct {
			name string
			def  float64
		}{{"min", 0.1}, {"max", 3}, {"step", 0.005}} {
			vals[i], err = queryFloat(r, q.name, q.def)
			if err != nil {
				s.fail(w, r, err)
				return
			}
		}
		lo, hi, step := vals[0], vals[1], vals[2]
		if !(step > 0) || !(hi > lo) || (hi-lo)/step > maxSamples {
			s.fail(w, r, fmt.Errorf("%w: need 0 < step and min < max with at most %d samples", errBadRequest, maxSamples))
			return
		}
		wl := units.Arange(units.Length(lo)*units.Micron, units.Length(hi)*units.Micron, units.Length(step)*units.Micron)
		sens, err := d.Sensitivity(wl)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		replyJSON(w, struct {
			Wavelength  []float64 `json:"wavelength_um"`
			Sensitivity []float64 `json:"sensitivity"`
		}{units.In(wl, units.Micron), sens})
	}
}

// gainPayload carries a scalar, vector or matrix of values and their unit
type gainPayload struct {
	Values json.RawMessage `json:"values"`
	Unit   string          `json:"unit"`
}

// quantity decodes the payload into a Quantity of matching rank
func (g gainPayload) quantity() (units.Quantity, error) {
	u := units.ParseUnit(g.Unit)
	var f float64
	if err := json.Unmarshal(g.Values, &f); err == nil {
		return units.Scalar(f, u), nil
	}
	var v []float64
	if err := json.Unmarshal(g.Values, &v); err == nil {
		return units.Vector(v, u), nil
	}
	var m [][]float64
	if err := json.Unmarshal(g.Values, &m); err == nil {
		return units.Matrix(m, u)
	}
	return units.Quantity{}, fmt.Errorf("%w: values must be a number, an array or an array of arrays", errBadRequest)
}

func (s *Server) gain(d *detector.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g gainPayload
		err := json.NewDecoder(r.Body).Decode(&g)
		defer r.Body.Close()
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		q, err := g.quantity()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out, err := d.ApplyGain(q)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		var values interface{}
		switch out.Rank() {
		case 0:
			values = out.Value()
		case 1:
			values = out.Values
		default:
			values = out.Rows()
		}
		replyJSON(w, map[string]interface{}{"values": values, "unit": out.Unit.String()})
	}
}

func (s *Server) jitter(d *detector.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr, err := s.obs.Track(d.Name())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ra := make([]float64, tr.Len())
		dec := make([]float64, tr.Len())
		for i := range ra {
			ra[i], dec[i] = tr.RA[i].Deg(), tr.Dec[i].Deg()
		}
		replyJSON(w, map[string]interface{}{
			"time":  tr.Time,
			"row":   tr.Row,
			"col":   tr.Col,
			"theta": tr.Theta,
			"ra":    ra,
			"dec":   dec,
		})
	}
}

// wcs maps ?x=&y= to sky coordinates, or ?ra=&dec= (degrees) to pixels, at
// the observatory's nominal pointing
func (s *Server) wcs(d *detector.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.obs.Pointing()
		tx, err := d.WCSWithRotation(p.RA, p.Dec, p.Theta)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		q := r.URL.Query()
		if q.Get("ra") != "" || q.Get("dec") != "" {
			ra, err := queryFloat(r, "ra", p.RA.Deg())
			if err != nil {
				s.fail(w, r, err)
				return
			}
			dec, err := queryFloat(r, "dec", p.Dec.Deg())
			if err != nil {
				s.fail(w, r, err)
				return
			}
			x, y, err := tx.World2Pix(unit.RAFromDeg(ra), unit.AngleFromDeg(dec))
			if err != nil {
				s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
				return
			}
			replyJSON(w, map[string]float64{"x": x, "y": y})
			return
		}
		r0, c0 := d.Spec().Center()
		x, err := queryFloat(r, "x", c0)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		y, err := queryFloat(r, "y", r0)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ra, dec := tx.Pix2World(x, y)
		replyJSON(w, map[string]float64{"ra": ra.Deg(), "dec": dec.Deg()})
	}
}

func (s *Server) fov(d *detector.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := d.FieldOfView()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		radius, _ := d.Spec().FieldstopPixels()
		replyJSON(w, map[string]interface{}{
			"rows":      m.Rows,
			"cols":      m.Cols,
			"pixels":    m.Count(),
			"radius_px": radius,
		})
	}
}

func (s *Server) trace(d *detector.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr, err := d.Trace()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		replyJSON(w, map[string]interface{}{
			"pixel":         tr.Pixel,
			"wavelength_um": units.In(tr.Wavelength, units.Micron),
			"sensitivity":   tr.Sensitivity,
		})
	}
}
