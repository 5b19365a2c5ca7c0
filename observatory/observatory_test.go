package observatory

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pandoramission/pandorasat/config"
	"github.com/pandoramission/pandorasat/detector"
	"github.com/pandoramission/pandorasat/flatfield"
)

const qeXML = `<?xml version="1.0"?>
<VOTABLE version="1.3">
 <RESOURCE>
  <TABLE>
   <FIELD name="Wavelength" datatype="double" unit="Angstrom"/>
   <FIELD name="Transmission" datatype="double"/>
   <DATA><TABLEDATA>
    <TR><TD>3500</TD><TD>0.2</TD></TR>
    <TR><TD>6000</TD><TD>0.9</TD></TR>
    <TR><TD>10000</TD><TD>0.1</TD></TR>
   </TABLEDATA></DATA>
  </TABLE>
 </RESOURCE>
</VOTABLE>`

// testConfig writes a minimal set of calibration tables and returns a
// configuration pointing at them
func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	var vega strings.Builder
	vega.WriteString("wavelength,flux\n")
	for wl := 3000; wl <= 25000; wl += 50 {
		fmt.Fprintf(&vega, "%d,%g\n", wl, 3.6e-9*math.Pow(5500/float64(wl), 4))
	}
	files := map[string]string{
		"vega.csv":                    vega.String(),
		"dichroic-transmission.csv":   "wavelength,percent\n300,0\n900,10\n1000,90\n",
		"Pandora.Pandora.Visible.xml": qeXML,
		"pixel_vs_wavelength.csv":     "pixel,wavelength\n-300,1.9\n300,0.7\n",
		"pixel_vs_wavelength_vis.csv": "pixel,wavelength\n-300,0.9\n300,0.5\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c := config.Default()
	c.DataDir = dir
	c.Pointing.RA, c.Pointing.Dec, c.Pointing.Theta = 269.4, 66.6, 30
	c.Observation.Duration = "10m"
	c.Jitter.Seed = 42
	return c
}

func TestNew(t *testing.T) {
	o, err := New(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if o.NIR.Name() != "NIRDA" || o.Visible.Name() != "VISDA" {
		t.Errorf("unexpected detectors %s, %s", o.NIR.Name(), o.Visible.Name())
	}
	if _, err = o.Visible.ZeroPoint(); err != nil {
		t.Errorf("expected a VISDA zero-point got %v", err)
	}
	if _, err = o.NIR.ZeroPoint(); !errors.Is(err, detector.ErrNotConfigured) {
		t.Errorf("expected the NIRDA zero-point to be unconfigured got %v", err)
	}
	if _, err = o.Visible.Trace(); err != nil {
		t.Errorf("expected a VISDA trace got %v", err)
	}
	if o.Duration() != 10*time.Minute {
		t.Errorf("expected 10m got %v", o.Duration())
	}
	if o.Orbit.Period != 90*time.Minute || o.Optics.MirrorDiameter.Meters() != 0.45 {
		t.Error("unexpected optics or orbit")
	}
	if !strings.Contains(o.String(), "269.400") {
		t.Errorf("unexpected %s", o)
	}
}

func TestJitterSampling(t *testing.T) {
	o, err := New(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	s, p := o.Jitter()
	// 5 samples per 60 s timescale over 10 minutes
	if s.Len() != 50 || p.FrameTime != 12*time.Second {
		t.Errorf("expected 50 samples 12 s apart, got %d at %v", s.Len(), p.FrameTime)
	}
}

func TestTracks(t *testing.T) {
	o, err := New(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name  string
		nints int
	}{
		{"VISDA", 3000}, // 600 s / 0.2 s
		{"nirda", 1875}, // 600 s / 0.32 s
	}
	for _, c := range cases {
		tr, err := o.Track(c.name)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Len() != c.nints || len(tr.Row) != c.nints || len(tr.RA) != c.nints {
			t.Errorf("%s: expected %d frames got %d", c.name, c.nints, tr.Len())
			continue
		}
		if dt := tr.Time[1] - tr.Time[0]; math.Abs(dt-600/float64(c.nints)) > 1e-9 {
			t.Errorf("%s: unexpected frame spacing %f", c.name, dt)
		}
		for i := range tr.Time {
			if math.Abs(tr.Theta[i]-30) > 0.01 {
				t.Fatalf("%s frame %d: theta %f is far from 30", c.name, i, tr.Theta[i])
			}
			// jitter of a fraction of a pixel keeps the boresight within arcseconds
			if math.Abs(tr.Dec[i].Deg()-66.6)*3600 > 10 {
				t.Fatalf("%s frame %d: dec %f is far from 66.6", c.name, i, tr.Dec[i].Deg())
			}
		}
	}
	if _, err = o.Track("FGS"); !errors.Is(err, ErrUnknownDetector) {
		t.Errorf("expected ErrUnknownDetector got %v", err)
	}
}

func TestSeedReproducible(t *testing.T) {
	c := testConfig(t)
	a, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := New(c)
	ta, _ := a.Track("VISDA")
	tb, _ := b.Track("VISDA")
	for i := range ta.Row {
		if ta.Row[i] != tb.Row[i] || ta.RA[i] != tb.RA[i] {
			t.Fatalf("frame %d differs between identical seeds", i)
		}
	}
}

func TestMissingTableIsFatal(t *testing.T) {
	c := testConfig(t)
	c.Tables.Vega = "nope.csv"
	o, err := New(c)
	if err == nil || o != nil {
		t.Error("expected construction to fail without a reference spectrum")
	}
}

func TestFlats(t *testing.T) {
	c := testConfig(t)
	p := flatfield.Provenance{Detector: "NIRDA", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, err := flatfield.WriteFile(c.FlatPath(), flatfield.Simulate(2048, 512, 0.005, 7), p)
	if err != nil {
		t.Fatal(err)
	}
	o, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = o.NIR.Flat(); err != nil {
		t.Errorf("expected the NIRDA flat to be attached got %v", err)
	}
	if _, err = o.Visible.Flat(); !errors.Is(err, detector.ErrNotConfigured) {
		t.Errorf("expected no VISDA flat got %v", err)
	}

	// a newer flat of the wrong shape wins the filename sort and is rejected
	p.Date = p.Date.AddDate(0, 1, 0)
	flatfield.WriteFile(c.FlatPath(), flatfield.Simulate(4, 4, 0.005, 7), p)
	if _, err = New(c); !errors.Is(err, flatfield.ErrShape) {
		t.Errorf("expected flatfield.ErrShape got %v", err)
	}
}

func TestShortObservation(t *testing.T) {
	c := testConfig(t)
	c.Observation.Duration = "5s"
	if _, err := New(c); err == nil {
		t.Error("expected an error when the observation is shorter than a jitter sample")
	}
}
