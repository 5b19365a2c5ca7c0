package flatfield

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat"
)

func TestSimulateStatistics(t *testing.T) {
	f := Simulate(100, 80, 0.005, 777)
	if len(f.Data) != 8000 {
		t.Fatalf("expected 8000 pixels got %d", len(f.Data))
	}
	mean, std := stat.MeanStdDev(f.Data, nil)
	if math.Abs(mean-1) > 1e-3 {
		t.Errorf("expected mean near 1 got %f", mean)
	}
	if math.Abs(std-0.005)/0.005 > 0.05 {
		t.Errorf("expected stddev near 0.005 got %f", std)
	}
}

func TestSimulateDeterministic(t *testing.T) {
	a := Simulate(10, 10, 0.01, 42)
	b := Simulate(10, 10, 0.01, 42)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("pixel %d differs between identical seeds: %f != %f", i, a.Data[i], b.Data[i])
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	flat := Simulate(6, 4, 0.01, 1)
	p := Provenance{
		Author:   "Pandora SOC",
		Version:  "0.4.1",
		Date:     time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		StdDev:   0.01,
		Detector: "VISDA",
	}
	var buf bytes.Buffer
	if err := Write(&buf, flat, p); err != nil {
		t.Fatal(err)
	}
	got, gotP, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows != 6 || got.Cols != 4 {
		t.Fatalf("expected 6x4 got %dx%d", got.Rows, got.Cols)
	}
	for i := range flat.Data {
		if got.Data[i] != flat.Data[i] {
			t.Errorf("pixel %d: expected %f got %f", i, flat.Data[i], got.Data[i])
		}
	}
	if gotP.Author != p.Author || gotP.Version != p.Version || gotP.Detector != p.Detector {
		t.Errorf("provenance strings did not round trip: %+v", gotP)
	}
	if !gotP.Date.Equal(p.Date) {
		t.Errorf("expected date %v got %v", p.Date, gotP.Date)
	}
	if gotP.StdDev != 0.01 {
		t.Errorf("expected STDDEV 0.01 got %f", gotP.StdDev)
	}
}

func TestWriteRejectsBadShape(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Flat{Rows: 2, Cols: 2, Data: []float64{1}}, Provenance{})
	if !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape got %v", err)
	}
}

func TestLatestByFilename(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"2024-01-05", "2025-03-01", "2023-12-31"} {
		fn := filepath.Join(dir, "flatfield_NIRDA_"+d+".fits")
		if err := os.WriteFile(fn, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// other detectors are not considered
	os.WriteFile(filepath.Join(dir, "flatfield_VISDA_2030-01-01.fits"), nil, 0o644)

	fn, err := Latest(dir, "NIRDA")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(fn) != "flatfield_NIRDA_2025-03-01.fits" {
		t.Errorf("expected the 2025-03-01 file got %s", filepath.Base(fn))
	}
}

func TestLatestMissing(t *testing.T) {
	_, _, err := LoadLatest(t.TempDir(), "NIRDA")
	if !errors.Is(err, ErrNoFlat) {
		t.Errorf("expected ErrNoFlat got %v", err)
	}
}

func TestWriteFileThenLoadLatest(t *testing.T) {
	dir := t.TempDir()
	p := Provenance{Detector: "NIRDA", Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), StdDev: 0.005}
	fn, err := WriteFile(dir, Simulate(8, 2, 0.005, 3), p)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(fn) != "flatfield_NIRDA_2026-01-02.fits" {
		t.Errorf("unexpected filename %s", fn)
	}
	flat, _, err := LoadLatest(dir, "NIRDA")
	if err != nil {
		t.Fatal(err)
	}
	if flat.Rows != 8 || flat.Cols != 2 {
		t.Errorf("expected 8x2 got %dx%d", flat.Rows, flat.Cols)
	}
}
