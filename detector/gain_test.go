package detector_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pandoramission/pandorasat/detector"
	"github.com/pandoramission/pandorasat/units"
)

func ExampleGainTable_Apply() {
	e, _ := detector.VisibleGain.Apply(units.Scalar(1000, units.DN))
	fmt.Println(e)
	// Output: 600 electron
}

func TestVisibleGain1000DN(t *testing.T) {
	out, err := detector.VisibleGain.Apply(units.Scalar(1000, units.DN))
	if err != nil {
		t.Fatal(err)
	}
	if out.Unit != units.Electron || out.Rank() != 0 || out.Value() != 600 {
		t.Errorf("expected 600 electron got %v", out)
	}
}

func TestGainSegments(t *testing.T) {
	cases := []struct {
		in       float64
		unit     units.Unit
		expected float64
	}{
		{0, units.Electron, 0},
		{100, units.Electron, 192},    // 100/0.52
		{519, units.Electron, 998},    // 519/0.52 = 998.07
		{520, units.Electron, 1000},   // 866.7, held at the segment floor
		{2999, units.Electron, 4998},  // 2999/0.6
		{3000, units.Electron, 5000},  // 4918, held at the floor
		{17080, units.Electron, 28000},
		{30000, units.Electron, 44776}, // 30000/0.67
		{-5, units.Electron, 0},
		{999, units.DN, 519},   // 999*0.52 = 519.48
		{1000, units.DN, 600},  // 1000*0.6
		{4999, units.DN, 2999}, // 4999*0.6 = 2999.4
		{5000, units.DN, 3050},
		{28000, units.DN, 18760},
		{-1, units.DN, 0},
	}
	for _, c := range cases {
		out, err := detector.VisibleGain.Apply(units.Scalar(c.in, c.unit))
		if err != nil {
			t.Fatal(err)
		}
		if out.Value() != c.expected {
			t.Errorf("%v %v: expected %v got %v", c.in, c.unit, c.expected, out.Value())
		}
	}
}

func TestGainMonotonic(t *testing.T) {
	for _, g := range []detector.GainTable{detector.VisibleGain, detector.NIRGain} {
		prev := -1.0
		for e := 0.0; e < 60000; e += 0.5 {
			dn := g.ToDN(e)
			if dn < prev {
				t.Fatalf("%v electrons gave %v DN, less than %v", e, dn, prev)
			}
			prev = dn
		}
		prev = -1
		for dn := 0.0; dn < 60000; dn++ {
			e := g.ToElectrons(dn)
			if e < prev {
				t.Fatalf("%v DN gave %v electrons, less than %v", dn, e, prev)
			}
			prev = e
		}
	}
}

func TestGainInverseOnImage(t *testing.T) {
	// every DN count the electron mapping lands on maps back below the input
	for e := 0.0; e < 40000; e += 7 {
		dn := detector.VisibleGain.ToDN(e)
		back := detector.VisibleGain.ToElectrons(dn)
		if back > e {
			t.Errorf("%v e -> %v DN -> %v e", e, dn, back)
		}
	}
}

func TestGainShapes(t *testing.T) {
	m, err := units.Matrix([][]float64{{10, 600, 4000}, {20000, 0, 1}}, units.Electron)
	if err != nil {
		t.Fatal(err)
	}
	inputs := []units.Quantity{
		units.Scalar(10, units.Electron),
		units.Vector([]float64{10}, units.Electron),
		units.Vector([]float64{10, 600, 4000, 20000}, units.DN),
		m,
	}
	for _, in := range inputs {
		out, err := detector.VisibleGain.Apply(in)
		if err != nil {
			t.Fatal(err)
		}
		if out.Rank() != in.Rank() || fmt.Sprint(out.Shape) != fmt.Sprint(in.Shape) {
			t.Errorf("shape %v became %v", in.Shape, out.Shape)
		}
		if len(out.Values) != len(in.Values) {
			t.Errorf("expected %d values got %d", len(in.Values), len(out.Values))
		}
		if out.Unit == in.Unit {
			t.Errorf("unit %v was not flipped", in.Unit)
		}
	}
	out, _ := detector.VisibleGain.Apply(m)
	if out.At(1, 0) != 29850 {
		t.Errorf("expected 20000 e to be 29850 DN got %v", out.At(1, 0))
	}
}

func TestGainUnitError(t *testing.T) {
	_, err := detector.VisibleGain.Apply(units.Vector([]float64{1, 2}, units.None))
	var ue *detector.UnitError
	if !errors.As(err, &ue) {
		t.Fatalf("expected a *UnitError got %v", err)
	}
	if ue.Got != units.None {
		t.Errorf("expected the error to carry unit none, got %v", ue.Got)
	}
}

func TestGainBadShape(t *testing.T) {
	cases := []struct {
		name string
		q    units.Quantity
	}{
		{"short matrix", units.Quantity{Values: []float64{1, 2, 3}, Shape: []int{2, 2}, Unit: units.DN}},
		{"rank 3", units.Quantity{Values: make([]float64, 8), Shape: []int{2, 2, 2}, Unit: units.Electron}},
	}
	for _, c := range cases {
		_, err := detector.VisibleGain.Apply(c.q)
		if !errors.Is(err, units.ErrShape) {
			t.Errorf("%s: expected units.ErrShape got %v", c.name, err)
		}
	}
}

func TestNIRGain(t *testing.T) {
	dn, _ := detector.NIRGain.Apply(units.Vector([]float64{5, 101}, units.Electron))
	if dn.Values[0] != 10 || dn.Values[1] != 202 {
		t.Errorf("expected [10 202] DN got %v", dn.Values)
	}
	e, _ := detector.NIRGain.Apply(units.Scalar(11, units.DN))
	if e.Value() != 5 {
		t.Errorf("expected 5 e got %v", e.Value())
	}
}
