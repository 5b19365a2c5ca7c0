package caltable

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCurveInterpolatesLinearly(t *testing.T) {
	c, err := NewCurve([]float64{0, 10, 20}, []float64{0, 1, 3}, Zero)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		x, want float64
	}{
		{0, 0},
		{5, 0.5},
		{10, 1},
		{15, 2},
		{20, 3},
	}
	for _, tt := range tests {
		if got := c.At(tt.x); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("At(%f): expected %f got %f", tt.x, tt.want, got)
		}
	}
}

func TestCurveZeroOutsideSupport(t *testing.T) {
	c := MustCurve([]float64{1, 2}, []float64{5, 6}, Zero)
	for _, x := range []float64{0.999, -1, 2.001, 1e9} {
		if got := c.At(x); got != 0 {
			t.Errorf("At(%f): expected 0 outside support, got %f", x, got)
		}
	}
}

func TestCurveEdgeOutsideSupport(t *testing.T) {
	c := MustCurve([]float64{1, 2}, []float64{5, 6}, Edge)
	if got := c.At(0); got != 5 {
		t.Errorf("expected left edge value 5 got %f", got)
	}
	if got := c.At(3); got != 6 {
		t.Errorf("expected right edge value 6 got %f", got)
	}
}

func TestCurveSortsAndDropsDuplicates(t *testing.T) {
	c := MustCurve([]float64{3, 1, 2, 2}, []float64{30, 10, 20, 99}, Zero)
	if c.Len() != 3 {
		t.Fatalf("expected 3 distinct samples got %d", c.Len())
	}
	x, y := c.Samples()
	for i, want := range []float64{1, 2, 3} {
		if x[i] != want || y[i] != want*10 {
			t.Errorf("sample %d: expected (%f, %f) got (%f, %f)", i, want, want*10, x[i], y[i])
		}
	}
}

func TestCurveSinglePoint(t *testing.T) {
	c := MustCurve([]float64{2}, []float64{7}, Zero)
	if c.At(2) != 7 || c.At(1) != 0 {
		t.Errorf("single point curve evaluated incorrectly: %f %f", c.At(2), c.At(1))
	}
}

func TestCurveErrors(t *testing.T) {
	if _, err := NewCurve(nil, nil, Zero); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty got %v", err)
	}
	if _, err := NewCurve([]float64{1}, []float64{1, 2}, Zero); !errors.Is(err, ErrLength) {
		t.Errorf("expected ErrLength got %v", err)
	}
}

func TestConstant(t *testing.T) {
	c := Constant(0.61)
	for _, x := range []float64{-5, 0, 1e-6, 12} {
		if c.At(x) != 0.61 {
			t.Errorf("At(%f): expected 0.61 got %f", x, c.At(x))
		}
	}
}

func TestReadCSVWithHeader(t *testing.T) {
	in := "# dichroic\nwavelength,transmission\n300, 10\n400, 20\n500,30\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Rows() != 3 {
		t.Errorf("expected 3 rows got %d", tbl.Rows())
	}
	col, err := tbl.Column("Transmission")
	if err != nil {
		t.Fatal(err)
	}
	if col[2] != 30 {
		t.Errorf("expected 30 got %f", col[2])
	}
	_, err = tbl.Column("flux")
	var nf ErrColumnNotFound
	if !errors.As(err, &nf) || nf.Column != "flux" {
		t.Errorf("expected ErrColumnNotFound for flux, got %v", err)
	}
}

func TestReadCSVHeaderless(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("1,2\n3,4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Names[1] != "col1" || tbl.Rows() != 2 {
		t.Errorf("expected headerless table with 2 rows, got names %v rows %d", tbl.Names, tbl.Rows())
	}
	c, err := tbl.Curve(0, 1, 10, Zero)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.At(20); math.Abs(got-3) > 1e-12 {
		t.Errorf("expected scaled curve to give 3 at 20, got %f", got)
	}
}

func TestReadCSVRejectsHeaderOnly(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("a,b\n")); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData got %v", err)
	}
}

func TestLoadCSVFromDisk(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "tp.csv")
	if err := os.WriteFile(fn, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSV(fn); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error got %v", err)
	}
}

const qeVOTable = `<?xml version="1.0"?>
<VOTABLE version="1.3" xmlns="http://www.ivoa.net/xml/VOTable/v1.3">
 <RESOURCE type="results">
  <TABLE name="Pandora.Pandora.Visible">
   <FIELD name="Wavelength" datatype="double" unit="Angstrom"/>
   <FIELD name="Transmission" datatype="double"/>
   <DATA>
    <TABLEDATA>
     <TR><TD>3000</TD><TD>0.1</TD></TR>
     <TR><TD>5000</TD><TD>0.8</TD></TR>
     <TR><TD>9000</TD><TD>0.3</TD></TR>
    </TABLEDATA>
   </DATA>
  </TABLE>
 </RESOURCE>
</VOTABLE>`

func TestReadVOTable(t *testing.T) {
	tbl, err := ReadVOTable(strings.NewReader(qeVOTable))
	if err != nil {
		t.Fatal(err)
	}
	wav, err := tbl.Column("Wavelength")
	if err != nil {
		t.Fatal(err)
	}
	tr, err := tbl.Column("Transmission")
	if err != nil {
		t.Fatal(err)
	}
	if len(wav) != 3 || wav[1] != 5000 || tr[1] != 0.8 {
		t.Errorf("parsed table incorrectly: %v %v", wav, tr)
	}
}

func TestReadVOTableNoTable(t *testing.T) {
	_, err := ReadVOTable(strings.NewReader(`<VOTABLE><RESOURCE></RESOURCE></VOTABLE>`))
	if !errors.Is(err, ErrNoTable) {
		t.Errorf("expected ErrNoTable got %v", err)
	}
}

func TestReadDistortion(t *testing.T) {
	in := "axis,p,q,coeff\nA,2,0,1e-7\nb,0,2,-2e-7\nA,1,1,3e-8\n"
	terms, err := ReadDistortion(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) != 3 {
		t.Fatalf("expected 3 terms got %d", len(terms))
	}
	if terms[1].Axis != "B" || terms[1].Q != 2 || terms[1].Coeff != -2e-7 {
		t.Errorf("term 1 parsed incorrectly: %+v", terms[1])
	}
}

func TestReadDistortionBadAxis(t *testing.T) {
	if _, err := ReadDistortion(strings.NewReader("axis,p,q,coeff\nC,1,1,0\n")); err == nil {
		t.Error("expected an error for unknown axis C")
	}
	if _, err := ReadDistortion(strings.NewReader("axis,p,coeff\nA,1,0\n")); err == nil {
		t.Error("expected an error for a missing q column")
	}
}
