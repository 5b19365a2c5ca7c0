package units

import (
	"errors"
	"fmt"
)

// Unit tags the physical unit carried by a Quantity
type Unit int

const (
	// None is the zero value; a Quantity tagged None has no unit attached
	None Unit = iota

	// Electron counts photo-electrons
	Electron

	// DN is a digital count (data number) out of the ADC
	DN
)

func (u Unit) String() string {
	switch u {
	case Electron:
		return "electron"
	case DN:
		return "DN"
	default:
		return "none"
	}
}

// ParseUnit maps the common spellings of a unit to a Unit.
// Unknown strings return None.
func ParseUnit(s string) Unit {
	switch s {
	case "electron", "electrons", "e", "e-":
		return Electron
	case "DN", "dn", "adu", "ADU", "count", "counts", "digital_count":
		return DN
	default:
		return None
	}
}

// ErrShape is generated when a Quantity's data does not fill its shape
var ErrShape = errors.New("units: data length does not match shape")

// Quantity is a unit tagged array of rank 0 (scalar), 1 (vector) or 2 (matrix).
// Values are stored row-major.
type Quantity struct {
	// Values holds the data, row-major
	Values []float64

	// Shape holds the dimensions; empty for a scalar
	Shape []int

	// Unit is the unit tag
	Unit Unit
}

// Scalar returns a rank 0 quantity
func Scalar(v float64, u Unit) Quantity {
	return Quantity{Values: []float64{v}, Unit: u}
}

// Vector returns a rank 1 quantity.  vs is not copied.
func Vector(vs []float64, u Unit) Quantity {
	return Quantity{Values: vs, Shape: []int{len(vs)}, Unit: u}
}

// Matrix returns a rank 2 quantity from a slice of equal length rows
func Matrix(rows [][]float64, u Unit) (Quantity, error) {
	q := Quantity{Unit: u, Shape: []int{len(rows), 0}}
	if len(rows) == 0 {
		return q, nil
	}
	ncol := len(rows[0])
	q.Shape[1] = ncol
	q.Values = make([]float64, 0, len(rows)*ncol)
	for i, r := range rows {
		if len(r) != ncol {
			return Quantity{}, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrShape, i, len(r), ncol)
		}
		q.Values = append(q.Values, r...)
	}
	return q, nil
}

// Rank returns the number of dimensions of q
func (q Quantity) Rank() int { return len(q.Shape) }

// Len returns the number of elements the shape calls for
func (q Quantity) Len() int {
	n := 1
	for _, s := range q.Shape {
		n *= s
	}
	return n
}

// Check verifies that the data fills the shape exactly
func (q Quantity) Check() error {
	if len(q.Values) != q.Len() {
		return fmt.Errorf("%w: %d values for shape %v", ErrShape, len(q.Values), q.Shape)
	}
	return nil
}

// At returns the element at the given index, which must have one entry per
// dimension.  For a scalar call At().
func (q Quantity) At(idx ...int) float64 {
	off := 0
	for i, ix := range idx {
		off = off*q.Shape[i] + ix
	}
	return q.Values[off]
}

// Value returns the element of a scalar
func (q Quantity) Value() float64 { return q.Values[0] }

// Rows expands a rank 2 quantity into a slice of rows
func (q Quantity) Rows() [][]float64 {
	if q.Rank() != 2 {
		return [][]float64{q.Values}
	}
	out := make([][]float64, q.Shape[0])
	for i := range out {
		out[i] = q.Values[i*q.Shape[1] : (i+1)*q.Shape[1]]
	}
	return out
}

func (q Quantity) String() string {
	if q.Rank() == 0 && len(q.Values) == 1 {
		return fmt.Sprintf("%g %s", q.Values[0], q.Unit)
	}
	return fmt.Sprintf("%v %s", q.Values, q.Unit)
}
