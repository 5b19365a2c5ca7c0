package detector

import "math"

// Mask is a boolean image over the detector array, row-major
type Mask struct {
	Rows, Cols int
	data       []bool
}

// At reports whether pixel (row, col) is set.  Pixels off the array are not.
func (m *Mask) At(row, col int) bool {
	if row < 0 || col < 0 || row >= m.Rows || col >= m.Cols {
		return false
	}
	return m.data[row*m.Cols+col]
}

// Count is the number of pixels set
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.data {
		if b {
			n++
		}
	}
	return n
}

// FieldOfView returns the pixels inside the circular fieldstop: those whose
// Euclidean distance from the array centre is below the fieldstop radius in
// pixels.  Detectors without a fieldstop return ErrNotConfigured.
func FieldOfView(s Spec) (*Mask, error) {
	r, err := s.FieldstopPixels()
	if err != nil {
		return nil, err
	}
	r0, c0 := s.Center()
	m := &Mask{Rows: s.Rows, Cols: s.Cols, data: make([]bool, s.Rows*s.Cols)}
	for i := 0; i < s.Rows; i++ {
		for j := 0; j < s.Cols; j++ {
			m.data[i*s.Cols+j] = math.Hypot(float64(i)-r0, float64(j)-c0) < r
		}
	}
	return m, nil
}
