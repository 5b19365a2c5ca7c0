// Package units holds the typed physical quantities used across pandorasat.
//
// Lengths and energies are float64 types in SI base units, in the manner of
// time.Duration; multiply a number by a unit constant to build one, and call
// a method to read it back in the unit you want.
package units

import (
	"fmt"
	"math"
)

type (
	// Length is a length in meters
	Length float64

	// Energy is an energy in joules
	Energy float64
)

// length units
const (
	Meter      Length = 1
	Centimeter        = Meter / 100
	Millimeter        = Meter / 1e3
	Micron            = Meter / 1e6
	Nanometer         = Meter / 1e9
	Angstrom          = Meter / 1e10
)

// energy units
const (
	Joule Energy = 1
	Erg          = Joule * 1e-7
)

// Meters returns the length in meters
func (l Length) Meters() float64 { return float64(l) }

// Centimeters returns the length in centimeters
func (l Length) Centimeters() float64 { return float64(l / Centimeter) }

// Millimeters returns the length in millimeters
func (l Length) Millimeters() float64 { return float64(l / Millimeter) }

// Microns returns the length in microns
func (l Length) Microns() float64 { return float64(l / Micron) }

// Nanometers returns the length in nanometers
func (l Length) Nanometers() float64 { return float64(l / Nanometer) }

// Angstroms returns the length in angstroms
func (l Length) Angstroms() float64 { return float64(l / Angstrom) }

func (l Length) String() string {
	return fmt.Sprintf("%g m", float64(l))
}

// Joules returns the energy in joules
func (e Energy) Joules() float64 { return float64(e) }

// Ergs returns the energy in ergs
func (e Energy) Ergs() float64 { return float64(e / Erg) }

// Lengths converts raw values expressed in unit u into Lengths.
// e.g., Lengths([]float64{0.5, 1}, Micron) => [5e-07 m 1e-06 m]
func Lengths(vals []float64, u Length) []Length {
	out := make([]Length, len(vals))
	for i, v := range vals {
		out[i] = Length(v) * u
	}
	return out
}

// In expresses each length in ls as a multiple of unit u
func In(ls []Length, u Length) []float64 {
	out := make([]float64, len(ls))
	for i, l := range ls {
		out[i] = float64(l / u)
	}
	return out
}

// Arange returns lengths from start up to but not including stop, spaced by step
func Arange(start, stop, step Length) []Length {
	if step <= 0 || stop <= start {
		return nil
	}
	// the small offset keeps float error from adding a sample at stop
	n := int(math.Ceil(float64((stop-start)/step) - 1e-9))
	out := make([]Length, n)
	for i := range out {
		out[i] = start + Length(i)*step
	}
	return out
}

// Linspace returns n evenly spaced lengths over [start, stop]
func Linspace(start, stop Length, n int) []Length {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []Length{start}
	}
	out := make([]Length, n)
	step := (stop - start) / Length(n-1)
	for i := range out {
		out[i] = start + Length(i)*step
	}
	out[n-1] = stop
	return out
}
