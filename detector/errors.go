package detector

import (
	"errors"
	"fmt"

	"github.com/pandoramission/pandorasat/units"
)

var (
	// ErrNotConfigured is generated when a calibration table or detector
	// property a computation needs has not been set for this detector
	ErrNotConfigured = errors.New("detector: not configured")

	// ErrDegenerateZeroPoint is generated when the sensitivity integrates to
	// (nearly) zero over the reference band, leaving the zero-point undefined
	ErrDegenerateZeroPoint = errors.New("detector: sensitivity is zero over the reference band, zero-point undefined")

	// ErrDomain is generated when a value is outside the domain of a conversion,
	// e.g. a non-positive flux passed to MagnitudeFromFlux
	ErrDomain = errors.New("detector: value outside the domain of the conversion")
)

// UnitError is generated when a quantity arrives without the unit an
// operation needs
type UnitError struct {
	// Op is the operation that rejected the quantity
	Op string

	// Got is the unit the quantity carried
	Got units.Unit
}

// Error satisfies the error interface
func (e *UnitError) Error() string {
	return fmt.Sprintf("detector: %s needs a quantity in electron or DN, got unit %q", e.Op, e.Got)
}

// Setting is a scalar detector property that may not be known yet.
// The zero value is unset.
type Setting struct {
	v  float64
	ok bool
}

// Set returns a Setting holding v
func Set(v float64) Setting { return Setting{v: v, ok: true} }

// Unset is a Setting with no value
var Unset = Setting{}

// Get returns the value or ErrNotConfigured naming the property
func (s Setting) Get(name string) (float64, error) {
	if !s.ok {
		return 0, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return s.v, nil
}

// IsSet reports whether the setting holds a value
func (s Setting) IsSet() bool { return s.ok }

// ptr returns a pointer to the value, or nil when unset
func (s Setting) ptr() *float64 {
	if !s.ok {
		return nil
	}
	v := s.v
	return &v
}
