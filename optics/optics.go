// Package optics describes the Pandora telescope optics and orbit
package optics

import (
	"fmt"
	"math"
	"time"

	"github.com/pandoramission/pandorasat/units"
)

// DefaultMirrorDiameter is the diameter of Pandora's primary mirror
const DefaultMirrorDiameter = 0.45 * units.Meter

// Optics holds the telescope aperture geometry shared by both detectors
type Optics struct {
	// MirrorDiameter is the diameter of the primary mirror
	MirrorDiameter units.Length `yaml:"MirrorDiameter"`
}

// New returns Pandora's optics
func New() Optics {
	return Optics{MirrorDiameter: DefaultMirrorDiameter}
}

// AreaCm2 returns the collecting area of the primary in cm^2
func (o Optics) AreaCm2() float64 {
	r := o.MirrorDiameter.Centimeters() / 2
	return math.Pi * r * r
}

func (o Optics) String() string {
	return fmt.Sprintf("Pandora Optics (D=%.3f m)", o.MirrorDiameter.Meters())
}

// Orbit holds basic metadata on the orbit.  No propagation is performed.
type Orbit struct {
	// Period is the orbital period
	Period time.Duration
}

// NewOrbit returns Pandora's nominal orbit
func NewOrbit() Orbit {
	return Orbit{Period: 90 * time.Minute}
}

func (o Orbit) String() string { return "Pandora Orbit" }
