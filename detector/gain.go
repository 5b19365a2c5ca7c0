package detector

import (
	"fmt"
	"math"

	"github.com/pandoramission/pandorasat/units"
)

// GainSegment is one piece of a piecewise gain curve.  A value belongs to the
// segment whose floor it is at or above, and below the next segment's floor.
type GainSegment struct {
	// ElectronFloor is the lowest electron count in this segment
	ElectronFloor float64

	// DNFloor is the lowest digital count in this segment
	DNFloor float64

	// Gain is in electron / DN
	Gain float64
}

// GainTable is a piecewise gain curve with segments in increasing order.
// The first segment must start at zero.
type GainTable []GainSegment

var (
	// VisibleGain is the measured non-linear gain of the visible detector
	VisibleGain = GainTable{
		{ElectronFloor: 0, DNFloor: 0, Gain: 0.52},
		{ElectronFloor: 520, DNFloor: 1000, Gain: 0.60},
		{ElectronFloor: 3000, DNFloor: 5000, Gain: 0.61},
		{ElectronFloor: 17080, DNFloor: 28000, Gain: 0.67},
	}

	// NIRGain is the single gain value of the NIR detector
	NIRGain = GainTable{
		{ElectronFloor: 0, DNFloor: 0, Gain: 0.5},
	}
)

// segment returns the index of the segment v falls in when measured in unit u,
// or -1 for values below the first floor (negative, or NaN)
func (g GainTable) segment(v float64, u units.Unit) int {
	seg := -1
	for i, s := range g {
		floor := s.ElectronFloor
		if u == units.DN {
			floor = s.DNFloor
		}
		if v >= floor {
			seg = i
		}
	}
	return seg
}

// ToDN converts an electron count to a digital count.  Within a segment the
// count is e/gain, held at or above the segment's DN floor so the conversion
// never decreases as electrons increase.  The result is truncated.
func (g GainTable) ToDN(e float64) float64 {
	i := g.segment(e, units.Electron)
	if i < 0 {
		return 0
	}
	dn := math.Max(e/g[i].Gain, g[i].DNFloor)
	return math.Trunc(dn)
}

// ToElectrons converts a digital count to electrons, dn*gain, truncated
func (g GainTable) ToElectrons(dn float64) float64 {
	i := g.segment(dn, units.DN)
	if i < 0 {
		return 0
	}
	return math.Trunc(dn * g[i].Gain)
}

// Apply converts a quantity in electrons to DN, or in DN to electrons.
// The result has the same shape as q and the opposite unit.  A quantity with
// any other unit is rejected with a *UnitError, and one of rank above 2 with
// units.ErrShape.
func (g GainTable) Apply(q units.Quantity) (units.Quantity, error) {
	var (
		conv func(float64) float64
		to   units.Unit
	)
	switch q.Unit {
	case units.Electron:
		conv, to = g.ToDN, units.DN
	case units.DN:
		conv, to = g.ToElectrons, units.Electron
	default:
		return units.Quantity{}, &UnitError{Op: "apply gain", Got: q.Unit}
	}
	if q.Rank() > 2 {
		return units.Quantity{}, fmt.Errorf("%w: apply gain takes rank 0, 1 or 2, got shape %v", units.ErrShape, q.Shape)
	}
	err := q.Check()
	if err != nil {
		return units.Quantity{}, err
	}
	out := units.Quantity{
		Values: make([]float64, len(q.Values)),
		Shape:  append([]int(nil), q.Shape...),
		Unit:   to,
	}
	for i, v := range q.Values {
		out.Values[i] = conv(v)
	}
	return out, nil
}
