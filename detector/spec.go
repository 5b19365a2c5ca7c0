package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"

	"github.com/pandoramission/pandorasat/units"
)

// Spec holds the fixed geometry, timing and noise properties of a detector
type Spec struct {
	// Rows and Cols give the shape of the full array
	Rows, Cols int

	// PixelScale is the angle on the sky subtended by one pixel
	PixelScale unit.Angle

	// PixelPitch is the physical size of one pixel
	PixelPitch units.Length

	// FieldstopRadius is the radius of the circular fieldstop, 0 if there is none
	FieldstopRadius units.Length

	// IntegrationTime is the exposure time of one frame
	IntegrationTime time.Duration

	// Dark is the dark current in electron / s
	Dark float64

	// ReadNoise is the 1-sigma read noise in electrons
	ReadNoise Setting

	// Bias is the bias offset in electrons
	Bias Setting

	// Background is the sky and stray light rate in electron / s / pixel
	Background Setting

	// Subarray is the readout window, zero when the full array is read
	Subarray Subarray
}

// Subarray is a rectangular readout window centred on the reference pixel
type Subarray struct {
	Rows, Cols int

	// PixelReadTime is the time to read one pixel
	PixelReadTime time.Duration
}

// FrameTime is the time to read every pixel of the subarray once
func (s Subarray) FrameTime() time.Duration {
	return time.Duration(s.Rows*s.Cols) * s.PixelReadTime
}

// HasFieldstop reports whether the detector has a circular fieldstop
func (s Spec) HasFieldstop() bool { return s.FieldstopRadius > 0 }

// FieldstopPixels is the fieldstop radius in pixels, converted through the
// pixel pitch
func (s Spec) FieldstopPixels() (float64, error) {
	if !s.HasFieldstop() {
		return 0, fmt.Errorf("%w: fieldstop radius", ErrNotConfigured)
	}
	// rounded so 6.5 mm / 6.5 um is exactly 1000
	r := float64(s.FieldstopRadius / s.PixelPitch)
	return math.Round(r*1e9) / 1e9, nil
}

// Center is the (row, col) of the array centre
func (s Spec) Center() (float64, float64) {
	return float64(s.Rows) / 2, float64(s.Cols) / 2
}

var (
	// VisibleSpec describes VISDA, the visible array
	VisibleSpec = Spec{
		Rows:            2048,
		Cols:            2048,
		PixelScale:      unit.AngleFromSec(0.78),
		PixelPitch:      6.5 * units.Micron,
		FieldstopRadius: 6.5 * units.Millimeter,
		IntegrationTime: 200 * time.Millisecond,
		Dark:            1,
		ReadNoise:       Set(1.5),
		Bias:            Set(100),
		Background:      Set(2),
	}

	// NIRSpec describes NIRDA, the near infrared array.  Its read noise and
	// bias have not been measured.
	NIRSpec = Spec{
		Rows:            2048,
		Cols:            512,
		PixelScale:      unit.AngleFromSec(1.19),
		PixelPitch:      18 * units.Micron,
		IntegrationTime: 320 * time.Millisecond,
		Dark:            1,
		Subarray: Subarray{
			Rows:          400,
			Cols:          80,
			PixelReadTime: 10 * time.Microsecond,
		},
	}
)
