// Package jitter synthesises time correlated pointing jitter.
//
// Each channel (row, column, position angle) is white Gaussian noise smoothed
// by a Gaussian kernel whose width is the correlation time in frames, then
// scaled back up so every sample keeps the requested standard deviation.
package jitter

import (
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pandoramission/pandorasat/caltable"
)

// ErrParams is generated for a frame count or frame time that is not positive
var ErrParams = errors.New("jitter: frame count and frame time must be positive")

// kernelHalfWidth is the kernel half width in kernel standard deviations
const kernelHalfWidth = 4

// Params configure Generate
type Params struct {
	// RowSigma and ColSigma are the 1-sigma jitter in pixels
	RowSigma, ColSigma float64

	// ThetaSigma is the 1-sigma position angle jitter in degrees
	ThetaSigma float64

	// CorrelationTime is the timescale over which jitter is correlated
	CorrelationTime time.Duration

	// FrameTime is the sample spacing
	FrameTime time.Duration

	// N is the number of samples
	N int

	// Seed makes the series reproducible.  Channels use Seed, Seed+1 and
	// Seed+2.  When nil the clock seeds the generator and every call differs.
	Seed *uint64
}

// Series is a jitter time series.  All slices have the same length.
type Series struct {
	// Time is seconds from the start of the series
	Time []float64

	// Row and Col are offsets in pixels
	Row, Col []float64

	// Theta is the position angle offset in degrees
	Theta []float64
}

// Len is the number of samples
func (s Series) Len() int { return len(s.Time) }

// Seed returns a pointer to v, for Params.Seed
func Seed(v uint64) *uint64 { return &v }

// Generate returns a jitter series
func Generate(p Params) (Series, error) {
	if p.N <= 0 || p.FrameTime <= 0 {
		return Series{}, fmt.Errorf("%w: N=%d, frame time %v", ErrParams, p.N, p.FrameTime)
	}
	var base uint64
	if p.Seed != nil {
		base = *p.Seed
	} else {
		base = uint64(time.Now().UnixNano())
	}
	width := p.CorrelationTime.Seconds() / p.FrameTime.Seconds()
	kernel := Kernel(width)

	s := Series{Time: make([]float64, p.N)}
	dt := p.FrameTime.Seconds()
	for i := range s.Time {
		s.Time[i] = float64(i) * dt
	}
	s.Row = channel(p.RowSigma, p.N, kernel, base)
	s.Col = channel(p.ColSigma, p.N, kernel, base+1)
	s.Theta = channel(p.ThetaSigma, p.N, kernel, base+2)
	return s, nil
}

// Kernel returns a normalised Gaussian kernel with standard deviation sigma
// samples, truncated at 4 sigma.  Its centre tap is at index len/2.
// A sigma below one hundredth of a sample gives the identity kernel.
func Kernel(sigma float64) []float64 {
	if !(sigma >= 0.01) {
		return []float64{1}
	}
	half := int(math.Ceil(kernelHalfWidth * sigma))
	k := make([]float64, 2*half+1)
	var sum float64
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// channel draws n white samples of standard deviation sigma and smooths them
// with kernel.  The input is taken as zero beyond either end.  Each output is
// divided by the root sum of squares of the kernel taps that overlapped the
// input, restoring the standard deviation to sigma.  In the interior that is
// a factor of sqrt(2·sqrt(π)·width).
func channel(sigma float64, n int, kernel []float64, seed uint64) []float64 {
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}
	white := make([]float64, n)
	for i := range white {
		white[i] = dist.Rand()
	}
	half := len(kernel) / 2
	out := make([]float64, n)
	for i := range out {
		var acc, norm float64
		for j, w := range kernel {
			idx := i + j - half
			if idx < 0 || idx >= n {
				continue
			}
			acc += w * white[idx]
			norm += w * w
		}
		out[i] = acc / math.Sqrt(norm)
	}
	return out
}

// Resample linearly interpolates the series onto times t, in seconds from the
// start of the series.  Times before the first or after the last sample take
// the end values.
func (s Series) Resample(t []float64) (Series, error) {
	out := Series{Time: append([]float64(nil), t...)}
	var err error
	out.Row, err = resample(s.Time, s.Row, t)
	if err != nil {
		return Series{}, err
	}
	out.Col, err = resample(s.Time, s.Col, t)
	if err != nil {
		return Series{}, err
	}
	out.Theta, err = resample(s.Time, s.Theta, t)
	if err != nil {
		return Series{}, err
	}
	return out, nil
}

func resample(x, y, t []float64) ([]float64, error) {
	c, err := caltable.NewCurve(x, y, caltable.Edge)
	if err != nil {
		return nil, fmt.Errorf("jitter: %w", err)
	}
	return c.Eval(t), nil
}
