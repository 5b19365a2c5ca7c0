// Package flatfield simulates detector flat fields and moves them in and out
// of FITS files.  Files are versioned by date in their name; the newest file
// by filename sort wins when loading.
package flatfield

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/astrogo/fitsio"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoFlat is generated when no flat-field file exists for a detector
var ErrNoFlat = errors.New("flatfield: no flat-field file found")

// ErrShape is generated when a flat does not hold rows*cols values
var ErrShape = errors.New("flatfield: data does not match shape")

// Flat is a flat-field image, row-major
type Flat struct {
	Rows, Cols int
	Data       []float64
}

// At returns the value at row r, column c
func (f Flat) At(r, c int) float64 { return f.Data[r*f.Cols+c] }

// Provenance is written into the header of a generated flat
type Provenance struct {
	// Author is the person or process that generated the file
	Author string

	// Version is the software version that generated the file
	Version string

	// Date is the generation date
	Date time.Time

	// StdDev is the standard deviation of the Gaussian noise in the flat
	StdDev float64

	// Detector is the detector name, e.g. VISDA
	Detector string
}

const dateFmt = "02-01-2006"

// Simulate returns a rows x cols flat of Gaussian noise around 1 with the
// given standard deviation.  The same seed always produces the same flat.
func Simulate(rows, cols int, stddev float64, seed uint64) Flat {
	n := distuv.Normal{Mu: 1, Sigma: stddev, Src: rand.NewSource(seed)}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = n.Rand()
	}
	return Flat{Rows: rows, Cols: cols, Data: data}
}

// Write streams a flat as a single 64-bit float image HDU to w, with the
// provenance cards in its header
func Write(w io.Writer, flat Flat, p Provenance) error {
	if len(flat.Data) != flat.Rows*flat.Cols {
		return fmt.Errorf("%w: %d values for %dx%d", ErrShape, len(flat.Data), flat.Rows, flat.Cols)
	}
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	// FITS axes run fastest first, so columns lead
	im := fitsio.NewImage(-64, []int{flat.Cols, flat.Rows})
	defer im.Close()
	metadata := []fitsio.Card{
		{Name: "AUTHOR", Value: p.Author},
		{Name: "VERSION", Value: p.Version},
		{Name: "DATE", Value: p.Date.Format(dateFmt)},
		{Name: "STDDEV", Value: p.StdDev, Comment: "stddev of gaussian noise"},
		{Name: "DETECTOR", Value: p.Detector},
		{Name: "EXTNAME", Value: "FLAT"},
	}
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}
	err = im.Write(flat.Data)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// Read parses a flat written by Write, or any FITS file whose first HDU is a
// 2D image
func Read(r io.Reader) (Flat, Provenance, error) {
	var (
		flat Flat
		p    Provenance
	)
	f, err := fitsio.Open(r)
	if err != nil {
		return flat, p, err
	}
	defer f.Close()
	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return flat, p, errors.New("flatfield: first HDU is not an image")
	}
	axes := img.Header().Axes()
	if len(axes) != 2 {
		return flat, p, fmt.Errorf("flatfield: expected a 2D image, got %d axes", len(axes))
	}
	flat.Cols, flat.Rows = axes[0], axes[1]
	flat.Data = make([]float64, flat.Rows*flat.Cols)
	err = img.Read(&flat.Data)
	if err != nil {
		return flat, p, err
	}
	if len(flat.Data) != flat.Rows*flat.Cols {
		return flat, p, fmt.Errorf("%w: read %d values for %dx%d", ErrShape, len(flat.Data), flat.Rows, flat.Cols)
	}

	hdr := img.Header()
	if c := hdr.Get("AUTHOR"); c != nil {
		p.Author, _ = c.Value.(string)
	}
	if c := hdr.Get("VERSION"); c != nil {
		p.Version, _ = c.Value.(string)
	}
	if c := hdr.Get("DETECTOR"); c != nil {
		p.Detector, _ = c.Value.(string)
	}
	if c := hdr.Get("DATE"); c != nil {
		if s, ok := c.Value.(string); ok {
			p.Date, _ = time.Parse(dateFmt, s)
		}
	}
	if c := hdr.Get("STDDEV"); c != nil {
		switch v := c.Value.(type) {
		case float64:
			p.StdDev = v
		case int:
			p.StdDev = float64(v)
		}
	}
	return flat, p, nil
}

// Filename returns the name a flat for detector generated at t is stored under,
// flatfield_<detector>_<yyyy-mm-dd>.fits
func Filename(detector string, t time.Time) string {
	return fmt.Sprintf("flatfield_%s_%s.fits", detector, t.Format("2006-01-02"))
}

// WriteFile writes a flat into dir under Filename(p.Detector, p.Date),
// replacing any file from the same day.  It returns the path written.
func WriteFile(dir string, flat Flat, p Provenance) (string, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", err
	}
	fn := filepath.Join(dir, Filename(p.Detector, p.Date))
	fid, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	defer fid.Close()
	err = Write(fid, flat, p)
	if err != nil {
		return fn, err
	}
	return fn, fid.Close()
}

// Latest returns the path of the most recent flat for a detector in dir, by
// filename sort
func Latest(dir, detector string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "flatfield_"+detector+"_*.fits"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: detector %s in %s", ErrNoFlat, detector, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// LoadLatest reads the most recent flat for a detector in dir
func LoadLatest(dir, detector string) (Flat, Provenance, error) {
	fn, err := Latest(dir, detector)
	if err != nil {
		return Flat{}, Provenance{}, err
	}
	fid, err := os.Open(fn)
	if err != nil {
		return Flat{}, Provenance{}, err
	}
	defer fid.Close()
	flat, p, err := Read(fid)
	if err != nil {
		return flat, p, fmt.Errorf("%s: %w", fn, err)
	}
	return flat, p, nil
}
