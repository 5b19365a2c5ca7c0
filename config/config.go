// Package config holds the configuration of a Pandora simulation: where the
// calibration tables live, the pointing, the jitter model and the observation.
//
// Configuration is layered.  Defaults come first, then a yaml file, then
// environment variables prefixed PANDORA_ with __ separating levels, so
// PANDORA_JITTER__ROW_SIGMA=0.5 sets jitter.row_sigma.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "PANDORA_"

// Tables names the calibration files, relative to DataDir unless absolute.
// An empty name means the table is not available.
type Tables struct {
	// Vega is the reference spectrum for zero-points, Å and erg/s/cm²/Å
	Vega string `koanf:"vega" yaml:"vega"`

	// Benchmark is the benchmark star spectrum
	Benchmark string `koanf:"benchmark" yaml:"benchmark"`

	// Dichroic is the dichroic transmission, nm and percent
	Dichroic string `koanf:"dichroic" yaml:"dichroic"`

	// VisibleQE is the VISDA QE VOTable
	VisibleQE string `koanf:"visible_qe" yaml:"visible_qe"`

	// NIRQE is the NIRDA QE table.  NIRDA's QE is not measured yet, so this
	// is empty by default.
	NIRQE string `koanf:"nir_qe" yaml:"nir_qe"`

	// Dispersion maps NIRDA trace pixel to wavelength in µm
	Dispersion string `koanf:"dispersion" yaml:"dispersion"`

	// VisibleDispersion maps VISDA trace pixel to wavelength in µm
	VisibleDispersion string `koanf:"visible_dispersion" yaml:"visible_dispersion"`

	// VisibleDistortion and NIRDistortion hold SIP coefficients
	VisibleDistortion string `koanf:"visible_distortion" yaml:"visible_distortion"`
	NIRDistortion     string `koanf:"nir_distortion" yaml:"nir_distortion"`
}

// Pointing is the nominal boresight
type Pointing struct {
	// RA and Dec in degrees
	RA  float64 `koanf:"ra" yaml:"ra"`
	Dec float64 `koanf:"dec" yaml:"dec"`

	// Theta is the position angle in degrees
	Theta float64 `koanf:"theta" yaml:"theta"`
}

// Jitter configures the pointing jitter model
type Jitter struct {
	// RowSigma and ColSigma are 1-sigma jitter in pixels
	RowSigma float64 `koanf:"row_sigma" yaml:"row_sigma"`
	ColSigma float64 `koanf:"col_sigma" yaml:"col_sigma"`

	// ThetaSigma is the 1-sigma position angle jitter in degrees
	ThetaSigma float64 `koanf:"theta_sigma" yaml:"theta_sigma"`

	// Timescale is the correlation time, e.g. "60s"
	Timescale string `koanf:"timescale" yaml:"timescale"`

	// Seed makes jitter reproducible.  A negative seed uses the clock.
	Seed int64 `koanf:"seed" yaml:"seed"`
}

// Observation is the time span being simulated
type Observation struct {
	// Start is an RFC 3339 timestamp
	Start string `koanf:"start" yaml:"start"`

	// Duration is e.g. "1h"
	Duration string `koanf:"duration" yaml:"duration"`
}

// Config is the complete configuration
type Config struct {
	// DataDir is the directory holding the calibration tables
	DataDir string `koanf:"data_dir" yaml:"data_dir"`

	// FlatDir holds flatfield_<detector>_<date>.fits files.  Empty uses DataDir.
	FlatDir string `koanf:"flat_dir" yaml:"flat_dir"`

	Tables Tables `koanf:"tables" yaml:"tables"`

	// MirrorDiameter is the primary mirror diameter in meters
	MirrorDiameter float64 `koanf:"mirror_diameter" yaml:"mirror_diameter"`

	Pointing    Pointing    `koanf:"pointing" yaml:"pointing"`
	Jitter      Jitter      `koanf:"jitter" yaml:"jitter"`
	Observation Observation `koanf:"observation" yaml:"observation"`

	// Addr is the address the HTTP interface listens on
	Addr string `koanf:"addr" yaml:"addr"`
}

// Default returns the configuration of the nominal mission
func Default() Config {
	return Config{
		DataDir: "data",
		Tables: Tables{
			Vega:              "vega.csv",
			Benchmark:         "benchmark.csv",
			Dichroic:          "dichroic-transmission.csv",
			VisibleQE:         "Pandora.Pandora.Visible.xml",
			Dispersion:        "pixel_vs_wavelength.csv",
			VisibleDispersion: "pixel_vs_wavelength_vis.csv",
		},
		MirrorDiameter: 0.45,
		Jitter: Jitter{
			RowSigma:   0.2,
			ColSigma:   0.2,
			ThetaSigma: 0.0005,
			Timescale:  "60s",
			Seed:       -1,
		},
		Observation: Observation{
			Start:    "2025-01-01T00:00:00Z",
			Duration: "1h",
		},
		Addr: ":8000",
	}
}

// Load layers the defaults, the yaml file at path and the environment.
// A missing file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	err := k.Load(structs.Provider(Default(), "koanf"), nil)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		err = k.Load(file.Provider(path), yaml.Parser())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("error loading config %s: %w", path, err)
		}
	}
	err = k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return Config{}, err
	}
	var c Config
	err = k.Unmarshal("", &c)
	return c, err
}

// envKey maps PANDORA_JITTER__ROW_SIGMA to jitter.row_sigma
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Write encodes c as yaml
func Write(w io.Writer, c Config) error {
	enc := yml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(c)
}

// Path resolves a table name against DataDir.  Empty names stay empty.
func (c Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// FlatPath is the directory flat-fields are read from and written to
func (c Config) FlatPath() string {
	if c.FlatDir != "" {
		return c.FlatDir
	}
	return c.DataDir
}

// CorrelationTime parses the jitter timescale
func (j Jitter) CorrelationTime() (time.Duration, error) {
	d, err := time.ParseDuration(j.Timescale)
	if err != nil {
		return 0, fmt.Errorf("config: jitter timescale: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: jitter timescale must be positive, got %v", d)
	}
	return d, nil
}

// Span parses the observation start and duration
func (o Observation) Span() (time.Time, time.Duration, error) {
	start, err := time.Parse(time.RFC3339, o.Start)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("config: observation start: %w", err)
	}
	d, err := time.ParseDuration(o.Duration)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("config: observation duration: %w", err)
	}
	if d <= 0 {
		return time.Time{}, 0, fmt.Errorf("config: observation duration must be positive, got %v", d)
	}
	return start, d, nil
}
