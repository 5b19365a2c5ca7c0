package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/joho/godotenv"
	"github.com/theckman/yacspin"

	"github.com/pandoramission/pandorasat/config"
	"github.com/pandoramission/pandorasat/detector"
	"github.com/pandoramission/pandorasat/flatfield"
	"github.com/pandoramission/pandorasat/httpapi"
	"github.com/pandoramission/pandorasat/observatory"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "0.1.0"

	// ConfigFileName is what it sounds like
	ConfigFileName = "pandora.yml"
)

const (
	flatStdDev = 0.005
	flatSeed   = 777
)

func root() {
	str := `pandora models the Pandora SmallSat's two detectors and exposes them over HTTP

Usage:
	pandora <command>

Commands:
	run
	info
	flatfield
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `pandora is amenable to configuration via its .yaml file, pandora.yml in the
working directory.  For a primer on YAML, see https://yaml.org/start.html

Every key may also be set from the environment, or a .env file, as
PANDORA_<KEY> with nested keys joined by a double underscore, e.g.
	PANDORA_JITTER__ROW_SIGMA=0.3
	PANDORA_POINTING__RA=120

Calibration tables are looked up relative to data_dir.  The NIRDA QE table and
both distortion tables are optional; without them the matching quantities
report that they are not configured.

Commands:
	run        serve both detectors over HTTP at addr
	info       print a summary of both detectors as JSON
	flatfield  simulate fresh flat-fields for both detectors into flat_dir
	mkconf     write the current configuration to pandora.yml
	conf       print the current configuration`
	fmt.Println(str)
}

func mkconf(c config.Config) {
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = config.Write(f, c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf(c config.Config) {
	err := config.Write(os.Stdout, c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("pandora version %v\n", Version)
}

func newObservatory(c config.Config, logger *slog.Logger) *observatory.Observatory {
	obs, err := observatory.New(c, observatory.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	return obs
}

func info(c config.Config) {
	obs := newObservatory(c, nil)
	infos := []detector.Info{}
	for _, d := range obs.Detectors() {
		infos = append(infos, d.Info())
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	err := enc.Encode(infos)
	if err != nil {
		log.Fatal(err)
	}
}

func mkflats(c config.Config) {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " flatfield",
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopMessage:       "done",
		StopFailCharacter: "✗",
		StopFailMessage:   "failed",
	})
	if err != nil {
		log.Fatal(err)
	}
	spinner.Start()
	now := time.Now().UTC()
	for _, d := range []struct {
		name string
		spec detector.Spec
	}{{"VISDA", detector.VisibleSpec}, {"NIRDA", detector.NIRSpec}} {
		spinner.Message("simulating " + d.name)
		flat := flatfield.Simulate(d.spec.Rows, d.spec.Cols, flatStdDev, flatSeed)
		fn, err := flatfield.WriteFile(c.FlatPath(), flat, flatfield.Provenance{
			Author:   "pandora " + Version,
			Version:  Version,
			Date:     now,
			StdDev:   flatStdDev,
			Detector: d.name,
		})
		if err != nil {
			spinner.StopFail()
			log.Fatal(err)
		}
		spinner.Message("wrote " + fn)
	}
	spinner.Stop()
}

func run(c config.Config) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	obs := newObservatory(c, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", httpapi.New(obs, logger).Handler())
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, r))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	// a missing .env is normal
	_ = godotenv.Load()
	c, err := config.Load(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf(c)
	case "conf":
		printconf(c)
	case "info":
		info(c)
	case "flatfield", "flat":
		mkflats(c)
	case "run":
		run(c)
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
