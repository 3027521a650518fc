/*

Phoskin fits mechanistic phosphorylation kinetics to time-series
intensity data. It runs as a sequence of stages:

	phoskin all -d series.csv

, this will validate the data, run the configured activity fits and
fit the kinetic model to every gene.

Individual stages can be run on their own:

	phoskin prep -d series.csv
	phoskin kinopt --mode evol
	phoskin tfopt --mode local
	phoskin model -d series.csv --resume

To see all the options run:

	phoskin --help

*/
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/phoskin/phoskin/config"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("phoskin")
var formatter = logging.MustStringFormatter(`%{message}`)

// loggedPackages get their level set from -loglevel.
var loggedPackages = []string{
	"phoskin", "optimize", "estimate", "kinopt", "tfopt",
	"sensitivity", "store", "report",
}

// command-line options
var (
	app = kingpin.New("phoskin", "phosphorylation kinetics model fitting").Version(version)

	stage = app.Arg("stage", "pipeline stage to run "+
		"(all: every configured stage, "+
		"prep: load and validate the time series, "+
		"kinopt: kinase activity fit, "+
		"tfopt: TF activity fit, "+
		"model: kinetic model fit per gene)").
		Required().Enum("all", "prep", "kinopt", "tfopt", "model")

	configFileName = app.Flag("config", "YAML run configuration").Short('c').String()
	dataFileName   = app.Flag("data", "time-series CSV (gene,site,time,intensity)").Short('d').String()
	outDir         = app.Flag("out", "output directory").Short('o').String()

	// stage parameters
	mode    = app.Flag("mode", "solver for the fits (local, evol or none)").Enum("local", "evol", "none")
	resume  = app.Flag("resume", "skip genes with a finished fit in the results database").Bool()
	startF  = app.Flag("start", "read a warm-start parameter vector from a file").ExistingFile()
	itersCL = app.Flag("iter", "override the number of iterations").Default("-1").Int()

	// technical
	nThreads   = app.Flag("nt", "number of threads to use").Int()
	seed       = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json summary to a file").String()
)

// loadConfig merges the optional YAML file with the CLI overrides.
func loadConfig() *config.Config {
	var cfg *config.Config
	var err error
	if *configFileName != "" {
		cfg, err = config.Load(*configFileName)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		cfg = config.Default()
	}
	if *dataFileName != "" {
		cfg.Paths.TimeSeries = *dataFileName
	}
	if *outDir != "" {
		cfg.Paths.OutDir = *outDir
	}
	if *itersCL > 0 {
		cfg.Estimate.Iterations = *itersCL
	}
	if *mode != "" {
		cfg.Estimate.Method = *mode
	}
	if *seed != -1 {
		cfg.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, pkg := range loggedPackages {
		logging.SetLevel(level, pkg)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	rand.Seed(*seed)
	runtime.GOMAXPROCS(*nThreads)

	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.\n", effectiveNThreads)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	cfg := loadConfig()
	if cfg.Seed == -1 {
		cfg.Seed = *seed
	}
	if err := os.MkdirAll(cfg.Paths.OutDir, 0755); err != nil {
		log.Fatal(err)
	}

	startTime := time.Now()
	summary := &RunSummary{}

	switch *stage {
	case "prep":
		summary.Prep = runPrep(cfg)
	case "kinopt":
		summary.Kinopt = runKinopt(cfg)
	case "tfopt":
		summary.Tfopt = runTfopt(cfg)
	case "model":
		summary.Model = runModel(cfg)
	case "all":
		summary.Prep = runPrep(cfg)
		if cfg.Paths.KinaseMap != "" {
			summary.Kinopt = runKinopt(cfg)
		}
		if cfg.Paths.TFMap != "" {
			summary.Tfopt = runTfopt(cfg)
		}
		summary.Model = runModel(cfg)
	}

	summary.Call = CallSummary{
		Version:     version,
		CommandLine: os.Args,
		Seed:        *seed,
		NThreads:    effectiveNThreads,
		TotalTime:   time.Since(startTime).Seconds(),
	}
	log.Noticef("Running time: %v", time.Since(startTime))

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
