// Package config holds the explicit run configuration: one object,
// built once at startup from defaults, an optional YAML file and CLI
// overrides, then passed to every component. Validation happens
// before any parallel work is dispatched.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phoskin/phoskin/kinetics"
)

var (
	// ErrBounds is returned for missing or inverted parameter
	// bounds.
	ErrBounds = errors.New("invalid parameter bounds")
	// ErrMode is returned for unknown mode or method names.
	ErrMode = errors.New("unknown mode")
)

// boundClasses are the rate-constant classes a bounds table must
// cover. S(i) applies to every phosphorylation rate, D(i) to every
// site (or site subset) degradation rate.
var boundClasses = []string{"A", "B", "C", "D", "S(i)", "D(i)"}

// Range is an inclusive parameter range.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Model configures the mechanistic variant.
type Model struct {
	Variant string             `yaml:"variant"`
	Sites   int                `yaml:"sites"`
	Solver  string             `yaml:"solver"`
	Bounds  map[string]Range   `yaml:"bounds"`
	Fixed   map[string]float64 `yaml:"fixed"`
}

// Estimate configures the parameter estimator.
type Estimate struct {
	// Mode is "normal" (all time points at once) or "sequential"
	// (growing prefix windows with warm starts).
	Mode string `yaml:"mode"`
	// Method is "local" (LBFGS-B), "evol" (differential evolution)
	// or "none" (evaluate the starting point only).
	Method     string  `yaml:"method"`
	Iterations int     `yaml:"iterations"`
	Bootstrap  int     `yaml:"bootstrap"`
	Alpha      float64 `yaml:"alpha"`
	// Regularize enables the L2 penalty with a lambda grid search.
	Regularize bool `yaml:"regularize"`
	LambdaGrid int  `yaml:"lambda_grid"`
}

// Activity configures the kinase and TF activity fits.
type Activity struct {
	// Loss is one of base, weighted, softl1, cauchy, arctan.
	Loss string `yaml:"loss"`
	// TimeWeights is required for the weighted loss, one weight per
	// time point.
	TimeWeights []float64 `yaml:"time_weights"`
}

// Sensitivity configures the Morris screening stage.
type Sensitivity struct {
	Enabled      bool `yaml:"enabled"`
	Trajectories int  `yaml:"trajectories"`
	Levels       int  `yaml:"levels"`
}

// Paths collects the input/output locations.
type Paths struct {
	TimeSeries   string `yaml:"time_series"`
	KinaseMap    string `yaml:"kinase_map"`
	TFMap        string `yaml:"tf_map"`
	Expression   string `yaml:"expression"`
	OutDir       string `yaml:"out_dir"`
	ResultsDB    string `yaml:"results_db"`
}

// Config is the complete run configuration.
type Config struct {
	Model       Model       `yaml:"model"`
	Estimate    Estimate    `yaml:"estimate"`
	Activity    Activity    `yaml:"activity"`
	Sensitivity Sensitivity `yaml:"sensitivity"`
	Paths       Paths       `yaml:"paths"`
	// Workers bounds the per-gene worker pool; 0 means GOMAXPROCS.
	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model: Model{
			Variant: "distributive",
			Sites:   2,
			Solver:  "rk45",
			Bounds: map[string]Range{
				"A":    {0.01, 10},
				"B":    {0.01, 10},
				"C":    {0.01, 10},
				"D":    {0.01, 10},
				"S(i)": {0.01, 20},
				"D(i)": {0.01, 20},
			},
		},
		Estimate: Estimate{
			Mode:       "normal",
			Method:     "local",
			Iterations: 10000,
			Bootstrap:  0,
			Alpha:      0.05,
			LambdaGrid: 10,
		},
		Activity: Activity{
			Loss: "base",
		},
		Sensitivity: Sensitivity{
			Trajectories: 20,
			Levels:       4,
		},
		Paths: Paths{
			OutDir:    "results",
			ResultsDB: "",
		},
		Seed: -1,
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Variant returns the parsed model variant.
func (c *Config) Variant() (kinetics.Variant, error) {
	return kinetics.VariantFromString(c.Model.Variant)
}

// Validate checks the configuration before a run starts. Errors here
// are fatal.
func (c *Config) Validate() error {
	v, err := c.Variant()
	if err != nil {
		return err
	}
	if c.Model.Sites < 1 {
		return fmt.Errorf("model.sites must be positive, got %d", c.Model.Sites)
	}
	for _, class := range boundClasses {
		r, ok := c.Model.Bounds[class]
		if !ok {
			return fmt.Errorf("%w: missing class %q", ErrBounds, class)
		}
		if r.Min > r.Max {
			return fmt.Errorf("%w: class %q has min %g > max %g", ErrBounds, class, r.Min, r.Max)
		}
		if v.LogSpace() && r.Min < 0 {
			return fmt.Errorf("%w: class %q has negative min %g but the %s model is fitted in log space",
				ErrBounds, class, r.Min, v)
		}
	}
	names := v.ParamNames(c.Model.Sites)
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	for n := range c.Fixed() {
		if !known[n] {
			return fmt.Errorf("%w: fixed parameter %q not in %s model with %d sites",
				ErrBounds, n, v, c.Model.Sites)
		}
	}
	switch c.Estimate.Mode {
	case "normal", "sequential":
	default:
		return fmt.Errorf("%w: estimate.mode %q", ErrMode, c.Estimate.Mode)
	}
	switch c.Estimate.Method {
	case "local", "evol", "none":
	default:
		return fmt.Errorf("%w: estimate.method %q", ErrMode, c.Estimate.Method)
	}
	switch c.Model.Solver {
	case "", "rk45", "implicit":
	default:
		return fmt.Errorf("%w: model.solver %q", ErrMode, c.Model.Solver)
	}
	switch c.Activity.Loss {
	case "", "base", "weighted", "softl1", "cauchy", "arctan":
	default:
		return fmt.Errorf("%w: activity.loss %q", ErrMode, c.Activity.Loss)
	}
	if c.Estimate.Bootstrap < 0 {
		return fmt.Errorf("estimate.bootstrap must be non-negative, got %d", c.Estimate.Bootstrap)
	}
	if c.Estimate.Alpha <= 0 || c.Estimate.Alpha >= 1 {
		return fmt.Errorf("estimate.alpha must be in (0, 1), got %g", c.Estimate.Alpha)
	}
	if c.Sensitivity.Enabled {
		if c.Sensitivity.Trajectories < 2 {
			return fmt.Errorf("sensitivity.trajectories must be at least 2, got %d", c.Sensitivity.Trajectories)
		}
		if c.Sensitivity.Levels < 2 || c.Sensitivity.Levels%2 != 0 {
			return fmt.Errorf("sensitivity.levels must be a positive even number, got %d", c.Sensitivity.Levels)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// Fixed returns the fixed-parameter table (never nil).
func (c *Config) Fixed() map[string]float64 {
	if c.Model.Fixed == nil {
		return map[string]float64{}
	}
	return c.Model.Fixed
}

// ParamBounds expands the class bounds table into per-parameter lower
// and upper bound vectors for the configured variant and site count.
func (c *Config) ParamBounds() (lower, upper []float64, err error) {
	return c.ParamBoundsFor(c.Model.Sites)
}

// ParamBoundsFor expands the class bounds for a specific site count;
// genes carry differing numbers of observed sites.
func (c *Config) ParamBoundsFor(nsites int) (lower, upper []float64, err error) {
	v, err := c.Variant()
	if err != nil {
		return nil, nil, err
	}
	names := v.ParamNames(nsites)
	lower = make([]float64, len(names))
	upper = make([]float64, len(names))
	for i, name := range names {
		class := name
		if i >= 4 {
			if name[0] == 'S' {
				class = "S(i)"
			} else {
				class = "D(i)"
			}
		}
		r, ok := c.Model.Bounds[class]
		if !ok {
			return nil, nil, fmt.Errorf("%w: missing class %q", ErrBounds, class)
		}
		lower[i] = r.Min
		upper[i] = r.Max
	}
	return lower, upper, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
