package estimate

import (
	"github.com/phoskin/phoskin/integrate"
	"github.com/phoskin/phoskin/optimize"
)

// ParamEstimate is one fitted parameter with its covariance-based
// confidence interval. Every field is natural scale; for log-space
// fits StdErr is the delta-method mapping of the log-scale error.
type ParamEstimate struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	StdErr float64 `json:"stdErr"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	PValue float64 `json:"pValue"`
}

// BootstrapResult summarizes the resampling runs. Failed iterations
// are excluded from the interval sample, never from the count.
type BootstrapResult struct {
	Samples  int       `json:"samples"`
	Failures int       `json:"failures"`
	Lower    []float64 `json:"lower"`
	Upper    []float64 `json:"upper"`
}

// FitResult is one gene's accepted fit.
type FitResult struct {
	Gene   string          `json:"gene"`
	Names  []string        `json:"names"`
	Values []float64       `json:"values"`
	Params []ParamEstimate `json:"params"`
	Score  float64         `json:"score"`
	Lambda float64         `json:"lambda,omitempty"`
	Weight string          `json:"weight"`

	Trace     *integrate.Trace `json:"-"`
	Optimizer optimize.Summary `json:"optimizer"`
	Bootstrap *BootstrapResult `json:"bootstrap,omitempty"`
}
