package main

import (
	"github.com/phoskin/phoskin/estimate"
	"github.com/phoskin/phoskin/kinopt"
)

// CallSummary describes the invocation itself.
type CallSummary struct {
	// Version stores the phoskin version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// TotalTime is the computation time in seconds.
	TotalTime float64 `json:"time"`
}

// PrepSummary reports the data validation stage.
type PrepSummary struct {
	// Genes is the number of genes passing validation.
	Genes int `json:"genes"`
	// Rejected maps failing genes to their validation errors.
	Rejected map[string]string `json:"rejected,omitempty"`
	// TimePoints is the grid length of the first valid gene.
	TimePoints int `json:"timePoints"`
}

// GeneSummary is one gene's outcome in the model stage.
type GeneSummary struct {
	Score  float64            `json:"score"`
	Lambda float64            `json:"lambda,omitempty"`
	Weight string             `json:"weight,omitempty"`
	Params map[string]float64 `json:"params"`
	// Error is set when the gene was skipped or its fit failed.
	Error string `json:"error,omitempty"`
	// Resumed is true when the fit came from the results database.
	Resumed bool `json:"resumed,omitempty"`
}

// ModelSummary reports the kinetic model fitting stage.
type ModelSummary struct {
	Fitted int `json:"fitted"`
	Failed int `json:"failed"`
	// Genes is the per-gene outcome keyed by gene name.
	Genes map[string]*GeneSummary `json:"genes"`
	// Sensitivity is the Morris ranking of the first fitted gene,
	// when the stage is enabled.
	Sensitivity *SensitivitySummary `json:"sensitivity,omitempty"`
	// Time is the stage duration in seconds.
	Time float64 `json:"modelTime"`
}

// SensitivitySummary reports the Morris screening result.
type SensitivitySummary struct {
	Gene   string    `json:"gene"`
	Names  []string  `json:"names"`
	Mu     []float64 `json:"mu"`
	MuStar []float64 `json:"muStar"`
	Sigma  []float64 `json:"sigma"`
}

// ActivitySummary reports a kinopt or tfopt stage.
type ActivitySummary struct {
	Targets int            `json:"targets"`
	Loss    float64        `json:"loss"`
	Metrics kinopt.Metrics `json:"metrics"`
	Time    float64        `json:"activityTime"`
}

// RunSummary is the top-level JSON output.
type RunSummary struct {
	Call   CallSummary      `json:"call"`
	Prep   *PrepSummary     `json:"prep,omitempty"`
	Kinopt *ActivitySummary `json:"kinopt,omitempty"`
	Tfopt  *ActivitySummary `json:"tfopt,omitempty"`
	Model  *ModelSummary    `json:"model,omitempty"`
}

// geneSummary converts a fit result for the JSON output.
func geneSummary(res *estimate.FitResult) *GeneSummary {
	params := make(map[string]float64, len(res.Names))
	for i, name := range res.Names {
		params[name] = res.Values[i]
	}
	return &GeneSummary{
		Score:  res.Score,
		Lambda: res.Lambda,
		Weight: res.Weight,
		Params: params,
	}
}
