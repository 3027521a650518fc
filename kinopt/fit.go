package kinopt

import (
	"fmt"
	"math/rand"

	"github.com/phoskin/phoskin/optimize"
)

// Settings selects the solver strategy for an activity fit.
type Settings struct {
	// Method is "local" (LBFGS-B), "evol" (differential evolution)
	// or "none" (evaluate the starting point only).
	Method     string
	Iterations int

	Loss string
	// TimeWeights is required for the weighted loss.
	TimeWeights []float64

	// AlphaBounds and BetaBounds constrain the two parameter blocks.
	AlphaBounds [2]float64
	BetaBounds  [2]float64

	Seed  int64
	Quiet bool
}

// Result is a completed activity fit.
type Result struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
	Loss   float64   `json:"loss"`

	// Alpha maps target -> kinase -> mixing weight; Beta maps
	// kinase -> substrate row label -> weight.
	Alpha map[string]map[string]float64 `json:"alpha"`
	Beta  map[string]map[string]float64 `json:"beta"`

	Estimated [][]float64 `json:"-"`
	Metrics   Metrics     `json:"metrics"`

	Optimizer optimize.Summary `json:"optimizer"`
}

// Fit estimates the alpha and beta blocks for the problem.
func Fit(p *Problem, s Settings) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.Iterations <= 0 {
		s.Iterations = 10000
	}
	if s.Loss == "" {
		s.Loss = LossBase
	}
	if s.AlphaBounds == [2]float64{} {
		s.AlphaBounds = [2]float64{-2, 2}
	}
	if s.BetaBounds == [2]float64{} {
		s.BetaBounds = [2]float64{-2, 2}
	}
	if s.AlphaBounds[0] >= s.AlphaBounds[1] || s.BetaBounds[0] >= s.BetaBounds[1] {
		return nil, fmt.Errorf("kinopt: empty parameter bounds")
	}

	obj, err := NewObjective(p, s.Loss, s.TimeWeights)
	if err != nil {
		return nil, err
	}

	na := p.NAlpha()
	rng := rand.New(rand.NewSource(s.Seed))
	pars := obj.GetFloatParameters()
	for i, par := range pars {
		b := s.AlphaBounds
		if i >= na {
			b = s.BetaBounds
		}
		par.SetMin(b[0])
		par.SetMax(b[1])
		par.Set(b[0] + rng.Float64()*(b[1]-b[0]))
	}

	var opt optimize.Optimizer
	switch s.Method {
	case "", "local":
		o := optimize.NewLBFGSB()
		o.Quiet = s.Quiet
		opt = o
	case "evol":
		o := optimize.NewDE(rng.Int63())
		o.Quiet = s.Quiet
		opt = o
	case "none":
		o := optimize.NewNone()
		o.Quiet = s.Quiet
		opt = o
	default:
		return nil, fmt.Errorf("kinopt: unknown method %q", s.Method)
	}
	opt.SetOptimizable(obj)
	opt.SetReportPeriod(0)
	opt.Run(s.Iterations)

	best := opt.GetMinLossParameters()
	if best == nil {
		best = pars.Values(nil)
	}
	pars.SetValues(best)

	res := &Result{
		Names:     p.ParamNames(),
		Values:    append([]float64(nil), best...),
		Loss:      opt.GetMinLoss(),
		Estimated: obj.Predicted(),
		Optimizer: opt.Summary(),
	}
	res.Alpha, res.Beta = extract(p, best)
	res.Metrics = ComputeMetrics(p.Observed, res.Estimated)
	log.Noticef("activity fit: loss=%g mse=%g r2=%g", res.Loss, res.Metrics.MSE, res.Metrics.R2)
	return res, nil
}

// extract splits the flat vector into the named alpha and beta maps.
func extract(p *Problem, params []float64) (alpha, beta map[string]map[string]float64) {
	alpha = make(map[string]map[string]float64, len(p.Targets))
	a := 0
	for i, ks := range p.TargetKinases {
		m := make(map[string]float64, len(ks))
		for _, k := range ks {
			m[p.Kinases[k]] = params[a]
			a++
		}
		alpha[p.Targets[i]] = m
	}
	beta = make(map[string]map[string]float64, len(p.Kinases))
	for k, name := range p.Kinases {
		m := make(map[string]float64, p.RowCount[k])
		for r := 0; r < p.RowCount[k]; r++ {
			global := p.RowStart[k] + r
			m[p.RowLabels[global]] = params[a+global]
		}
		beta[name] = m
	}
	return alpha, beta
}
