package estimate

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/op/go-logging"

	"github.com/phoskin/phoskin/data"
	"github.com/phoskin/phoskin/integrate"
	"github.com/phoskin/phoskin/kinetics"
	"github.com/phoskin/phoskin/optimize"
)

var log = logging.MustGetLogger("estimate")

// Settings selects the estimation strategy. Both toggles are resolved
// here, once, from configuration; the estimator never chooses at
// runtime.
type Settings struct {
	Variant kinetics.Variant
	Sites   int
	Solver  integrate.Solver

	// Mode is ModeNormal or ModeSequential.
	Mode string
	// Method is MethodLocal, MethodEvol or MethodNone.
	Method     string
	Iterations int

	// Lower and Upper are natural-scale per-parameter bounds.
	Lower []float64
	Upper []float64
	// Fixed pins parameters by name at natural-scale values.
	Fixed map[string]float64
	// Start optionally supplies a natural-scale warm start instead of
	// a random one.
	Start []float64

	Bootstrap int
	Alpha     float64

	Regularize bool
	LambdaGrid int

	Seed  int64
	Quiet bool
}

// Estimation modes and methods.
const (
	ModeNormal     = "normal"
	ModeSequential = "sequential"
	MethodLocal    = "local"
	MethodEvol     = "evol"
	// MethodNone evaluates the starting point without optimizing,
	// typically together with Start.
	MethodNone = "none"
)

// minWindow is the smallest time-prefix the sequential mode fits.
const minWindow = 3

// Estimator fits one gene at a time; construct one per gene (they are
// cheap) so parallel fits share nothing.
type Estimator struct {
	s     Settings
	model *kinetics.Model
	rng   *rand.Rand
}

// New validates the settings and builds an estimator. Errors here are
// configuration mistakes and fail the run before any fitting starts.
func New(s Settings) (*Estimator, error) {
	model, err := kinetics.NewModel(s.Variant, s.Sites)
	if err != nil {
		return nil, err
	}
	if len(s.Lower) != model.NParams() || len(s.Upper) != model.NParams() {
		return nil, fmt.Errorf("bounds length %d/%d does not match %s model with %d sites (%d parameters)",
			len(s.Lower), len(s.Upper), s.Variant, s.Sites, model.NParams())
	}
	switch s.Mode {
	case ModeNormal, ModeSequential:
	default:
		return nil, fmt.Errorf("unknown estimation mode: %s", s.Mode)
	}
	switch s.Method {
	case MethodLocal, MethodEvol, MethodNone:
	default:
		return nil, fmt.Errorf("unknown estimation method: %s", s.Method)
	}
	if s.Iterations <= 0 {
		s.Iterations = 10000
	}
	if s.LambdaGrid <= 0 {
		s.LambdaGrid = 10
	}
	if s.Alpha <= 0 || s.Alpha >= 1 {
		s.Alpha = 0.05
	}
	if s.Start != nil && len(s.Start) != model.NParams() {
		return nil, fmt.Errorf("start point length %d does not match %s model with %d sites (%d parameters)",
			len(s.Start), s.Variant, s.Sites, model.NParams())
	}
	return &Estimator{
		s:     s,
		model: model,
		rng:   rand.New(rand.NewSource(s.Seed)),
	}, nil
}

// optimizerBounds returns the search bounds in optimizer space.
func (e *Estimator) optimizerBounds() (lo, hi []float64) {
	lo = append([]float64(nil), e.s.Lower...)
	hi = append([]float64(nil), e.s.Upper...)
	if e.s.Variant.LogSpace() {
		for i := range lo {
			lo[i] = math.Log(math.Max(lo[i], logEps))
			hi[i] = math.Log(math.Max(hi[i], logEps))
		}
	}
	return lo, hi
}

// toOptimizer transforms a natural-scale value into optimizer space.
func (e *Estimator) toOptimizer(v float64) float64 {
	if e.s.Variant.LogSpace() {
		return math.Log(math.Max(v, logEps))
	}
	return v
}

// toNatural transforms optimizer-space values back.
func (e *Estimator) toNatural(vals []float64) []float64 {
	nat := append([]float64(nil), vals...)
	if e.s.Variant.LogSpace() {
		for i := range nat {
			nat[i] = math.Exp(nat[i])
		}
	}
	return nat
}

// startPoint draws a random starting vector inside the bounds, or
// transforms the supplied warm start.
func (e *Estimator) startPoint(lo, hi []float64) []float64 {
	start := make([]float64, len(lo))
	if e.s.Start != nil {
		for i, v := range e.s.Start {
			start[i] = e.toOptimizer(v)
		}
	} else {
		for i := range start {
			start[i] = lo[i] + e.rng.Float64()*(hi[i]-lo[i])
		}
	}
	e.applyFixed(start)
	return start
}

// applyFixed overwrites pinned entries with their fixed values.
func (e *Estimator) applyFixed(vals []float64) {
	if len(e.s.Fixed) == 0 {
		return
	}
	for i, name := range e.model.ParamNames() {
		if v, ok := e.s.Fixed[name]; ok {
			vals[i] = e.toOptimizer(v)
		}
	}
}

// prepare applies bounds, fixings and the starting point to an
// objective's parameters.
func (e *Estimator) prepare(obj *Objective, start, lo, hi []float64) {
	pars := obj.GetFloatParameters()
	pars.SetValues(start)
	for i, par := range pars {
		par.SetMin(lo[i])
		par.SetMax(hi[i])
	}
	if len(e.s.Fixed) > 0 {
		for i, name := range e.model.ParamNames() {
			if _, ok := e.s.Fixed[name]; ok {
				pars[i].Fix()
			}
		}
	}
}

// newOptimizer builds the configured solver strategy.
func (e *Estimator) newOptimizer() optimize.Optimizer {
	return e.optimizerFor(e.rng.Int63())
}

// optimizerFor builds an optimizer with an explicit seed; parallel
// workers draw their seeds up front.
func (e *Estimator) optimizerFor(seed int64) optimize.Optimizer {
	switch e.s.Method {
	case MethodEvol:
		return optimize.NewDE(seed)
	case MethodNone:
		return optimize.NewNone()
	default:
		return optimize.NewLBFGSB()
	}
}

// fitWindow runs one optimization on the prepared objective and
// returns the best optimizer-space vector.
func (e *Estimator) fitWindow(obj *Objective, start, lo, hi []float64, iterations int) ([]float64, optimize.Summary) {
	return e.runOpt(e.newOptimizer(), obj, start, lo, hi, iterations)
}

// runOpt drives an already-constructed optimizer; parallel callers
// build their own optimizers so the estimator's generator is not
// shared across goroutines.
func (e *Estimator) runOpt(opt optimize.Optimizer, obj *Objective, start, lo, hi []float64, iterations int) ([]float64, optimize.Summary) {
	e.prepare(obj, start, lo, hi)
	switch o := opt.(type) {
	case *optimize.LBFGSB:
		o.Quiet = e.s.Quiet
	case *optimize.DE:
		o.Quiet = e.s.Quiet
	case *optimize.None:
		o.Quiet = e.s.Quiet
	}
	opt.SetOptimizable(obj)
	opt.SetReportPeriod(0)
	opt.Run(iterations)
	best := opt.GetMinLossParameters()
	if best == nil {
		best = append([]float64(nil), start...)
	}
	return append([]float64(nil), best...), opt.Summary()
}

// Fit estimates parameters for one gene record.
func (e *Estimator) Fit(record *data.GeneRecord) (*FitResult, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if record.NSites() != e.s.Sites {
		return nil, fmt.Errorf("%s: record has %d sites, estimator was built for %d",
			record.Gene, record.NSites(), e.s.Sites)
	}

	lo, hi := e.optimizerBounds()
	start := e.startPoint(lo, hi)

	// Steady-state precondition: a gene whose starting point has no
	// valid fixed point is flagged, not silently fitted.
	if _, err := e.model.SteadyState(e.toNatural(start)); err != nil {
		return nil, fmt.Errorf("%s: steady-state precondition: %w", record.Gene, err)
	}

	lambda := 0.0
	weightKey := WeightUniform
	if e.s.Regularize {
		var err error
		lambda, weightKey, err = e.findLambda(record, start, lo, hi)
		if err != nil {
			return nil, err
		}
		log.Infof("[%s] using lambda=%.4g, weights=%s", record.Gene, lambda, weightKey)
	}

	var best []float64
	var summ optimize.Summary
	if e.s.Mode == ModeSequential {
		best, summ = e.fitSequential(record, start, lo, hi, lambda, weightKey)
	} else {
		obj := e.buildObjective(record, nil, lambda, weightKey)
		best, summ = e.fitWindow(obj, start, lo, hi, e.s.Iterations)
	}

	nat := e.toNatural(best)
	full := e.buildObjective(record, nil, lambda, weightKey)
	trace, err := full.Simulate(nat)
	if err != nil {
		return nil, fmt.Errorf("%s: simulating accepted fit: %w", record.Gene, err)
	}
	score := full.Score(nat)

	result := &FitResult{
		Gene:      record.Gene,
		Names:     e.model.ParamNames(),
		Values:    nat,
		Score:     score,
		Lambda:    lambda,
		Weight:    weightKey,
		Trace:     trace,
		Optimizer: summ,
	}

	result.Params = e.covarianceCI(full, best)

	if e.s.Bootstrap > 0 {
		result.Bootstrap = e.bootstrap(record, best, lo, hi, lambda, weightKey)
	}
	return result, nil
}

// buildObjective assembles an objective with the chosen lambda and
// weight scheme over a window (nil for the full grid).
func (e *Estimator) buildObjective(record *data.GeneRecord, window []float64, lambda float64, weightKey string) *Objective {
	obj := NewObjective(e.model, e.s.Solver, record, window)
	obj.SetLambda(lambda)
	n := len(record.Times)
	if window != nil {
		n = len(window)
	}
	obj.SetWeights(Weights(weightKey, obj.Target(), n))
	return obj
}

// fitSequential fits growing time-prefix windows, each warm started
// from the previous window's best point.
func (e *Estimator) fitSequential(record *data.GeneRecord, start, lo, hi []float64, lambda float64, weightKey string) ([]float64, optimize.Summary) {
	best := append([]float64(nil), start...)
	var summ optimize.Summary
	total := len(record.Times)
	first := minWindow
	if first > total {
		first = total
	}
	for k := first; k <= total; k++ {
		obj := e.buildObjective(record, record.Times[:k], lambda, weightKey)
		best, summ = e.fitWindow(obj, best, lo, hi, e.s.Iterations)
		log.Debugf("[%s] window %d/%d: loss %g", record.Gene, k, total, summ.MinLoss)
	}
	return best, summ
}
