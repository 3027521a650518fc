// Package estimate searches parameter space for the kinetic models:
// weighted residual objectives, local (LBFGS-B) and evolutionary
// (differential evolution) strategies, sequential and normal fitting
// modes, regularization with a parallel lambda grid search, and
// bootstrapped confidence intervals.
package estimate

import (
	"math"

	"github.com/phoskin/phoskin/data"
	"github.com/phoskin/phoskin/integrate"
	"github.com/phoskin/phoskin/kinetics"
	"github.com/phoskin/phoskin/optimize"
)

// penaltyLoss is returned when integration or the steady state fails
// inside the objective, steering the optimizer away from invalid
// regions without aborting the run.
const penaltyLoss = 1e12

// logEps floors bounds before a log transform.
const logEps = 1e-8

// Objective compares simulated trajectories to one gene's observed
// data. It implements optimize.Optimizable; parameter values live in
// optimizer space (log space for the random model).
type Objective struct {
	model  *kinetics.Model
	solver integrate.Solver
	record *data.GeneRecord

	times   []float64 // fitting window, a prefix of the record grid
	target  []float64 // protein series (if present) then site series
	weights []float64 // sigma per target element, nil for uniform

	lambda   float64 // L2 penalty, 0 disables
	logSpace bool

	values     []float64
	parameters optimize.FloatParameters

	natBuf []float64
}

// NewObjective builds the objective over a fitting window of the
// record's grid (nil means the full grid).
func NewObjective(model *kinetics.Model, solver integrate.Solver, record *data.GeneRecord, window []float64) *Objective {
	if window == nil {
		window = record.Times
	}
	o := &Objective{
		model:    model,
		solver:   solver,
		record:   record,
		times:    window,
		logSpace: model.Variant().LogSpace(),
		values:   make([]float64, model.NParams()),
		natBuf:   make([]float64, model.NParams()),
	}
	o.target = buildTarget(record, len(window))
	for i, name := range model.ParamNames() {
		o.parameters.Append(optimize.BasicFloatParameterGenerator(&o.values[i], name))
	}
	return o
}

// buildTarget flattens the observed data over the first n time
// points: protein reference first (when present), then one series per
// site.
func buildTarget(record *data.GeneRecord, n int) []float64 {
	var target []float64
	if record.Protein != nil {
		target = append(target, record.Protein[:n]...)
	}
	for _, series := range record.Phospho {
		target = append(target, series[:n]...)
	}
	return target
}

// SetLambda sets the L2 regularization strength.
func (o *Objective) SetLambda(lambda float64) { o.lambda = lambda }

// SetWeights sets per-element sigmas; length must match TargetLen.
func (o *Objective) SetWeights(w []float64) { o.weights = w }

// TargetLen returns the number of residual elements.
func (o *Objective) TargetLen() int { return len(o.target) }

// Target returns the flattened observed vector.
func (o *Objective) Target() []float64 { return o.target }

// SetTarget replaces the observed vector (bootstrap resampling).
func (o *Objective) SetTarget(t []float64) {
	if len(t) != len(o.target) {
		panic("target length mismatch")
	}
	o.target = t
}

// GetFloatParameters implements optimize.Optimizable.
func (o *Objective) GetFloatParameters() optimize.FloatParameters {
	return o.parameters
}

// Copy implements optimize.Optimizable. The record is immutable and
// shared; everything mutable is cloned.
func (o *Objective) Copy() optimize.Optimizable {
	n := NewObjective(o.model, o.solver, o.record, o.times)
	copy(n.values, o.values)
	n.lambda = o.lambda
	n.target = append([]float64(nil), o.target...)
	if o.weights != nil {
		n.weights = append([]float64(nil), o.weights...)
	}
	for i, par := range o.parameters {
		n.parameters[i].SetMin(par.GetMin())
		n.parameters[i].SetMax(par.GetMax())
		if par.Fixed() {
			n.parameters[i].Fix()
		}
	}
	return n
}

// natural converts optimizer-space values to natural-scale rate
// constants.
func (o *Objective) natural() []float64 {
	if !o.logSpace {
		copy(o.natBuf, o.values)
		return o.natBuf
	}
	for i, v := range o.values {
		o.natBuf[i] = math.Exp(v)
	}
	return o.natBuf
}

// Simulate integrates the model at the given natural-scale parameters
// from their steady state over the objective's window.
func (o *Objective) Simulate(nat []float64) (*integrate.Trace, error) {
	x0, err := o.model.SteadyState(nat)
	if err != nil {
		return nil, err
	}
	f := func(t float64, x, dxdt []float64) {
		o.model.Deriv(nat, x, dxdt)
	}
	return o.solver.Integrate(f, x0, o.times)
}

// Predicted flattens a trace into the target layout.
func (o *Objective) Predicted(tr *integrate.Trace) []float64 {
	pred := make([]float64, 0, len(o.target))
	if o.record.Protein != nil {
		for i := range o.times {
			pred = append(pred, o.model.ProteinSignal(tr.At(i)))
		}
	}
	for site := range o.record.Sites {
		for i := range o.times {
			pred = append(pred, o.model.SiteSignal(tr.At(i), site))
		}
	}
	return pred
}

// Loss implements optimize.Optimizable: the weighted sum of squared
// residuals plus the optional L2 penalty. Simulation failures yield
// penaltyLoss so the optimizer can steer away.
func (o *Objective) Loss() float64 {
	tr, err := o.Simulate(o.natural())
	if err != nil {
		return penaltyLoss
	}
	pred := o.Predicted(tr)
	loss := 0.0
	for k, p := range pred {
		d := p - o.target[k]
		if o.weights != nil {
			d /= o.weights[k]
		}
		loss += d * d
	}
	if o.lambda > 0 {
		reg := 0.0
		for _, v := range o.values {
			reg += v * v
		}
		loss += o.lambda / float64(len(o.values)) * reg
	}
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return penaltyLoss
	}
	return loss
}

// Score is the unweighted mean squared error at natural-scale
// parameters, used to compare fits across weight schemes.
func (o *Objective) Score(nat []float64) float64 {
	tr, err := o.Simulate(nat)
	if err != nil {
		return math.Inf(+1)
	}
	pred := o.Predicted(tr)
	s := 0.0
	for k, p := range pred {
		d := p - o.target[k]
		s += d * d
	}
	return s / float64(len(pred))
}
