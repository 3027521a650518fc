package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// LBFGSB minimizes the loss with the bounded limited-memory BFGS
// method. Gradients come from central finite differences.
type LBFGSB struct {
	BaseOptimizer
	dH   float64
	grad []float64
}

// NewLBFGSB creates a new LBFGS-B optimizer.
func NewLBFGSB() (l *LBFGSB) {
	l = &LBFGSB{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
			method:    "lbfgsb",
		},
		dH: 1e-6,
	}
	return
}

// Logger receives per-iteration information from the library.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = info.Iteration
	l.parameters.SetValues(info.X)
	l.loss = info.F
	l.PrintLine()
	if l.interrupted() {
		log.Fatal("interrupted during LBFGS-B iteration")
	}
}

// EvaluateFunction implements the go-lbfgsb objective.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if !l.parameters.ValuesInRange(x) {
		return math.Inf(+1)
	}
	l.parameters.SetValues(x)
	loss := l.Loss()
	l.saveIfBest(loss)
	return loss
}

// EvaluateGradient implements the go-lbfgsb gradient by central
// differences on an independent copy of the objective.
func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	if l.grad == nil {
		l.grad = make([]float64, len(x))
	}
	grad = l.grad
	no := l.Optimizable.Copy()
	par := no.GetFloatParameters()
	for i := range x {
		if par[i].Fixed() {
			grad[i] = 0
			continue
		}
		par.SetValues(x)
		par[i].Set(x[i] - l.dH)
		l1 := no.Loss()
		par[i].Set(x[i] + l.dH)
		l2 := no.Loss()
		l.calls += 2
		grad[i] = (l2 - l1) / 2 / l.dH
	}
	return
}

// Run starts the minimization. iterations bounds the number of
// LBFGS-B iterations.
func (l *LBFGSB) Run(iterations int) {
	l.PrintHeader()
	bounds := make([][2]float64, len(l.parameters))
	for i, par := range l.parameters {
		if par.Fixed() {
			bounds[i][0] = par.Get()
			bounds[i][1] = par.Get()
			continue
		}
		bounds[i][0] = par.GetMin()
		bounds[i][1] = par.GetMax()
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)
	opt.SetBounds(bounds)
	opt.SetLogger(l.Logger)

	_, exitStatus := opt.Minimize(l, l.parameters.Values(nil))
	log.Debugf("LBFGS-B exit status: %v", exitStatus)

	if l.minLossPar != nil {
		l.parameters.SetValues(l.minLossPar)
	}
	l.PrintFinal()
}
