// Package optimize provides the parameter-search framework shared by
// the kinetic estimator and the activity fits: named bounded
// parameters, an Optimizable objective, and interchangeable
// optimizers (bounded LBFGS-B and differential evolution).
package optimize

import (
	"fmt"
	"math"
	"os"
	"os/signal"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("optimize")

// Optimizable is an objective with attached parameters. Loss is
// minimized. Copy must produce an independent evaluation context so
// optimizers can probe several points concurrently.
type Optimizable interface {
	GetFloatParameters() FloatParameters
	Copy() Optimizable
	Loss() float64
}

// Optimizer minimizes an Optimizable.
type Optimizer interface {
	SetOptimizable(Optimizable)
	WatchSignals(...os.Signal)
	SetReportPeriod(period int)
	Run(iterations int)
	GetMinLoss() float64
	GetMinLossParameters() []float64
	Summary() Summary
}

// Summary describes a finished optimizer run.
type Summary struct {
	Method     string             `json:"method"`
	Iterations int                `json:"iterations"`
	Calls      int                `json:"functionCalls"`
	MinLoss    float64            `json:"minLoss"`
	Parameters map[string]float64 `json:"parameters"`
}

// BaseOptimizer implements the bookkeeping shared by all optimizers.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	i          int
	calls      int
	loss       float64
	minLoss    float64
	minLossPar []float64
	repPeriod  int
	method     string
	sig        chan os.Signal
	Quiet      bool
}

// SetOptimizable attaches the objective.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
	o.minLoss = math.Inf(+1)
}

// WatchSignals makes a long run interruptible.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// SetReportPeriod sets the progress-line period.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

func (o *BaseOptimizer) interrupted() bool {
	select {
	case s := <-o.sig:
		log.Warningf("Received signal %v, exiting.", s)
		return true
	default:
		return false
	}
}

func (o *BaseOptimizer) saveIfBest(loss float64) {
	o.calls++
	if loss < o.minLoss {
		o.minLoss = loss
		o.minLossPar = o.parameters.Values(o.minLossPar)
	}
}

// PrintHeader prints the progress header.
func (o *BaseOptimizer) PrintHeader() {
	if !o.Quiet {
		fmt.Printf("iteration\tloss\t%s\n", o.parameters.NamesString())
	}
}

// PrintLine prints a progress line every report period.
func (o *BaseOptimizer) PrintLine() {
	if !o.Quiet && o.repPeriod > 0 && o.i%o.repPeriod == 0 {
		fmt.Printf("%d\t%g\t%s\n", o.i, o.loss, o.parameters.ValuesString())
	}
}

// PrintFinal logs the best point found.
func (o *BaseOptimizer) PrintFinal() {
	if !o.Quiet {
		log.Noticef("Best loss: %g after %d function calls", o.minLoss, o.calls)
		for i, par := range o.parameters {
			log.Infof("%s=%v", par.Name(), o.minLossPar[i])
		}
	}
}

// GetMinLoss returns the lowest loss seen.
func (o *BaseOptimizer) GetMinLoss() float64 {
	return o.minLoss
}

// GetMinLossParameters returns the parameter values at the lowest
// loss.
func (o *BaseOptimizer) GetMinLossParameters() []float64 {
	return o.minLossPar
}

// Summary returns the run summary.
func (o *BaseOptimizer) Summary() Summary {
	s := Summary{
		Method:     o.method,
		Iterations: o.i,
		Calls:      o.calls,
		MinLoss:    o.minLoss,
		Parameters: make(map[string]float64, len(o.parameters)),
	}
	for i, par := range o.parameters {
		if o.minLossPar != nil {
			s.Parameters[par.Name()] = o.minLossPar[i]
		}
	}
	return s
}
