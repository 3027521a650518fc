// Package integrate advances kinetic models over an experimental time
// grid. The default solver is an adaptive Dormand-Prince RK(4)5; a
// backward-Euler solver with a Newton inner loop is available for
// stiff parameter regions. Integration failures are reported as
// errors, never panics, so the caller can turn them into objective
// penalties.
package integrate

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrStepUnderflow is returned when the adaptive controller
	// cannot reach the requested accuracy.
	ErrStepUnderflow = errors.New("integration step size underflow")
	// ErrNonFinite is returned when the state picks up a NaN or Inf.
	ErrNonFinite = errors.New("non-finite state during integration")
	// ErrMaxSteps is returned when the step budget is exhausted.
	ErrMaxSteps = errors.New("maximum number of integration steps exceeded")
	// ErrGrid is returned for an invalid time grid.
	ErrGrid = errors.New("time grid must be strictly increasing")
)

// Func evaluates the ODE right-hand side at time t.
type Func func(t float64, x, dxdt []float64)

// Trace is a simulated trajectory aligned to the requested grid.
type Trace struct {
	Times  []float64
	States [][]float64
}

// At returns the state at grid index i.
func (tr *Trace) At(i int) []float64 { return tr.States[i] }

// Solver integrates an ODE from x0 over the given time grid,
// returning one state per grid point (the first is x0 itself).
type Solver interface {
	Integrate(f Func, x0 []float64, times []float64) (*Trace, error)
}

// NewSolver returns a solver by configuration name.
func NewSolver(name string) (Solver, error) {
	switch name {
	case "", "rk45":
		return NewDormandPrince(), nil
	case "implicit":
		return NewBackwardEuler(), nil
	}
	return nil, fmt.Errorf("unknown ODE solver: %s", name)
}

func checkGrid(times []float64) error {
	if len(times) < 2 {
		return fmt.Errorf("%w: need at least two points", ErrGrid)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return fmt.Errorf("%w: t[%d]=%g after t[%d]=%g",
				ErrGrid, i, times[i], i-1, times[i-1])
		}
	}
	return nil
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func newTrace(x0 []float64, times []float64) *Trace {
	tr := &Trace{
		Times:  times,
		States: make([][]float64, len(times)),
	}
	tr.States[0] = append([]float64(nil), x0...)
	return tr
}
