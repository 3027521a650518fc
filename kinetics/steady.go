package kinetics

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

var (
	// ErrSteadyStateNegative is returned when the fixed point has a
	// negative concentration.
	ErrSteadyStateNegative = errors.New("steady state has negative concentration")
	// ErrSteadyStateSingular is returned when the protein subsystem
	// cannot be solved.
	ErrSteadyStateSingular = errors.New("steady state system is singular")
	// ErrSteadyStateResidual is returned when the computed fixed
	// point does not zero the derivatives within tolerance.
	ErrSteadyStateResidual = errors.New("steady state residual above tolerance")
)

const (
	steadyTol = 1e-8
	// concentrations this far below zero are treated as numerical
	// noise and clamped
	negativeTol = 1e-10
)

// SteadyState computes the fixed point of the model under params,
// used as the integration initial condition. The mRNA settles at
// R* = A/B; at fixed R* the protein subsystem is linear, so the
// remaining states come from a single linear solve. The result is
// checked for non-negativity and for an actual zero of the RHS.
func (m *Model) SteadyState(params []float64) ([]float64, error) {
	if len(params) != m.NParams() {
		panic(fmt.Sprintf("kinetics: %s model with %d sites needs %d parameters, got %d",
			m.variant, m.nsites, m.NParams(), len(params)))
	}
	if params[1] <= 0 {
		return nil, fmt.Errorf("%w: mRNA degradation B=%g", ErrSteadyStateSingular, params[1])
	}
	rstar := params[0] / params[1]

	dim := m.Dim()
	np := dim - 1 // protein states

	x := make([]float64, dim)
	dxdt := make([]float64, dim)

	// Affine part: production into the unmodified protein at R*.
	x[0] = rstar
	m.Deriv(params, x, dxdt)
	b := make([]float64, np)
	copy(b, dxdt[1:])

	// Columns of the protein subsystem from unit probes.
	a := mat64.NewDense(np, np, nil)
	for j := 0; j < np; j++ {
		x[1+j] = 1
		m.Deriv(params, x, dxdt)
		for i := 0; i < np; i++ {
			a.Set(i, j, dxdt[1+i]-b[i])
		}
		x[1+j] = 0
	}

	inv := mat64.NewDense(np, np, nil)
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSteadyStateSingular, err)
	}
	rhs := mat64.NewDense(np, 1, nil)
	for i := 0; i < np; i++ {
		rhs.Set(i, 0, -b[i])
	}
	sol := mat64.NewDense(np, 1, nil)
	sol.Mul(inv, rhs)

	state := make([]float64, dim)
	state[0] = rstar
	for i := 0; i < np; i++ {
		v := sol.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite solution", ErrSteadyStateSingular)
		}
		if v < 0 {
			if v < -negativeTol {
				return nil, fmt.Errorf("%w: state %d = %g", ErrSteadyStateNegative, 1+i, v)
			}
			v = 0
		}
		state[1+i] = v
	}

	m.Deriv(params, state, dxdt)
	for i, d := range dxdt {
		if math.Abs(d) > steadyTol {
			return nil, fmt.Errorf("%w: |f[%d]| = %g", ErrSteadyStateResidual, i, math.Abs(d))
		}
	}
	return state, nil
}
