package integrate

import (
	"fmt"

	"github.com/gonum/matrix/mat64"
)

// BackwardEuler is an implicit first-order solver for stiff parameter
// regions. Every internal step solves x1 - x0 - h*f(t1,x1) = 0 with
// Newton iterations over a finite-difference Jacobian.
type BackwardEuler struct {
	// Substeps per grid interval.
	Substeps int
	// Newton convergence tolerance and iteration cap.
	Tol     float64
	MaxIter int
	// Perturbation for the finite-difference Jacobian.
	JacobianStep float64
}

// NewBackwardEuler returns a solver with the default settings.
func NewBackwardEuler() *BackwardEuler {
	return &BackwardEuler{
		Substeps:     20,
		Tol:          1e-9,
		MaxIter:      50,
		JacobianStep: 1e-7,
	}
}

// Integrate advances f from x0 over the grid.
func (be *BackwardEuler) Integrate(f Func, x0 []float64, times []float64) (*Trace, error) {
	if err := checkGrid(times); err != nil {
		return nil, err
	}
	if !finite(x0) {
		return nil, fmt.Errorf("%w: initial condition", ErrNonFinite)
	}
	dim := len(x0)
	tr := newTrace(x0, times)

	x := append([]float64(nil), x0...)
	xn := make([]float64, dim)
	res := make([]float64, dim)
	dxdt := make([]float64, dim)
	fj := make([]float64, dim)
	pert := make([]float64, dim)
	jac := mat64.NewDense(dim, dim, nil)
	inv := mat64.NewDense(dim, dim, nil)
	rvec := mat64.NewDense(dim, 1, nil)
	step := mat64.NewDense(dim, 1, nil)

	for next := 1; next < len(times); next++ {
		h := (times[next] - times[next-1]) / float64(be.Substeps)
		t := times[next-1]
		for s := 0; s < be.Substeps; s++ {
			t1 := t + h
			copy(xn, x) // warm start from the previous state
			converged := false
			for iter := 0; iter < be.MaxIter; iter++ {
				f(t1, xn, dxdt)
				norm := 0.0
				for i := 0; i < dim; i++ {
					res[i] = xn[i] - x[i] - h*dxdt[i]
					if a := res[i]; a < 0 {
						norm -= a
					} else {
						norm += a
					}
				}
				if !finite(res) {
					return nil, fmt.Errorf("%w: t=%g", ErrNonFinite, t1)
				}
				if norm <= be.Tol {
					converged = true
					break
				}

				// J = I - h * df/dx by forward differences
				for j := 0; j < dim; j++ {
					copy(pert, xn)
					pert[j] += be.JacobianStep
					f(t1, pert, fj)
					for i := 0; i < dim; i++ {
						d := -h * (fj[i] - dxdt[i]) / be.JacobianStep
						if i == j {
							d++
						}
						jac.Set(i, j, d)
					}
				}
				if err := inv.Inverse(jac); err != nil {
					return nil, fmt.Errorf("%w: singular Newton matrix at t=%g", ErrStepUnderflow, t1)
				}
				for i := 0; i < dim; i++ {
					rvec.Set(i, 0, res[i])
				}
				step.Mul(inv, rvec)
				for i := 0; i < dim; i++ {
					xn[i] -= step.At(i, 0)
				}
			}
			if !converged {
				return nil, fmt.Errorf("%w: Newton did not converge at t=%g", ErrStepUnderflow, t1)
			}
			copy(x, xn)
			t = t1
		}
		tr.States[next] = append([]float64(nil), x...)
	}
	return tr, nil
}
