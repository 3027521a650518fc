package integrate

import (
	"fmt"
	"math"
)

// Dormand-Prince RK(4)5 tableau.
var (
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	// Difference between the 5th and 4th order weights.
	dpE = [7]float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	}
)

// DormandPrince is an adaptive explicit Runge-Kutta solver with
// embedded 4th-order error estimation.
type DormandPrince struct {
	RTol     float64
	ATol     float64
	MaxSteps int
	// MinStep aborts the run once the controller asks for smaller
	// steps, a reliable sign of stiffness or a diverging state.
	MinStep float64
}

// NewDormandPrince returns a solver with the default tolerances.
func NewDormandPrince() *DormandPrince {
	return &DormandPrince{
		RTol:     1e-6,
		ATol:     1e-9,
		MaxSteps: 100000,
		MinStep:  1e-12,
	}
}

// Integrate advances f from x0 over the grid, storing the state at
// every grid point.
func (dp *DormandPrince) Integrate(f Func, x0 []float64, times []float64) (*Trace, error) {
	if err := checkGrid(times); err != nil {
		return nil, err
	}
	if !finite(x0) {
		return nil, fmt.Errorf("%w: initial condition", ErrNonFinite)
	}
	dim := len(x0)
	tr := newTrace(x0, times)

	x := append([]float64(nil), x0...)
	xnew := make([]float64, dim)
	xerr := make([]float64, dim)
	stage := make([]float64, dim)
	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, dim)
	}

	t := times[0]
	h := (times[1] - times[0]) / 10
	steps := 0

	for next := 1; next < len(times); next++ {
		target := times[next]
		for t < target {
			if steps++; steps > dp.MaxSteps {
				return nil, ErrMaxSteps
			}
			if h > target-t {
				h = target - t
			}

			f(t, x, k[0])
			for s := 1; s < 7; s++ {
				for i := 0; i < dim; i++ {
					sum := 0.0
					for j := 0; j < s; j++ {
						sum += dpA[s][j] * k[j][i]
					}
					stage[i] = x[i] + h*sum
				}
				f(t+dpC[s]*h, stage, k[s])
			}
			for i := 0; i < dim; i++ {
				xnew[i] = stage[i] // stage 7 uses the 5th order weights
				sum := 0.0
				for j := 0; j < 7; j++ {
					sum += dpE[j] * k[j][i]
				}
				xerr[i] = h * sum
			}

			if !finite(xnew) {
				return nil, fmt.Errorf("%w: t=%g", ErrNonFinite, t)
			}

			// scaled RMS error norm
			errNorm := 0.0
			for i := 0; i < dim; i++ {
				sc := dp.ATol + dp.RTol*math.Max(math.Abs(x[i]), math.Abs(xnew[i]))
				e := xerr[i] / sc
				errNorm += e * e
			}
			errNorm = math.Sqrt(errNorm / float64(dim))

			if errNorm <= 1 {
				t += h
				copy(x, xnew)
			}

			factor := 5.0
			if errNorm > 0 {
				factor = 0.9 * math.Pow(errNorm, -0.2)
				if factor > 5 {
					factor = 5
				} else if factor < 0.2 {
					factor = 0.2
				}
			}
			h *= factor
			if h < dp.MinStep {
				return nil, fmt.Errorf("%w: h=%g at t=%g", ErrStepUnderflow, h, t)
			}
		}
		tr.States[next] = append([]float64(nil), x...)
	}
	return tr, nil
}
