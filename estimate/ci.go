package estimate

import (
	"math"

	"github.com/gonum/mathext"
	"github.com/gonum/matrix/mat64"
)

// jacStep scales the finite-difference step of the residual Jacobian.
const jacStep = 1e-6

// covarianceCI derives standard errors, confidence intervals and
// p-values from the curvature of the objective at the accepted fit:
// the residual Jacobian is differenced numerically, the covariance is
// s²(JᵀJ)⁻¹ over the free parameters, and the interval width comes
// from the t distribution with m−k degrees of freedom. For the
// log-space parameterization the interval is exponentiated and the
// standard error mapped by the delta method, so every reported field
// is on natural scale.
func (e *Estimator) covarianceCI(obj *Objective, best []float64) []ParamEstimate {
	names := e.model.ParamNames()
	nat := e.toNatural(best)

	est := make([]ParamEstimate, len(names))
	for j := range est {
		est[j] = ParamEstimate{
			Name:   names[j],
			Value:  nat[j],
			Lower:  nat[j],
			Upper:  nat[j],
			PValue: math.NaN(),
		}
	}

	var free []int
	for j, par := range obj.parameters {
		if !par.Fixed() {
			free = append(free, j)
		}
	}
	m := obj.TargetLen()
	dof := m - len(free)
	if len(free) == 0 || dof <= 0 {
		log.Warningf("covariance intervals need more observations than free parameters (%d vs %d)",
			m, len(free))
		return est
	}

	r0, err := obj.residuals(best)
	if err != nil {
		log.Warningf("covariance intervals: residuals at the fit failed: %v", err)
		return est
	}

	// Forward differences per free parameter.
	jac := mat64.NewDense(m, len(free), nil)
	x := append([]float64(nil), best...)
	for c, j := range free {
		h := jacStep * math.Max(math.Abs(best[j]), 1)
		x[j] = best[j] + h
		rp, err := obj.residuals(x)
		x[j] = best[j]
		if err != nil {
			log.Warningf("covariance intervals: Jacobian column %s failed: %v", names[j], err)
			return est
		}
		for k := 0; k < m; k++ {
			jac.Set(k, c, (rp[k]-r0[k])/h)
		}
	}

	jtj := mat64.NewDense(len(free), len(free), nil)
	jtj.Mul(jac.T(), jac)
	inv := mat64.NewDense(len(free), len(free), nil)
	if err := inv.Inverse(jtj); err != nil {
		log.Warningf("covariance intervals: JᵀJ is singular: %v", err)
		return est
	}

	rss := 0.0
	for _, r := range r0 {
		rss += r * r
	}
	s2 := rss / float64(dof)
	tq := tQuantile(float64(dof), e.s.Alpha)

	for c, j := range free {
		se := math.Sqrt(s2 * inv.At(c, c))
		lo := best[j] - tq*se
		hi := best[j] + tq*se
		var t float64
		if se > 0 {
			t = math.Abs(best[j]) / se
		}
		if obj.logSpace {
			est[j].Lower = math.Exp(lo)
			est[j].Upper = math.Exp(hi)
			// Delta method: the curvature lives on the log scale, so
			// the natural-scale standard error is se(log θ)·θ.
			est[j].StdErr = se * nat[j]
		} else {
			est[j].Lower = lo
			est[j].Upper = hi
			est[j].StdErr = se
		}
		est[j].PValue = tPValue(float64(dof), t)
	}
	return est
}

// residuals evaluates the weighted residual vector at optimizer-space
// parameters without disturbing the objective's accepted state.
func (o *Objective) residuals(x []float64) ([]float64, error) {
	saved := append([]float64(nil), o.values...)
	copy(o.values, x)
	defer copy(o.values, saved)

	tr, err := o.Simulate(o.natural())
	if err != nil {
		return nil, err
	}
	pred := o.Predicted(tr)
	res := make([]float64, len(pred))
	for k, p := range pred {
		d := p - o.target[k]
		if o.weights != nil {
			d /= o.weights[k]
		}
		res[k] = d
	}
	return res, nil
}

// tQuantile is the two-sided critical value of Student's t with the
// given degrees of freedom at level alpha.
func tQuantile(dof, alpha float64) float64 {
	x := mathext.InvRegIncBeta(dof/2, 0.5, alpha)
	return math.Sqrt(dof * (1 - x) / x)
}

// tPValue is the two-sided p-value of a t statistic.
func tPValue(dof, t float64) float64 {
	if t == 0 {
		return 1
	}
	return mathext.RegIncBeta(dof/2, 0.5, dof/(dof+t*t))
}
