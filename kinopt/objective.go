package kinopt

import (
	"fmt"
	"math"

	"github.com/phoskin/phoskin/optimize"
)

// Loss variants.
const (
	LossBase     = "base"
	LossWeighted = "weighted"
	LossSoftL1   = "softl1"
	LossCauchy   = "cauchy"
	LossArctan   = "arctan"
)

// LossVariants lists the accepted loss names.
var LossVariants = []string{LossBase, LossWeighted, LossSoftL1, LossCauchy, LossArctan}

// Objective scores a flat alpha+beta vector against the observed
// matrix. It implements optimize.Optimizable.
type Objective struct {
	p    *Problem
	loss string
	// timeWeights applies per-column weighting for LossWeighted.
	timeWeights []float64

	values     []float64
	parameters optimize.FloatParameters

	act  [][]float64
	pred [][]float64
}

// NewObjective builds an objective for the problem and loss variant.
// timeWeights is required for the weighted variant and ignored
// otherwise.
func NewObjective(p *Problem, loss string, timeWeights []float64) (*Objective, error) {
	ok := false
	for _, v := range LossVariants {
		if v == loss {
			ok = true
		}
	}
	if !ok {
		return nil, fmt.Errorf("kinopt: unknown loss variant %q", loss)
	}
	if loss == LossWeighted && len(timeWeights) != p.K.Cols {
		return nil, fmt.Errorf("kinopt: %d time weights for %d columns", len(timeWeights), p.K.Cols)
	}
	o := &Objective{
		p:           p,
		loss:        loss,
		timeWeights: timeWeights,
		values:      make([]float64, p.NParams()),
		act:         newMatrix(len(p.Kinases), p.K.Cols),
		pred:        newMatrix(len(p.Targets), p.K.Cols),
	}
	for i, name := range p.ParamNames() {
		o.parameters.Append(optimize.BasicFloatParameterGenerator(&o.values[i], name))
	}
	return o, nil
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// GetFloatParameters implements optimize.Optimizable.
func (o *Objective) GetFloatParameters() optimize.FloatParameters {
	return o.parameters
}

// Copy implements optimize.Optimizable; the problem is shared.
func (o *Objective) Copy() optimize.Optimizable {
	n, _ := NewObjective(o.p, o.loss, o.timeWeights)
	copy(n.values, o.values)
	for i, par := range o.parameters {
		n.parameters[i].SetMin(par.GetMin())
		n.parameters[i].SetMax(par.GetMax())
		if par.Fixed() {
			n.parameters[i].Fix()
		}
	}
	return n
}

// Loss implements optimize.Optimizable: the selected robust loss over
// all residuals, normalized like the reference scheme (total weight
// for the weighted variant, target count otherwise).
func (o *Objective) Loss() float64 {
	o.p.Predict(o.values, o.act, o.pred)
	loss := 0.0
	totalWeight := 0.0
	for i, obs := range o.p.Observed {
		for t, v := range obs {
			d := v - o.pred[i][t]
			switch o.loss {
			case LossWeighted:
				loss += o.timeWeights[t] * d * d
				totalWeight += o.timeWeights[t]
			case LossSoftL1:
				loss += 2 * (math.Sqrt(1+0.5*d*d) - 1)
			case LossCauchy:
				loss += math.Log(1 + 0.5*d*d)
			case LossArctan:
				loss += math.Atan(d * d)
			default:
				loss += d * d
			}
		}
	}
	if o.loss == LossWeighted {
		return loss / totalWeight
	}
	return loss / float64(len(o.p.Targets))
}

// Predicted returns the estimated target matrix at the current
// parameters.
func (o *Objective) Predicted() [][]float64 {
	o.p.Predict(o.values, o.act, o.pred)
	out := newMatrix(len(o.pred), o.p.K.Cols)
	for i := range o.pred {
		copy(out[i], o.pred[i])
	}
	return out
}
