package optimize

import (
	"math"
	"testing"
)

// quadratic is a simple convex test objective with minimum at center.
type quadratic struct {
	x          []float64
	center     []float64
	parameters FloatParameters
}

func newQuadratic(center []float64) *quadratic {
	q := &quadratic{
		x:      make([]float64, len(center)),
		center: center,
	}
	for i := range q.x {
		par := NewBasicFloatParameter(&q.x[i], "x"+string(rune('0'+i)))
		par.SetMin(-5)
		par.SetMax(5)
		q.parameters.Append(par)
	}
	return q
}

func (q *quadratic) GetFloatParameters() FloatParameters { return q.parameters }

func (q *quadratic) Copy() Optimizable {
	n := newQuadratic(q.center)
	copy(n.x, q.x)
	return n
}

func (q *quadratic) Loss() float64 {
	s := 0.0
	for i, v := range q.x {
		d := v - q.center[i]
		s += d * d
	}
	return s
}

func TestDEQuadratic(t *testing.T) {
	q := newQuadratic([]float64{1.5, -2, 0.5})
	de := NewDE(1)
	de.Quiet = true
	de.SetOptimizable(q)
	de.Run(200)

	if de.GetMinLoss() > 1e-6 {
		t.Errorf("DE did not converge, loss %g", de.GetMinLoss())
	}
	for i, v := range de.GetMinLossParameters() {
		if math.Abs(v-q.center[i]) > 1e-3 {
			t.Errorf("parameter %d: expected %g, got %g", i, q.center[i], v)
		}
	}
}

func TestDEFixedParameter(t *testing.T) {
	q := newQuadratic([]float64{1, 1})
	q.x[1] = 3
	q.parameters[1].Fix()

	de := NewDE(7)
	de.Quiet = true
	de.SetOptimizable(q)
	de.Run(100)

	best := de.GetMinLossParameters()
	if best[1] != 3 {
		t.Errorf("fixed parameter moved: %g", best[1])
	}
	if math.Abs(best[0]-1) > 1e-3 {
		t.Errorf("free parameter: expected 1, got %g", best[0])
	}
}

func TestNone(t *testing.T) {
	q := newQuadratic([]float64{2})
	n := NewNone()
	n.Quiet = true
	n.SetOptimizable(q)
	n.Run(1)
	if math.Abs(n.GetMinLoss()-4) > 1e-12 {
		t.Errorf("expected loss 4 at origin, got %g", n.GetMinLoss())
	}
}

func TestClipBounds(t *testing.T) {
	var x float64
	par := NewBasicFloatParameter(&x, "x")
	min, max := clipBounds(par)
	if min != MIN || max != MAX {
		t.Errorf("unbounded parameter: expected [%d, %d], got [%g, %g]", MIN, MAX, min, max)
	}
	par.SetMin(0.01)
	par.SetMax(20)
	min, max = clipBounds(par)
	if min != 0.01 || max != 20 {
		t.Errorf("finite bounds must be kept: got [%g, %g]", min, max)
	}
}

func TestReflect(t *testing.T) {
	if v := reflect(6, -5, 5); v != 4 {
		t.Errorf("reflect(6): expected 4, got %g", v)
	}
	if v := reflect(-7, -5, 5); v != -3 {
		t.Errorf("reflect(-7): expected -3, got %g", v)
	}
	if v := reflect(2, -5, 5); v != 2 {
		t.Errorf("reflect(2): expected 2, got %g", v)
	}
}

func TestReadFloats(t *testing.T) {
	v, err := ReadFloats("1 2.5 -3e2")
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{1, 2.5, -300}
	for i := range expected {
		if v[i] != expected[i] {
			t.Errorf("value %d: expected %g, got %g", i, expected[i], v[i])
		}
	}
	for _, bad := range []string{"1 x 3", "NaN", "1 +Inf", "-inf 2"} {
		if _, err := ReadFloats(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}
