package integrate

import (
	"errors"
	"math"
	"testing"
)

// decay is dx/dt = -k x with known solution x0*exp(-k t).
func decay(k float64) Func {
	return func(t float64, x, dxdt []float64) {
		for i := range x {
			dxdt[i] = -k * x[i]
		}
	}
}

func TestDormandPrinceDecay(t *testing.T) {
	dp := NewDormandPrince()
	times := []float64{0, 0.5, 1, 2, 4, 8}
	tr, err := dp.Integrate(decay(0.7), []float64{2, 0.5}, times)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.States) != len(times) {
		t.Fatalf("expected %d states, got %d", len(times), len(tr.States))
	}
	for i, tm := range times {
		for j, x0 := range []float64{2, 0.5} {
			expected := x0 * math.Exp(-0.7*tm)
			if math.Abs(tr.States[i][j]-expected) > 1e-6 {
				t.Errorf("t=%g state %d: expected %g, got %g",
					tm, j, expected, tr.States[i][j])
			}
		}
	}
}

func TestBackwardEulerDecay(t *testing.T) {
	be := NewBackwardEuler()
	be.Substeps = 200
	times := []float64{0, 1, 2}
	tr, err := be.Integrate(decay(1), []float64{1}, times)
	if err != nil {
		t.Fatal(err)
	}
	// first order accuracy only
	expected := math.Exp(-1)
	if math.Abs(tr.States[1][0]-expected) > 1e-2 {
		t.Errorf("t=1: expected about %g, got %g", expected, tr.States[1][0])
	}
}

func TestStiffDecayStability(t *testing.T) {
	// A very fast rate makes the explicit solver work hard; the
	// implicit solver must stay stable with coarse substeps.
	be := NewBackwardEuler()
	be.Substeps = 10
	tr, err := be.Integrate(decay(1000), []float64{1}, []float64{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if v := tr.States[1][0]; v < 0 || v > 1e-3 {
		t.Errorf("stiff decay should be near zero and non-negative, got %g", v)
	}
}

func TestDivergenceReported(t *testing.T) {
	dp := NewDormandPrince()
	blowup := func(t float64, x, dxdt []float64) {
		dxdt[0] = x[0] * x[0]
	}
	_, err := dp.Integrate(blowup, []float64{10}, []float64{0, 10})
	if err == nil {
		t.Fatal("expected error for diverging solution")
	}
}

func TestBadGrid(t *testing.T) {
	dp := NewDormandPrince()
	_, err := dp.Integrate(decay(1), []float64{1}, []float64{0, 2, 1})
	if !errors.Is(err, ErrGrid) {
		t.Errorf("expected ErrGrid, got %v", err)
	}
}

func TestNonFiniteInitial(t *testing.T) {
	dp := NewDormandPrince()
	_, err := dp.Integrate(decay(1), []float64{math.NaN()}, []float64{0, 1})
	if !errors.Is(err, ErrNonFinite) {
		t.Errorf("expected ErrNonFinite, got %v", err)
	}
}

func TestNewSolver(t *testing.T) {
	if _, err := NewSolver("rk45"); err != nil {
		t.Error(err)
	}
	if _, err := NewSolver("implicit"); err != nil {
		t.Error(err)
	}
	if _, err := NewSolver("euler"); err == nil {
		t.Error("expected error for unknown solver")
	}
}
