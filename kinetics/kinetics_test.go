package kinetics

import (
	"math"
	"testing"
)

const tol = 1e-7

// testParams returns a plausible parameter vector for the variant.
func testParams(v Variant, nsites int) []float64 {
	n := v.NParams(nsites)
	params := make([]float64, n)
	params[0] = 1.2  // A
	params[1] = 0.8  // B
	params[2] = 1.5  // C
	params[3] = 0.3  // D
	for i := 4; i < 4+nsites; i++ {
		params[i] = 0.5 + 0.1*float64(i-4)
	}
	for i := 4 + nsites; i < n; i++ {
		params[i] = 0.2 + 0.05*float64(i-4-nsites)
	}
	return params
}

func TestParamCounts(t *testing.T) {
	if n := Distributive.NParams(3); n != 10 {
		t.Errorf("distributive 3 sites: expected 10 parameters, got %d", n)
	}
	if n := Successive.NParams(2); n != 8 {
		t.Errorf("successive 2 sites: expected 8 parameters, got %d", n)
	}
	// 4 + n + (2^n - 1)
	if n := Random.NParams(3); n != 14 {
		t.Errorf("random 3 sites: expected 14 parameters, got %d", n)
	}
	if d := Random.Dim(3); d != 9 {
		t.Errorf("random 3 sites: expected state size 9, got %d", d)
	}
}

func TestParamNamesRandom(t *testing.T) {
	names := Random.ParamNames(2)
	expected := []string{"A", "B", "C", "D", "S1", "S2", "D1", "D2", "D12"}
	if len(names) != len(expected) {
		t.Fatalf("expected %d names, got %d", len(expected), len(names))
	}
	for i, n := range expected {
		if names[i] != n {
			t.Errorf("name %d: expected %s, got %s", i, n, names[i])
		}
	}
}

func TestDerivMassBalance(t *testing.T) {
	// With all degradation rates zero, total protein changes only
	// through production from mRNA.
	for _, v := range []Variant{Distributive, Successive, Random} {
		m, err := NewModel(v, 2)
		if err != nil {
			t.Fatal(err)
		}
		params := testParams(v, 2)
		params[3] = 0
		for i := 4 + 2; i < len(params); i++ {
			params[i] = 0
		}
		x := make([]float64, m.Dim())
		x[0] = 2
		for i := 1; i < len(x); i++ {
			x[i] = 0.1 * float64(i)
		}
		dxdt := make([]float64, m.Dim())
		m.Deriv(params, x, dxdt)
		total := 0.0
		for _, d := range dxdt[1:] {
			total += d
		}
		expected := params[2] * x[0]
		if math.Abs(total-expected) > tol {
			t.Errorf("%s: total protein flux %g, expected %g", v, total, expected)
		}
	}
}

func TestSteadyStateZeroDerivative(t *testing.T) {
	for _, v := range []Variant{Distributive, Successive, Random} {
		for _, nsites := range []int{1, 2, 3} {
			m, err := NewModel(v, nsites)
			if err != nil {
				t.Fatal(err)
			}
			params := testParams(v, nsites)
			state, err := m.SteadyState(params)
			if err != nil {
				t.Fatalf("%s/%d sites: %v", v, nsites, err)
			}
			for i, s := range state {
				if s < 0 {
					t.Errorf("%s/%d sites: negative steady state %d = %g", v, nsites, i, s)
				}
			}
			dxdt := make([]float64, m.Dim())
			m.Deriv(params, state, dxdt)
			for i, d := range dxdt {
				if math.Abs(d) > tol {
					t.Errorf("%s/%d sites: derivative %d = %g at steady state", v, nsites, i, d)
				}
			}
		}
	}
}

func TestSteadyStateBadParameters(t *testing.T) {
	m, err := NewModel(Distributive, 2)
	if err != nil {
		t.Fatal(err)
	}
	params := testParams(Distributive, 2)
	params[1] = 0 // no mRNA degradation, no fixed point
	if _, err := m.SteadyState(params); err == nil {
		t.Error("expected error for B=0")
	}
}

func TestDerivDimensionPanics(t *testing.T) {
	m, err := NewModel(Successive, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on parameter length mismatch")
		}
	}()
	m.Deriv(make([]float64, 3), make([]float64, m.Dim()), make([]float64, m.Dim()))
}

func TestRandomSiteSignal(t *testing.T) {
	m, err := NewModel(Random, 2)
	if err != nil {
		t.Fatal(err)
	}
	// states: x[1]=X{}, x[2]=X{1}, x[3]=X{2}, x[4]=X{1,2}
	x := []float64{0, 1, 0.5, 0.25, 0.125}
	if s := m.SiteSignal(x, 0); math.Abs(s-0.625) > tol {
		t.Errorf("site 1 signal: expected 0.625, got %g", s)
	}
	if s := m.SiteSignal(x, 1); math.Abs(s-0.375) > tol {
		t.Errorf("site 2 signal: expected 0.375, got %g", s)
	}
	if p := m.ProteinSignal(x); math.Abs(p-1.875) > tol {
		t.Errorf("protein signal: expected 1.875, got %g", p)
	}
}
