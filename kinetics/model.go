package kinetics

import (
	"fmt"

	"github.com/gonum/floats"
)

// Model evaluates the right-hand side of one reaction-scheme variant
// for a fixed number of phosphosites. The evaluator itself is pure
// and allocation free; it is called many thousands of times per fit.
type Model struct {
	variant Variant
	nsites  int

	// random model lookups
	masks []int // degradation block order -> subset bitmask
	deg   []int // subset bitmask -> parameter index (0 for empty set -> D)
}

// NewModel creates a model for the given variant and number of sites.
func NewModel(v Variant, nsites int) (*Model, error) {
	if nsites < 1 {
		return nil, fmt.Errorf("model requires at least one phosphosite, got %d", nsites)
	}
	if v == Random && nsites > maxRandomSites {
		return nil, fmt.Errorf("random model limited to %d sites, got %d", maxRandomSites, nsites)
	}
	m := &Model{variant: v, nsites: nsites}
	if v == Random {
		m.masks = subsetOrder(nsites)
		m.deg = make([]int, 1<<uint(nsites))
		m.deg[0] = 3 // empty subset degrades with rate D
		for i, mask := range m.masks {
			m.deg[mask] = 4 + nsites + i
		}
	}
	return m, nil
}

// Variant returns the model variant.
func (m *Model) Variant() Variant { return m.variant }

// NSites returns the number of phosphosites.
func (m *Model) NSites() int { return m.nsites }

// Dim returns the state-vector size.
func (m *Model) Dim() int { return m.variant.Dim(m.nsites) }

// NParams returns the parameter-vector length.
func (m *Model) NParams() int { return m.variant.NParams(m.nsites) }

// ParamNames returns parameter names in vector order.
func (m *Model) ParamNames() []string { return m.variant.ParamNames(m.nsites) }

// Deriv writes the instantaneous derivative of state x under params
// into dxdt. A dimension mismatch is a programming error and panics.
func (m *Model) Deriv(params, x, dxdt []float64) {
	if len(params) != m.NParams() {
		panic(fmt.Sprintf("kinetics: %s model with %d sites needs %d parameters, got %d",
			m.variant, m.nsites, m.NParams(), len(params)))
	}
	if len(x) != m.Dim() || len(dxdt) != m.Dim() {
		panic(fmt.Sprintf("kinetics: %s model with %d sites has state size %d, got %d/%d",
			m.variant, m.nsites, m.Dim(), len(x), len(dxdt)))
	}
	switch m.variant {
	case Distributive:
		m.derivDistributive(params, x, dxdt)
	case Successive:
		m.derivSuccessive(params, x, dxdt)
	case Random:
		m.derivRandom(params, x, dxdt)
	}
}

// SiteSignal returns the simulated phosphosite intensity for the
// 0-based site index. For the subset-state random model this is the
// marginal over all states containing the site.
func (m *Model) SiteSignal(x []float64, site int) float64 {
	if m.variant != Random {
		return x[2+site]
	}
	total := 0.0
	bit := 1 << uint(site)
	for mask := 1; mask < 1<<uint(m.nsites); mask++ {
		if mask&bit != 0 {
			total += x[1+mask]
		}
	}
	return total
}

// ProteinSignal returns the total protein level over all
// phosphorylation states.
func (m *Model) ProteinSignal(x []float64) float64 {
	return floats.Sum(x[1:])
}
