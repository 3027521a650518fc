// Package kinetics implements the phosphorylation reaction models:
// distributive, successive and random. Every model shares the same
// synthesis/degradation backbone (mRNA production A, mRNA degradation
// B, translation C, protein degradation D) and differs in how the
// phosphorylated species are coupled. Dephosphorylation rates are
// pinned to 1, phosphorylation rates are relative to them.
package kinetics

import (
	"fmt"
	"strconv"
)

// Variant selects the reaction scheme.
type Variant int

const (
	// Distributive treats every site as an independent transition
	// from the unmodified protein.
	Distributive Variant = iota
	// Successive requires site k to be phosphorylated before site
	// k+1.
	Successive
	// Random allows any order; the state space is the powerset of
	// the sites, with one degradation rate per non-empty subset.
	Random
)

// maxRandomSites bounds the combinatorial state expansion of the
// random model (2^n protein species).
const maxRandomSites = 10

// VariantFromString parses a variant name used in configuration files
// and on the command line.
func VariantFromString(s string) (Variant, error) {
	switch s {
	case "distributive", "distmod":
		return Distributive, nil
	case "successive", "succmod":
		return Successive, nil
	case "random", "randmod":
		return Random, nil
	}
	return Distributive, fmt.Errorf("unknown model variant: %s", s)
}

func (v Variant) String() string {
	switch v {
	case Distributive:
		return "distributive"
	case Successive:
		return "successive"
	case Random:
		return "random"
	}
	return "unknown"
}

// Dim returns the state-vector size for nsites phosphosites. The
// first component is always the mRNA, the second the unmodified
// protein.
func (v Variant) Dim(nsites int) int {
	if v == Random {
		return 1 + (1 << uint(nsites))
	}
	return 2 + nsites
}

// NParams returns the parameter-vector length: A, B, C, D, one
// phosphorylation rate per site, and the variant's degradation block.
func (v Variant) NParams(nsites int) int {
	if v == Random {
		return 4 + nsites + (1 << uint(nsites)) - 1
	}
	return 4 + 2*nsites
}

// LogSpace reports whether the variant's parameters are searched in
// log space by the estimator.
func (v Variant) LogSpace() bool {
	return v == Random
}

// ParamNames returns parameter names in vector order.
func (v Variant) ParamNames(nsites int) []string {
	names := []string{"A", "B", "C", "D"}
	for i := 1; i <= nsites; i++ {
		names = append(names, "S"+strconv.Itoa(i))
	}
	switch v {
	case Distributive, Successive:
		for i := 1; i <= nsites; i++ {
			names = append(names, "D"+strconv.Itoa(i))
		}
	case Random:
		for _, mask := range subsetOrder(nsites) {
			names = append(names, "D"+maskLabel(mask))
		}
	}
	return names
}

// subsetOrder enumerates the non-empty site subsets ordered by size
// and then lexicographically, as bitmasks. This fixes the layout of
// the random model's degradation block.
func subsetOrder(nsites int) []int {
	var masks []int
	var rec func(size, start, mask int)
	rec = func(size, start, mask int) {
		if size == 0 {
			masks = append(masks, mask)
			return
		}
		for i := start; i < nsites; i++ {
			rec(size-1, i+1, mask|1<<uint(i))
		}
	}
	for size := 1; size <= nsites; size++ {
		rec(size, 0, 0)
	}
	return masks
}

// maskLabel renders a subset bitmask as concatenated 1-based site
// numbers, e.g. sites {1,3} -> "13".
func maskLabel(mask int) string {
	s := ""
	for i := 0; mask != 0; i++ {
		if mask&1 != 0 {
			s += strconv.Itoa(i + 1)
		}
		mask >>= 1
	}
	return s
}
