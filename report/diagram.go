package report

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/phoskin/phoskin/kinetics"
)

// Diagram renders the reaction scheme of a model variant as DOT text.
func Diagram(v kinetics.Variant, nsites int) (string, error) {
	if nsites < 1 {
		return "", fmt.Errorf("report: diagram needs at least one site")
	}
	var b strings.Builder
	b.WriteString("digraph scheme {\n")
	fmt.Fprintf(&b, "  rankdir=LR;\n  label=%q; labelloc=t;\n", strings.Title(v.String()))
	b.WriteString("  node [shape=ellipse, style=filled, fillcolor=lightblue];\n")
	b.WriteString("  phi [label=\"&phi;\", shape=plaintext, style=\"\"];\n")
	b.WriteString("  R [fillcolor=lightcoral];\n")
	b.WriteString("  phi -> R [label=\"A\"];\n")
	b.WriteString("  R -> phi [label=\"B\"];\n")
	b.WriteString("  R -> P [label=\"C\"];\n")
	b.WriteString("  P -> phi [label=\"D\"];\n")

	switch v {
	case kinetics.Distributive:
		for i := 1; i <= nsites; i++ {
			fmt.Fprintf(&b, "  P -> P%d [label=\"S%d\"];\n", i, i)
			fmt.Fprintf(&b, "  P%d -> P [label=\"1\"];\n", i)
			fmt.Fprintf(&b, "  P%d -> phi [label=\"D%d\"];\n", i, i)
		}
	case kinetics.Successive:
		prev := "P"
		for i := 1; i <= nsites; i++ {
			state := "P" + digits(1, i)
			fmt.Fprintf(&b, "  %s -> %s [label=\"S%d\"];\n", prev, state, i)
			fmt.Fprintf(&b, "  %s -> %s [label=\"1\"];\n", state, prev)
			fmt.Fprintf(&b, "  %s -> phi [label=\"D%d\"];\n", state, i)
			prev = state
		}
	case kinetics.Random:
		for _, mask := range masksBySize(nsites) {
			state := "P" + maskDigits(mask)
			for i := 0; i < nsites; i++ {
				if mask&(1<<uint(i)) != 0 {
					continue
				}
				next := "P" + maskDigits(mask|1<<uint(i))
				fmt.Fprintf(&b, "  %s -> %s [label=\"S%d\"];\n", state, next, i+1)
				fmt.Fprintf(&b, "  %s -> %s [label=\"1\"];\n", next, state)
			}
			if mask != 0 {
				fmt.Fprintf(&b, "  %s -> phi [label=\"D%s\"];\n", state, maskDigits(mask))
			}
		}
	default:
		return "", fmt.Errorf("report: unknown variant %v", v)
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// digits joins site numbers lo..hi.
func digits(lo, hi int) string {
	var b strings.Builder
	for i := lo; i <= hi; i++ {
		fmt.Fprintf(&b, "%d", i)
	}
	return b.String()
}

// maskDigits lists the set site numbers of a bitmask.
func maskDigits(mask int) string {
	var b strings.Builder
	for i := 0; mask>>uint(i) != 0; i++ {
		if mask&(1<<uint(i)) != 0 {
			fmt.Fprintf(&b, "%d", i+1)
		}
	}
	return b.String()
}

// masksBySize enumerates all site subsets ordered by size then value.
func masksBySize(nsites int) []int {
	masks := make([]int, 0, 1<<uint(nsites))
	for m := 0; m < 1<<uint(nsites); m++ {
		masks = append(masks, m)
	}
	sort.Slice(masks, func(a, b int) bool {
		ca, cb := bits.OnesCount(uint(masks[a])), bits.OnesCount(uint(masks[b]))
		if ca != cb {
			return ca < cb
		}
		return masks[a] < masks[b]
	})
	return masks
}
