package kinetics

import "math/bits"

// derivRandom implements the unordered scheme over subset states.
// Every state X_s (s a set of phosphorylated sites) gains phosphate
// on any missing site i with rate S_i, loses any held site with rate
// 1 and degrades with its own rate D_s (D for the empty set).
func (m *Model) derivRandom(params, x, dxdt []float64) {
	a, b, c := params[0], params[1], params[2]
	r := x[0]
	n := m.nsites
	nstates := 1 << uint(n)

	dxdt[0] = a - b*r

	for s := 0; s < nstates; s++ {
		xs := x[1+s]
		in := 0.0
		out := params[m.deg[s]] + float64(bits.OnesCount(uint(s)))
		if s == 0 {
			in = c * r
		}
		for i := 0; i < n; i++ {
			bit := 1 << uint(i)
			if s&bit != 0 {
				// gained site i from the state without it
				in += params[4+i] * x[1+(s&^bit)]
			} else {
				// dephosphorylation back from the state with it
				in += x[1+(s|bit)]
				out += params[4+i]
			}
		}
		dxdt[1+s] = in - out*xs
	}
}
