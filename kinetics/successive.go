package kinetics

// derivSuccessive implements the ordered scheme: the chain
// P -> P1 -> ... -> Pn with forward rates S_i, reverse rate 1 and
// per-state degradation D_i. Site k+1 cannot gain phosphate before
// site k.
func (m *Model) derivSuccessive(params, x, dxdt []float64) {
	a, b, c, d := params[0], params[1], params[2], params[3]
	r, p := x[0], x[1]
	n := m.nsites

	dxdt[0] = a - b*r
	dxdt[1] = c*r - d*p - params[4]*p + x[2]

	for i := 0; i < n; i++ {
		si := params[4+i]
		di := params[4+n+i]
		prev := p
		if i > 0 {
			prev = x[2+i-1]
		}
		out := 1 + di
		in := si * prev
		if i < n-1 {
			out += params[4+i+1] // forward to the next site
			in += x[2+i+1]       // reverse from the next site
		}
		dxdt[2+i] = in - out*x[2+i]
	}
}
