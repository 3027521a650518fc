package kinetics

// derivDistributive implements the distributive scheme: every site is
// an independent transition from the unmodified protein.
//
//	R:  dR/dt  = A - B*R
//	P:  dP/dt  = C*R - D*P - sum_i S_i*P + sum_i P_i
//	Pi: dPi/dt = S_i*P - (1 + D_i)*P_i
func (m *Model) derivDistributive(params, x, dxdt []float64) {
	a, b, c, d := params[0], params[1], params[2], params[3]
	r, p := x[0], x[1]

	dxdt[0] = a - b*r

	dp := c*r - d*p
	for i := 0; i < m.nsites; i++ {
		s := params[4+i]
		di := params[4+m.nsites+i]
		pi := x[2+i]
		dp += pi - s*p
		dxdt[2+i] = s*p - (1+di)*pi
	}
	dxdt[1] = dp
}
