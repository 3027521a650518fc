package optimize

// None is an optimizer which computes the initial loss and exits.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which evaluates the objective once.
func NewNone() *None {
	return &None{BaseOptimizer{method: "none", repPeriod: 1}}
}

// Run evaluates the starting point.
func (n *None) Run(iterations int) {
	n.loss = n.Loss()
	n.saveIfBest(n.loss)
	n.PrintHeader()
	n.PrintLine()
}
