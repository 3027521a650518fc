package estimate

import "math"

// Weight scheme names.
const (
	WeightUniform = "uniform"
	WeightEarly   = "early_emphasis"
	WeightInverse = "inverse_value"
)

// WeightSchemes lists the available schemes in evaluation order.
var WeightSchemes = []string{WeightUniform, WeightEarly, WeightInverse}

// Weights builds the per-element sigma vector for a scheme over the
// objective's target layout (series of length n each). Smaller sigma
// means larger weight.
func Weights(scheme string, target []float64, n int) []float64 {
	w := make([]float64, len(target))
	switch scheme {
	case WeightEarly:
		// Early time points constrain the fast phosphorylation
		// rates; late points mostly see degradation.
		for k := range w {
			w[k] = 1 + float64(k%n)
		}
	case WeightInverse:
		// Error proportional to signal magnitude.
		for k, v := range target {
			w[k] = math.Max(math.Abs(v), 0.1)
		}
	default:
		for k := range w {
			w[k] = 1
		}
	}
	return w
}
