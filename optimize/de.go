package optimize

import (
	"math/rand"
)

// DE is a differential-evolution optimizer (rand/1/bin). It is the
// slow global strategy: no gradients, bound constraints respected by
// reflection, able to leave poor local minima.
type DE struct {
	BaseOptimizer
	// Population size; 0 means 10 per dimension (at least 20).
	PopSize int
	// Differential weight and crossover probability.
	F  float64
	CR float64

	rng *rand.Rand

	pop  [][]float64
	loss []float64
	eval Optimizable
}

// NewDE creates a differential-evolution optimizer with the given
// random seed.
func NewDE(seed int64) (de *DE) {
	de = &DE{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
			method:    "de",
		},
		F:   0.8,
		CR:  0.9,
		rng: rand.New(rand.NewSource(seed)),
	}
	return
}

// SetOptimizable attaches the objective and seeds the population
// around the current point.
func (de *DE) SetOptimizable(opt Optimizable) {
	de.BaseOptimizer.SetOptimizable(opt)
	de.eval = opt.Copy()
}

func (de *DE) bounds(i int) (min, max float64) {
	return clipBounds(de.parameters[i])
}

// reflect keeps v inside [min, max].
func reflect(v, min, max float64) float64 {
	if min == max {
		return min
	}
	for v < min || v > max {
		if v < min {
			v = min + (min - v)
		}
		if v > max {
			v = max - (v - max)
		}
	}
	return v
}

func (de *DE) evaluate(x []float64) float64 {
	par := de.eval.GetFloatParameters()
	par.SetValues(x)
	loss := de.eval.Loss()
	de.parameters.SetValues(x)
	de.saveIfBest(loss)
	return loss
}

func (de *DE) initPopulation() {
	dim := len(de.parameters)
	np := de.PopSize
	if np == 0 {
		np = 10 * dim
		if np < 20 {
			np = 20
		}
	}
	de.pop = make([][]float64, np)
	de.loss = make([]float64, np)

	// Member zero is the caller's starting point; the rest are
	// uniform over the bounds.
	de.pop[0] = de.parameters.Values(nil)
	for i, par := range de.parameters {
		if par.Fixed() {
			continue
		}
		min, max := de.bounds(i)
		if de.pop[0][i] < min || de.pop[0][i] > max {
			de.pop[0][i] = min + de.rng.Float64()*(max-min)
		}
	}
	for m := 1; m < np; m++ {
		x := make([]float64, dim)
		for i, par := range de.parameters {
			if par.Fixed() {
				x[i] = par.Get()
				continue
			}
			min, max := de.bounds(i)
			x[i] = min + de.rng.Float64()*(max-min)
		}
		de.pop[m] = x
	}
	for m := range de.pop {
		de.loss[m] = de.evaluate(de.pop[m])
	}
}

// Run evolves the population for the given number of generations.
func (de *DE) Run(iterations int) {
	de.initPopulation()
	de.PrintHeader()

	dim := len(de.parameters)
	np := len(de.pop)
	trial := make([]float64, dim)

	for de.i = 1; de.i <= iterations; de.i++ {
		for m := 0; m < np; m++ {
			// three distinct members, none equal to m
			var r1, r2, r3 int
			for r1 = de.rng.Intn(np); r1 == m; r1 = de.rng.Intn(np) {
			}
			for r2 = de.rng.Intn(np); r2 == m || r2 == r1; r2 = de.rng.Intn(np) {
			}
			for r3 = de.rng.Intn(np); r3 == m || r3 == r1 || r3 == r2; r3 = de.rng.Intn(np) {
			}

			jrand := de.rng.Intn(dim)
			for j := 0; j < dim; j++ {
				if de.parameters[j].Fixed() {
					trial[j] = de.pop[m][j]
					continue
				}
				if de.rng.Float64() < de.CR || j == jrand {
					min, max := de.bounds(j)
					v := de.pop[r1][j] + de.F*(de.pop[r2][j]-de.pop[r3][j])
					trial[j] = reflect(v, min, max)
				} else {
					trial[j] = de.pop[m][j]
				}
			}

			l := de.evaluate(trial)
			if l <= de.loss[m] {
				copy(de.pop[m], trial)
				de.loss[m] = l
			}
		}

		bestLoss, bestX := de.best()
		de.BaseOptimizer.loss = bestLoss
		de.parameters.SetValues(bestX)
		de.PrintLine()

		if de.interrupted() {
			break
		}
	}

	if de.minLossPar != nil {
		de.parameters.SetValues(de.minLossPar)
	}
	de.PrintFinal()
}

func (de *DE) best() (float64, []float64) {
	bi := 0
	for m := 1; m < len(de.pop); m++ {
		if de.loss[m] < de.loss[bi] {
			bi = m
		}
	}
	return de.loss[bi], de.pop[bi]
}
