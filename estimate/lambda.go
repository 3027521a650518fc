package estimate

import (
	"math"
	"sync"

	"github.com/gonum/floats"

	"github.com/phoskin/phoskin/data"
)

// lambdaResult is one grid point of the regularization search.
type lambdaResult struct {
	lambda float64
	score  float64
	weight string
}

// lambdaIterations is the per-grid-point iteration budget relative to
// the main fit.
func (e *Estimator) lambdaIterations() int {
	it := e.s.Iterations / 10
	if it < 50 {
		it = 50
	}
	return it
}

// findLambda searches a logarithmic lambda grid, one goroutine per
// grid point, scoring every weight scheme at each point. The best
// (lambda, weight) pair by unweighted score wins.
func (e *Estimator) findLambda(record *data.GeneRecord, start, lo, hi []float64) (float64, string, error) {
	grid := logspace(1e-2, 1, e.s.LambdaGrid)
	seeds := make([]int64, len(grid))
	for i := range seeds {
		seeds[i] = e.rng.Int63()
	}

	results := make([]lambdaResult, len(grid))
	var wg sync.WaitGroup
	for i, lam := range grid {
		wg.Add(1)
		go func(i int, lam float64) {
			defer wg.Done()
			results[i] = e.scoreLambda(record, start, lo, hi, lam, seeds[i])
		}(i, lam)
	}
	wg.Wait()

	best := results[0]
	for _, r := range results[1:] {
		if r.score < best.score {
			best = r
		}
	}
	if math.IsInf(best.score, +1) {
		log.Warningf("[%s] all regularization fits failed, disabling lambda", record.Gene)
		return 0, WeightUniform, nil
	}
	return best.lambda, best.weight, nil
}

// scoreLambda fits every weight scheme at one lambda and keeps the
// best score.
func (e *Estimator) scoreLambda(record *data.GeneRecord, start, lo, hi []float64, lam float64, seed int64) lambdaResult {
	res := lambdaResult{lambda: lam, score: math.Inf(+1), weight: WeightUniform}
	for _, scheme := range WeightSchemes {
		obj := e.buildObjective(record, nil, lam, scheme)
		best, _ := e.runOpt(e.optimizerFor(seed), obj, start, lo, hi, e.lambdaIterations())
		score := obj.Score(e.toNatural(best))
		if score < res.score {
			res.score = score
			res.weight = scheme
		}
	}
	log.Debugf("[%s] lambda=%.4g: score %.4g with %s weights",
		record.Gene, lam, res.score, res.weight)
	return res
}

// logspace returns n points logarithmically spaced in [lo, hi].
func logspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{hi}
	}
	out := make([]float64, n)
	floats.LogSpan(out, lo, hi)
	return out
}
