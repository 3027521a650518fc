package estimate

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/phoskin/phoskin/data"
)

// bootstrapNoise is the multiplicative gaussian noise applied to the
// target vector per iteration.
const bootstrapNoise = 0.05

// bootstrap refits the model on perturbed targets, one goroutine per
// iteration, warm started from the accepted fit. Iterations that end
// on the failure penalty are recorded and excluded from the interval
// sample.
func (e *Estimator) bootstrap(record *data.GeneRecord, best, lo, hi []float64, lambda float64, weightKey string) *BootstrapResult {
	n := e.s.Bootstrap
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = e.rng.Int63()
	}

	type sample struct {
		params []float64
		ok     bool
	}
	samples := make([]sample, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seeds[i]))
			obj := e.buildObjective(record, nil, lambda, weightKey)
			target := obj.Target()
			noisy := make([]float64, len(target))
			for k, v := range target {
				noisy[k] = v * (1 + rng.NormFloat64()*bootstrapNoise)
			}
			obj.SetTarget(noisy)

			fit, summ := e.runOpt(e.optimizerFor(rng.Int63()), obj, best, lo, hi, e.lambdaIterations())
			if summ.MinLoss >= penaltyLoss || math.IsInf(summ.MinLoss, 0) || math.IsNaN(summ.MinLoss) {
				return
			}
			samples[i] = sample{params: e.toNatural(fit), ok: true}
		}(i)
	}
	wg.Wait()

	res := &BootstrapResult{Samples: n}
	var kept [][]float64
	for _, s := range samples {
		if s.ok {
			kept = append(kept, s.params)
		} else {
			res.Failures++
		}
	}
	if res.Failures > 0 {
		log.Warningf("[%s] %d/%d bootstrap iterations failed and were excluded",
			record.Gene, res.Failures, n)
	}
	if len(kept) == 0 {
		return res
	}

	np := len(best)
	res.Lower = make([]float64, np)
	res.Upper = make([]float64, np)
	column := make([]float64, len(kept))
	for j := 0; j < np; j++ {
		for i, p := range kept {
			column[i] = p[j]
		}
		sort.Float64s(column)
		res.Lower[j] = percentile(column, e.s.Alpha/2)
		res.Upper[j] = percentile(column, 1-e.s.Alpha/2)
	}
	return res
}

// percentile interpolates the p-quantile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	i := int(math.Floor(pos))
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i]*(1-frac) + sorted[i+1]*frac
}
