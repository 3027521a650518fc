// Package sensitivity ranks model parameters by the Morris elementary
// effects method: randomized one-at-a-time trajectories through the
// scaled parameter box, summarized per parameter as the mean (Mu),
// mean absolute (MuStar) and standard deviation (Sigma) of the
// effects.
package sensitivity

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("sensitivity")

// Func evaluates the model response at natural-scale parameters.
type Func func(x []float64) (float64, error)

// Settings controls the screening design.
type Settings struct {
	// Trajectories is the number of random one-at-a-time paths.
	Trajectories int
	// Levels is the grid resolution; must be even.
	Levels int

	Seed    int64
	Workers int
}

// Result holds the per-parameter effect statistics, ordered like the
// names passed to Morris.
type Result struct {
	Names  []string
	Mu     []float64
	MuStar []float64
	Sigma  []float64

	// Trajectories actually contributing; failed evaluations drop the
	// whole path.
	Used   int
	Failed int
}

var errAllFailed = errors.New("sensitivity: every trajectory failed")

// Morris runs the screening design over [lower, upper] and returns
// effect statistics per parameter. Evaluation failures discard the
// affected trajectory; at least one must survive.
func Morris(f Func, names []string, lower, upper []float64, s Settings) (*Result, error) {
	k := len(names)
	if k == 0 || len(lower) != k || len(upper) != k {
		return nil, fmt.Errorf("sensitivity: %d names with %d/%d bounds", k, len(lower), len(upper))
	}
	seen := make(map[string]bool, k)
	for i := range lower {
		if !(lower[i] < upper[i]) {
			return nil, fmt.Errorf("sensitivity: empty range for %s", names[i])
		}
		if seen[names[i]] {
			return nil, fmt.Errorf("sensitivity: duplicate parameter %s", names[i])
		}
		seen[names[i]] = true
	}
	if s.Trajectories < 2 {
		return nil, fmt.Errorf("sensitivity: need at least 2 trajectories, got %d", s.Trajectories)
	}
	if s.Levels < 2 || s.Levels%2 != 0 {
		return nil, fmt.Errorf("sensitivity: levels must be even and >= 2, got %d", s.Levels)
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Random draws are consumed in name order so that the screening
	// result for a parameter does not depend on where the caller put
	// it in the listing.
	canon := make([]int, k)
	for i := range canon {
		canon[i] = i
	}
	sort.Slice(canon, func(a, b int) bool { return names[canon[a]] < names[canon[b]] })

	rng := rand.New(rand.NewSource(s.Seed))
	seeds := make([]int64, s.Trajectories)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	effects := make([][]float64, s.Trajectories)
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for t := 0; t < s.Trajectories; t++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(t int) {
			defer wg.Done()
			defer func() { <-sem }()
			ee, err := trajectory(f, lower, upper, canon, s.Levels, rand.New(rand.NewSource(seeds[t])))
			if err != nil {
				log.Debugf("trajectory %d discarded: %v", t, err)
				return
			}
			effects[t] = ee
		}(t)
	}
	wg.Wait()

	res := &Result{
		Names:  names,
		Mu:     make([]float64, k),
		MuStar: make([]float64, k),
		Sigma:  make([]float64, k),
	}
	var kept [][]float64
	for _, ee := range effects {
		if ee != nil {
			kept = append(kept, ee)
		}
	}
	res.Used = len(kept)
	res.Failed = s.Trajectories - len(kept)
	if len(kept) == 0 {
		return nil, errAllFailed
	}
	if res.Failed > 0 {
		log.Warningf("%d/%d trajectories failed and were discarded", res.Failed, s.Trajectories)
	}

	n := float64(len(kept))
	for j := 0; j < k; j++ {
		for _, ee := range kept {
			res.Mu[j] += ee[j]
			if ee[j] >= 0 {
				res.MuStar[j] += ee[j]
			} else {
				res.MuStar[j] -= ee[j]
			}
		}
		res.Mu[j] /= n
		res.MuStar[j] /= n
		for _, ee := range kept {
			d := ee[j] - res.Mu[j]
			res.Sigma[j] += d * d
		}
		if len(kept) > 1 {
			res.Sigma[j] = math.Sqrt(res.Sigma[j] / (n - 1))
		}
	}
	return res, nil
}

// trajectory walks one randomized path: a base point on the level
// grid, then every parameter stepped once by +-delta in random order.
// The elementary effect of parameter j is the scaled response change
// of its step. All draws from rng are made in canon order, which ties
// each draw to a parameter identity rather than a slice position.
func trajectory(f Func, lower, upper []float64, canon []int, levels int, rng *rand.Rand) ([]float64, error) {
	k := len(lower)
	delta := float64(levels) / (2 * float64(levels-1))

	// Unit-box coordinates on the lower half of the grid, so +delta
	// always stays inside.
	u := make([]float64, k)
	for _, j := range canon {
		u[j] = float64(rng.Intn(levels/2)) / float64(levels-1)
	}
	dir := make([]float64, k)
	for _, j := range canon {
		if rng.Intn(2) == 0 {
			// Start from the mirrored point so the step runs downward.
			u[j] += delta
			dir[j] = -1
		} else {
			dir[j] = +1
		}
	}
	order := make([]int, k)
	for r, p := range rng.Perm(k) {
		order[r] = canon[p]
	}

	x := make([]float64, k)
	scale := func() []float64 {
		for j := range x {
			x[j] = lower[j] + u[j]*(upper[j]-lower[j])
		}
		return x
	}

	prev, err := f(scale())
	if err != nil {
		return nil, err
	}
	ee := make([]float64, k)
	for _, j := range order {
		u[j] += dir[j] * delta
		cur, err := f(scale())
		if err != nil {
			return nil, err
		}
		ee[j] = (cur - prev) / (dir[j] * delta)
		prev = cur
	}
	return ee, nil
}
