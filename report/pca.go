package report

import (
	"fmt"
	"sort"

	"github.com/gonum/matrix/mat64"
)

// PCA projects parameter vectors onto their two leading principal
// components. All vectors must share one length; at least two are
// needed.
func PCA(vectors [][]float64) ([][2]float64, error) {
	n := len(vectors)
	if n < 2 {
		return nil, fmt.Errorf("report: pca needs at least 2 vectors, got %d", n)
	}
	p := len(vectors[0])
	for i, v := range vectors {
		if len(v) != p {
			return nil, fmt.Errorf("report: pca vector %d has length %d, want %d", i, len(v), p)
		}
	}
	if p == 0 {
		return nil, fmt.Errorf("report: pca on empty vectors")
	}

	mean := make([]float64, p)
	for _, v := range vectors {
		for j, x := range v {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	// Covariance of the centered vectors.
	cov := mat64.NewDense(p, p, nil)
	for _, v := range vectors {
		for a := 0; a < p; a++ {
			da := v[a] - mean[a]
			for b := 0; b < p; b++ {
				cov.Set(a, b, cov.At(a, b)+da*(v[b]-mean[b]))
			}
		}
	}
	cov.Apply(func(r, c int, v float64) float64 {
		return v / float64(n-1)
	}, cov)

	decomp := mat64.Eigen(cov, 1e-10)
	d := decomp.D()
	order := make([]int, p)
	for j := range order {
		order[j] = j
	}
	sort.Slice(order, func(a, b int) bool {
		return d.At(order[a], order[a]) > d.At(order[b], order[b])
	})

	// Project on the two leading eigenvectors; a single-parameter
	// space just gets a zero second axis.
	axes := [2]int{order[0], order[0]}
	if p > 1 {
		axes[1] = order[1]
	}
	coords := make([][2]float64, n)
	for i, v := range vectors {
		for c := 0; c < 2; c++ {
			if p == 1 && c == 1 {
				continue
			}
			s := 0.0
			for j := 0; j < p; j++ {
				s += (v[j] - mean[j]) * decomp.V.At(j, axes[c])
			}
			coords[i][c] = s
		}
	}
	return coords, nil
}
