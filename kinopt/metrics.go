package kinopt

import (
	"math"

	"github.com/gonum/floats"
)

// mapeEps guards division by zero observations.
const mapeEps = 1e-8

// Metrics summarizes the agreement between the observed and estimated
// matrices.
type Metrics struct {
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"`
	R2   float64 `json:"r2"`
}

// ComputeMetrics evaluates the metric block over flattened matrices.
func ComputeMetrics(observed, estimated [][]float64) Metrics {
	var m Metrics
	n := 0
	mean := 0.0
	for _, row := range observed {
		mean += floats.Sum(row)
		n += len(row)
	}
	if n == 0 {
		return m
	}
	mean /= float64(n)

	var ss, tss float64
	for i, row := range observed {
		for t, v := range row {
			d := v - estimated[i][t]
			m.MSE += d * d
			m.MAE += math.Abs(d)
			m.MAPE += math.Abs(d / (v + mapeEps))
			ss += d * d
			dm := v - mean
			tss += dm * dm
		}
	}
	m.MSE /= float64(n)
	m.RMSE = math.Sqrt(m.MSE)
	m.MAE /= float64(n)
	m.MAPE = m.MAPE / float64(n) * 100
	if tss > 0 {
		m.R2 = 1 - ss/tss
	}
	return m
}
