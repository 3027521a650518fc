package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoskin/phoskin/data"
	"github.com/phoskin/phoskin/estimate"
	"github.com/phoskin/phoskin/integrate"
	"github.com/phoskin/phoskin/kinetics"
	"github.com/phoskin/phoskin/sensitivity"
)

func sampleFits() []*estimate.FitResult {
	return []*estimate.FitResult{
		{
			Gene:   "EGFR_S15",
			Names:  []string{"A", "B"},
			Values: []float64{2, 1},
			Score:  0.01,
			Params: []estimate.ParamEstimate{
				{Name: "A", Value: 2, StdErr: 0.1, Lower: 1.8, Upper: 2.2, PValue: 1e-6},
				{Name: "B", Value: 1, StdErr: 0.2, Lower: 0.6, Upper: 1.4, PValue: 0.12},
			},
		},
	}
}

func TestWriteFitsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fits.csv")
	require.NoError(t, WriteFitsCSV(path, sampleFits()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, "gene,parameter,estimate")
	assert.Contains(t, s, "EGFR_S15,A,2")
	assert.Contains(t, s, "EGFR_S15,B,1")
}

func TestWriteFitsLaTeX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fits.tex")
	require.NoError(t, WriteFitsLaTeX(path, sampleFits()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `\begin{tabular}`)
	assert.Contains(t, s, `EGFR\_S15 & A`)
	assert.Contains(t, s, `$<$1e-4`)
	assert.Contains(t, s, "0.1200")
}

func TestPCA(t *testing.T) {
	// Two tight clusters separated along one direction: PC1 must
	// carry the separation.
	vectors := [][]float64{
		{0, 0, 0}, {0.1, 0, 0}, {0, 0.1, 0},
		{5, 5, 0}, {5.1, 5, 0}, {5, 5.1, 0},
	}
	coords, err := PCA(vectors)
	require.NoError(t, err)
	require.Len(t, coords, 6)
	lo, hi := coords[0][0], coords[3][0]
	assert.Greater(t, math.Abs(hi-lo), 5.0)
	// Within-cluster PC1 spread stays small.
	assert.Less(t, math.Abs(coords[0][0]-coords[1][0]), 0.2)

	_, err = PCA([][]float64{{1}})
	assert.Error(t, err)
	_, err = PCA([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestDiagram(t *testing.T) {
	dot, err := Diagram(kinetics.Distributive, 2)
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph scheme")
	assert.Contains(t, dot, `P -> P1 [label="S1"]`)
	assert.Contains(t, dot, `P2 -> phi [label="D2"]`)
	assert.Contains(t, dot, `R -> P [label="C"]`)

	dot, err = Diagram(kinetics.Successive, 2)
	require.NoError(t, err)
	assert.Contains(t, dot, `P1 -> P12 [label="S2"]`)
	assert.Contains(t, dot, `P12 -> P1 [label="1"]`)

	dot, err = Diagram(kinetics.Random, 2)
	require.NoError(t, err)
	assert.Contains(t, dot, `P1 -> P12 [label="S2"]`)
	assert.Contains(t, dot, `P2 -> P12 [label="S1"]`)
	assert.Contains(t, dot, `P12 -> phi [label="D12"]`)

	_, err = Diagram(kinetics.Distributive, 0)
	assert.Error(t, err)
}

func TestPlots(t *testing.T) {
	model, err := kinetics.NewModel(kinetics.Distributive, 1)
	require.NoError(t, err)
	solver, err := integrate.NewSolver("rk45")
	require.NoError(t, err)

	params := []float64{2, 1, 1.2, 0.5, 1.5, 0.8}
	times := []float64{0, 1, 2, 4, 8}
	x0, err := model.SteadyState(params)
	require.NoError(t, err)
	x0[1] *= 1.4
	tr, err := solver.Integrate(func(tm float64, x, dxdt []float64) {
		model.Deriv(params, x, dxdt)
	}, x0, times)
	require.NoError(t, err)

	rec := &data.GeneRecord{
		Gene:    "EGFR",
		Sites:   []string{"S15"},
		Times:   times,
		Phospho: [][]float64{{0.5, 0.6, 0.7, 0.8, 0.9}},
		Protein: []float64{2, 2.1, 2.2, 2.3, 2.4},
	}

	dir := t.TempDir()
	fitPath := filepath.Join(dir, "fit.png")
	require.NoError(t, PlotFit(fitPath, rec, model, tr))
	assertFileNonEmpty(t, fitPath)

	morrisPath := filepath.Join(dir, "morris.png")
	require.NoError(t, PlotMorris(morrisPath, &sensitivity.Result{
		Names:  []string{"A", "B", "C"},
		MuStar: []float64{0.5, 1.5, 0.1},
		Mu:     []float64{0.5, -1.5, 0.1},
		Sigma:  []float64{0.1, 0.2, 0.05},
	}))
	assertFileNonEmpty(t, morrisPath)

	pcaPath := filepath.Join(dir, "pca.png")
	require.NoError(t, PlotPCA(pcaPath, [][2]float64{{0, 0}, {1, 1}, {2, 0.5}}))
	assertFileNonEmpty(t, pcaPath)
}

func assertFileNonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	idx := &Index{
		Title:   "phosphorylation fits",
		Variant: "distributive",
		Genes: []IndexGene{
			{Name: "EGFR", Score: 0.01, Lambda: 0.1, Weight: "uniform", Plot: "egfr.png"},
			{Name: "MAPK1", Error: "steady state not reached"},
		},
		TablesCSV:  "fits.csv",
		MorrisPlot: "morris.png",
	}
	require.NoError(t, WriteIndex(path, idx))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(b)
	assert.True(t, strings.HasPrefix(s, "<!DOCTYPE html>"))
	assert.Contains(t, s, "EGFR")
	assert.Contains(t, s, "steady state not reached")
	assert.Contains(t, s, `href="fits.csv"`)
	assert.NotContains(t, s, "pca.png")
}
