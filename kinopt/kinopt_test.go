package kinopt

import (
	"math"
	"testing"
)

// twoKinaseProblem builds a small exactly-solvable instance: two
// kinases with one substrate row each, two targets mixing them with
// known weights.
func twoKinaseProblem(t *testing.T) (*Problem, []float64) {
	rows := [][]float64{
		{1, 2, 3, 4},
		{4, 3, 2, 1},
	}
	k, err := NewCSR(rows)
	if err != nil {
		t.Fatal(err)
	}
	// truth: beta = [1, 1], alpha = EGFR{K1:0.7}, MAPK1{K1:0.3, K2:0.5}
	trueAlpha := [][]float64{{0.7}, {0.3, 0.5}}
	observed := make([][]float64, 2)
	observed[0] = make([]float64, 4)
	observed[1] = make([]float64, 4)
	for tt := 0; tt < 4; tt++ {
		observed[0][tt] = trueAlpha[0][0] * rows[0][tt]
		observed[1][tt] = trueAlpha[1][0]*rows[0][tt] + trueAlpha[1][1]*rows[1][tt]
	}
	p := &Problem{
		Targets:       []string{"EGFR_S15", "MAPK1_T202"},
		Observed:      observed,
		Kinases:       []string{"K1", "K2"},
		RowStart:      []int{0, 1},
		RowCount:      []int{1, 1},
		RowLabels:     []string{"EGFR_S15", "MAPK1_T202"},
		K:             k,
		TargetKinases: [][]int{{0}, {0, 1}},
	}
	return p, []float64{0.7, 0.3, 0.5, 1, 1}
}

func TestProblemValidate(t *testing.T) {
	p, _ := twoKinaseProblem(t)
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.NAlpha() != 3 || p.NBeta() != 2 || p.NParams() != 5 {
		t.Errorf("counts: %d alpha, %d beta", p.NAlpha(), p.NBeta())
	}
	names := p.ParamNames()
	if names[0] != "alpha:EGFR_S15:K1" || names[3] != "beta:K1:EGFR_S15" {
		t.Errorf("parameter names: %v", names)
	}

	bad := *p
	bad.TargetKinases = [][]int{{0}}
	if err := bad.Validate(); err == nil {
		t.Error("short kinase list accepted")
	}
	bad = *p
	bad.RowStart = []int{0, 2}
	if err := bad.Validate(); err == nil {
		t.Error("gapped row blocks accepted")
	}
}

func TestObjectiveAtTruth(t *testing.T) {
	p, truth := twoKinaseProblem(t)
	for _, loss := range LossVariants {
		var tw []float64
		if loss == LossWeighted {
			tw = []float64{1, 1, 1, 2}
		}
		obj, err := NewObjective(p, loss, tw)
		if err != nil {
			t.Fatal(err)
		}
		obj.GetFloatParameters().SetValues(truth)
		if l := obj.Loss(); l > 1e-12 {
			t.Errorf("%s loss at truth: %v", loss, l)
		}
	}
}

func TestObjectiveLossOrdering(t *testing.T) {
	p, truth := twoKinaseProblem(t)
	off := append([]float64(nil), truth...)
	off[0] += 0.5
	for _, loss := range LossVariants {
		var tw []float64
		if loss == LossWeighted {
			tw = []float64{1, 1, 1, 1}
		}
		obj, _ := NewObjective(p, loss, tw)
		obj.GetFloatParameters().SetValues(off)
		if l := obj.Loss(); l <= 0 {
			t.Errorf("%s loss off truth: %v", loss, l)
		}
	}
	if _, err := NewObjective(p, "huber", nil); err == nil {
		t.Error("unknown loss accepted")
	}
	if _, err := NewObjective(p, LossWeighted, []float64{1}); err == nil {
		t.Error("short time weights accepted")
	}
}

func TestFitLocal(t *testing.T) {
	p, _ := twoKinaseProblem(t)
	res, err := Fit(p, Settings{
		Method:     "local",
		Iterations: 500,
		Seed:       1,
		Quiet:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Loss > 1e-3 {
		t.Errorf("fit loss: %v", res.Loss)
	}
	if res.Metrics.R2 < 0.99 {
		t.Errorf("r2: %v", res.Metrics.R2)
	}
	// The product alpha*beta is identified even when the factors are
	// not; check the prediction instead of raw parameters.
	for i, row := range p.Observed {
		for tt, v := range row {
			if math.Abs(res.Estimated[i][tt]-v) > 0.05 {
				t.Errorf("estimated[%d][%d] = %v, want %v", i, tt, res.Estimated[i][tt], v)
			}
		}
	}
	if len(res.Alpha["MAPK1_T202"]) != 2 || len(res.Beta["K1"]) != 1 {
		t.Errorf("extraction: %+v %+v", res.Alpha, res.Beta)
	}
}

func TestFitEvol(t *testing.T) {
	p, _ := twoKinaseProblem(t)
	res, err := Fit(p, Settings{
		Method:     "evol",
		Iterations: 300,
		Seed:       2,
		Quiet:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Loss > 1e-2 {
		t.Errorf("evolutionary fit loss: %v", res.Loss)
	}
}

func TestFitRejectsBadSettings(t *testing.T) {
	p, _ := twoKinaseProblem(t)
	if _, err := Fit(p, Settings{Method: "annealing"}); err == nil {
		t.Error("unknown method accepted")
	}
	if _, err := Fit(p, Settings{AlphaBounds: [2]float64{1, 1}}); err == nil {
		t.Error("empty bounds accepted")
	}
}

func TestComputeMetrics(t *testing.T) {
	obs := [][]float64{{1, 2}, {3, 4}}
	m := ComputeMetrics(obs, obs)
	if m.MSE != 0 || m.RMSE != 0 || m.MAE != 0 || m.R2 != 1 {
		t.Errorf("perfect fit metrics: %+v", m)
	}
	est := [][]float64{{2, 3}, {4, 5}}
	m = ComputeMetrics(obs, est)
	if math.Abs(m.MSE-1) > 1e-12 || math.Abs(m.MAE-1) > 1e-12 {
		t.Errorf("unit offset metrics: %+v", m)
	}
	if m.R2 >= 1 {
		t.Errorf("r2 with error: %v", m.R2)
	}
}

func TestCSR(t *testing.T) {
	m, err := NewCSR([][]float64{{0, 1, 0}, {2, 0, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if m.NNZ() != 3 || m.Rows != 2 || m.Cols != 3 {
		t.Errorf("shape: %+v", m)
	}
	dst := make([]float64, 3)
	m.AddRow(dst, 1, 2)
	want := []float64{4, 0, 6}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("AddRow: %v, want %v", dst, want)
		}
	}
	if _, err := NewCSR([][]float64{{1, 2}, {1}}); err == nil {
		t.Error("ragged rows accepted")
	}
	if _, err := NewCSR(nil); err == nil {
		t.Error("empty matrix accepted")
	}
}
