// Package kinopt estimates kinase activities from site-level
// phosphorylation series. Each observed target series is modelled as a
// mixture of kinase activity profiles: activities are weighted sums of
// the kinase's substrate-site rows (beta block), and each target mixes
// the activities of its annotated kinases (alpha block). Both blocks
// are fitted together with the shared optimizer framework.
package kinopt

import (
	"fmt"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("kinopt")

// Problem is the assembled fitting input: the observed target matrix,
// the kinase substrate rows, and the index structure connecting them.
type Problem struct {
	// Targets and Observed hold one label and one series per fitted
	// target (a gene or a gene/site pair).
	Targets  []string
	Observed [][]float64 // target x time

	// Kinases and their substrate rows: kinase k owns the contiguous
	// row block [RowStart[k], RowStart[k]+RowCount[k]) of K, with one
	// beta parameter per row. RowLabels names each row.
	Kinases   []string
	RowStart  []int
	RowCount  []int
	RowLabels []string
	K         *CSR

	// TargetKinases lists, per target, the kinase indices mixed by its
	// alpha parameters.
	TargetKinases [][]int
}

// Validate checks the index structure; errors here are input assembly
// mistakes and abort the fit.
func (p *Problem) Validate() error {
	if len(p.Targets) == 0 {
		return fmt.Errorf("kinopt: no targets")
	}
	if len(p.Observed) != len(p.Targets) {
		return fmt.Errorf("kinopt: %d observed series for %d targets", len(p.Observed), len(p.Targets))
	}
	if p.K == nil {
		return fmt.Errorf("kinopt: no substrate matrix")
	}
	t := p.K.Cols
	for i, series := range p.Observed {
		if len(series) != t {
			return fmt.Errorf("kinopt: target %s has %d points, matrix has %d columns",
				p.Targets[i], len(series), t)
		}
	}
	if len(p.RowStart) != len(p.Kinases) || len(p.RowCount) != len(p.Kinases) {
		return fmt.Errorf("kinopt: row blocks for %d/%d kinases", len(p.RowStart), len(p.Kinases))
	}
	rows := 0
	for k := range p.Kinases {
		if p.RowStart[k] != rows {
			return fmt.Errorf("kinopt: kinase %s row block starts at %d, want %d",
				p.Kinases[k], p.RowStart[k], rows)
		}
		if p.RowCount[k] <= 0 {
			return fmt.Errorf("kinopt: kinase %s has no substrate rows", p.Kinases[k])
		}
		rows += p.RowCount[k]
	}
	if rows != p.K.Rows {
		return fmt.Errorf("kinopt: row blocks cover %d rows, matrix has %d", rows, p.K.Rows)
	}
	if len(p.RowLabels) != rows {
		return fmt.Errorf("kinopt: %d row labels for %d rows", len(p.RowLabels), rows)
	}
	if len(p.TargetKinases) != len(p.Targets) {
		return fmt.Errorf("kinopt: kinase lists for %d/%d targets", len(p.TargetKinases), len(p.Targets))
	}
	for i, ks := range p.TargetKinases {
		if len(ks) == 0 {
			return fmt.Errorf("kinopt: target %s has no kinases", p.Targets[i])
		}
		for _, k := range ks {
			if k < 0 || k >= len(p.Kinases) {
				return fmt.Errorf("kinopt: target %s references kinase %d of %d",
					p.Targets[i], k, len(p.Kinases))
			}
		}
	}
	return nil
}

// NAlpha returns the number of mixing parameters.
func (p *Problem) NAlpha() int {
	n := 0
	for _, ks := range p.TargetKinases {
		n += len(ks)
	}
	return n
}

// NBeta returns the number of substrate-row weights.
func (p *Problem) NBeta() int { return p.K.Rows }

// NParams returns the full parameter count: alphas first, betas after.
func (p *Problem) NParams() int { return p.NAlpha() + p.NBeta() }

// ParamNames labels the flat parameter vector.
func (p *Problem) ParamNames() []string {
	names := make([]string, 0, p.NParams())
	for i, ks := range p.TargetKinases {
		for _, k := range ks {
			names = append(names, "alpha:"+p.Targets[i]+":"+p.Kinases[k])
		}
	}
	for k := range p.Kinases {
		for r := 0; r < p.RowCount[k]; r++ {
			names = append(names, "beta:"+p.Kinases[k]+":"+p.RowLabels[p.RowStart[k]+r])
		}
	}
	return names
}

// Activities fills act (kinase x time) from the beta block.
func (p *Problem) Activities(beta []float64, act [][]float64) {
	for k := range p.Kinases {
		row := act[k]
		for i := range row {
			row[i] = 0
		}
		for r := 0; r < p.RowCount[k]; r++ {
			global := p.RowStart[k] + r
			p.K.AddRow(row, global, beta[global])
		}
	}
}

// Predict fills pred (target x time) from the full parameter vector.
func (p *Problem) Predict(params []float64, act, pred [][]float64) {
	p.Activities(params[p.NAlpha():], act)
	a := 0
	for i, ks := range p.TargetKinases {
		row := pred[i]
		for t := range row {
			row[t] = 0
		}
		for _, k := range ks {
			alpha := params[a]
			a++
			for t, v := range act[k] {
				row[t] += alpha * v
			}
		}
	}
}
