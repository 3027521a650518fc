// Package tfopt fits transcription-factor activities to mRNA
// expression series. Each gene's expression is modelled as a mixture
// of its regulators' activities, where a regulator's activity blends
// its protein series with its phosphosite series. The model shape is
// shared with the kinase fit, so the heavy lifting is delegated to
// the kinopt problem and solver.
package tfopt

import (
	"fmt"

	"github.com/op/go-logging"

	"github.com/phoskin/phoskin/kinopt"
)

var log = logging.MustGetLogger("tfopt")

// Network is the raw regulatory input before assembly.
type Network struct {
	Genes      []string
	Expression [][]float64 // gene x time

	// TFs and their series: Protein[i] is the protein abundance of
	// TFs[i]; PSites[i]/PSiteLabels[i] are its phosphosite series.
	TFs         []string
	Protein     [][]float64
	PSites      [][][]float64
	PSiteLabels [][]string

	// Regulators lists, per gene, the names of its TFs.
	Regulators map[string][]string
}

// Assemble turns the network into a kinopt problem: one row block per
// TF with its protein series first and its phosphosites after.
func (n *Network) Assemble() (*kinopt.Problem, error) {
	if len(n.Genes) == 0 {
		return nil, fmt.Errorf("tfopt: no genes")
	}
	if len(n.TFs) == 0 {
		return nil, fmt.Errorf("tfopt: no transcription factors")
	}
	if len(n.Protein) != len(n.TFs) || len(n.PSites) != len(n.TFs) || len(n.PSiteLabels) != len(n.TFs) {
		return nil, fmt.Errorf("tfopt: series for %d/%d/%d TFs, want %d",
			len(n.Protein), len(n.PSites), len(n.PSiteLabels), len(n.TFs))
	}

	tfIndex := make(map[string]int, len(n.TFs))
	for i, tf := range n.TFs {
		tfIndex[tf] = i
	}

	var rows [][]float64
	p := &kinopt.Problem{
		Targets:  n.Genes,
		Observed: n.Expression,
		Kinases:  n.TFs,
	}
	for i, tf := range n.TFs {
		if len(n.PSites[i]) != len(n.PSiteLabels[i]) {
			return nil, fmt.Errorf("tfopt: %s has %d psite series for %d labels",
				tf, len(n.PSites[i]), len(n.PSiteLabels[i]))
		}
		p.RowStart = append(p.RowStart, len(rows))
		p.RowCount = append(p.RowCount, 1+len(n.PSites[i]))
		rows = append(rows, n.Protein[i])
		p.RowLabels = append(p.RowLabels, "") // protein row
		for j, series := range n.PSites[i] {
			rows = append(rows, series)
			p.RowLabels = append(p.RowLabels, n.PSiteLabels[i][j])
		}
	}
	k, err := kinopt.NewCSR(rows)
	if err != nil {
		return nil, err
	}
	p.K = k

	for _, gene := range n.Genes {
		tfs, ok := n.Regulators[gene]
		if !ok || len(tfs) == 0 {
			return nil, fmt.Errorf("tfopt: gene %s has no regulators", gene)
		}
		var idx []int
		for _, tf := range tfs {
			i, ok := tfIndex[tf]
			if !ok {
				return nil, fmt.Errorf("tfopt: gene %s regulated by unknown TF %s", gene, tf)
			}
			idx = append(idx, i)
		}
		p.TargetKinases = append(p.TargetKinases, idx)
	}
	return p, nil
}

// Fit assembles the network and runs the activity fit.
func Fit(n *Network, s kinopt.Settings) (*kinopt.Result, error) {
	p, err := n.Assemble()
	if err != nil {
		return nil, err
	}
	res, err := kinopt.Fit(p, s)
	if err != nil {
		return nil, err
	}
	log.Noticef("TF fit over %d genes, %d TFs: r2=%.4f",
		len(n.Genes), len(n.TFs), res.Metrics.R2)
	return res, nil
}
