package tfopt

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/phoskin/phoskin/kinopt"
)

// sheet names written by Export, one CSV file each.
var sheetNames = []string{
	"alpha_values", "beta_values", "residuals",
	"observed", "estimated", "optimization_results",
}

// Export writes the fit as a set of CSV sheets into dir: mixing
// weights, activity weights, residual/observed/estimated matrices and
// the metric block.
func Export(dir string, n *Network, res *kinopt.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	alpha := [][]string{{"mRNA", "TF", "Value"}}
	for _, gene := range n.Genes {
		for _, tf := range n.Regulators[gene] {
			alpha = append(alpha, []string{gene, tf, formatFloat(res.Alpha[gene][tf])})
		}
	}

	beta := [][]string{{"TF", "PSite", "Value"}}
	for i, tf := range n.TFs {
		beta = append(beta, []string{tf, "", formatFloat(res.Beta[tf][""])})
		for _, label := range n.PSiteLabels[i] {
			beta = append(beta, []string{tf, label, formatFloat(res.Beta[tf][label])})
		}
	}

	width := 0
	if len(n.Expression) > 0 {
		width = len(n.Expression[0])
	}
	header := make([]string, 0, width+1)
	header = append(header, "mRNA")
	for j := 0; j < width; j++ {
		header = append(header, "x"+strconv.Itoa(j+1))
	}
	matrix := func(values func(i, j int) float64) [][]string {
		out := [][]string{header}
		for i, gene := range n.Genes {
			row := make([]string, 0, width+1)
			row = append(row, gene)
			for j := 0; j < width; j++ {
				row = append(row, formatFloat(values(i, j)))
			}
			out = append(out, row)
		}
		return out
	}
	residuals := matrix(func(i, j int) float64 { return n.Expression[i][j] - res.Estimated[i][j] })
	observed := matrix(func(i, j int) float64 { return n.Expression[i][j] })
	estimated := matrix(func(i, j int) float64 { return res.Estimated[i][j] })

	metrics := [][]string{
		{"Metric", "Value"},
		{"Objective Value", formatFloat(res.Loss)},
		{"MSE", formatFloat(res.Metrics.MSE)},
		{"MAE", formatFloat(res.Metrics.MAE)},
		{"MAPE", formatFloat(res.Metrics.MAPE)},
		{"R^2", formatFloat(res.Metrics.R2)},
	}

	sheets := [][][]string{alpha, beta, residuals, observed, estimated, metrics}
	for i, name := range sheetNames {
		if err := writeSheet(filepath.Join(dir, name+".csv"), sheets[i]); err != nil {
			return fmt.Errorf("tfopt: writing %s: %w", name, err)
		}
	}
	log.Infof("exported %d sheets to %s", len(sheetNames), dir)
	return nil
}

func writeSheet(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}
