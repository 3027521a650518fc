package tfopt

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/phoskin/phoskin/kinopt"
)

// smallNetwork is a two-gene, two-TF instance with exactly
// reproducible expression.
func smallNetwork() *Network {
	return &Network{
		Genes: []string{"G1", "G2"},
		Expression: [][]float64{
			{1, 2, 3, 4},
			{4, 3, 2, 1},
		},
		TFs: []string{"TF1", "TF2"},
		Protein: [][]float64{
			{1, 2, 3, 4},
			{4, 3, 2, 1},
		},
		PSites: [][][]float64{
			{{0.5, 1, 1.5, 2}},
			{},
		},
		PSiteLabels: [][]string{
			{"S10"},
			{},
		},
		Regulators: map[string][]string{
			"G1": {"TF1"},
			"G2": {"TF1", "TF2"},
		},
	}
}

func TestAssemble(t *testing.T) {
	n := smallNetwork()
	p, err := n.Assemble()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.K.Rows != 3 || p.K.Cols != 4 {
		t.Errorf("matrix shape: %dx%d", p.K.Rows, p.K.Cols)
	}
	// TF1 owns its protein row plus one psite row.
	if p.RowCount[0] != 2 || p.RowCount[1] != 1 {
		t.Errorf("row blocks: %v", p.RowCount)
	}
	if p.RowLabels[0] != "" || p.RowLabels[1] != "S10" || p.RowLabels[2] != "" {
		t.Errorf("row labels: %v", p.RowLabels)
	}
	if p.NAlpha() != 3 || p.NBeta() != 3 {
		t.Errorf("parameter counts: %d alpha, %d beta", p.NAlpha(), p.NBeta())
	}
}

func TestAssembleRejectsBadInput(t *testing.T) {
	n := smallNetwork()
	n.Regulators["G1"] = []string{"TF9"}
	if _, err := n.Assemble(); err == nil {
		t.Error("unknown regulator accepted")
	}

	n = smallNetwork()
	delete(n.Regulators, "G2")
	if _, err := n.Assemble(); err == nil {
		t.Error("unregulated gene accepted")
	}

	n = smallNetwork()
	n.PSiteLabels[0] = nil
	if _, err := n.Assemble(); err == nil {
		t.Error("label/series mismatch accepted")
	}
}

func TestFitAndExport(t *testing.T) {
	n := smallNetwork()
	res, err := Fit(n, kinopt.Settings{
		Method:     "local",
		Iterations: 500,
		Seed:       3,
		Quiet:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Metrics.R2 < 0.99 {
		t.Errorf("r2: %v", res.Metrics.R2)
	}

	dir := filepath.Join(t.TempDir(), "sheets")
	if err := Export(dir, n, res); err != nil {
		t.Fatal(err)
	}
	for _, name := range sheetNames {
		path := filepath.Join(dir, name+".csv")
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("missing sheet: %v", err)
		}
		rows, err := csv.NewReader(f).ReadAll()
		f.Close()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(rows) < 2 {
			t.Errorf("%s: only %d rows", name, len(rows))
		}
	}

	f, _ := os.Open(filepath.Join(dir, "beta_values.csv"))
	rows, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		t.Fatal(err)
	}
	// header + TF1 protein + TF1 psite + TF2 protein
	if len(rows) != 4 {
		t.Errorf("beta sheet rows: %d", len(rows))
	}
	if rows[2][0] != "TF1" || rows[2][1] != "S10" {
		t.Errorf("beta psite row: %v", rows[2])
	}
}
