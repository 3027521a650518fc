package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phoskin/phoskin/config"
	"github.com/phoskin/phoskin/store"
)

const sampleSeries = `gene,site,time,intensity
EGFR,protein,0,2.0
EGFR,protein,1,2.1
EGFR,protein,2,2.2
EGFR,protein,4,2.3
EGFR,protein,8,2.4
EGFR,protein,12,2.4
EGFR,S15,0,0.5
EGFR,S15,1,0.62
EGFR,S15,2,0.71
EGFR,S15,4,0.8
EGFR,S15,8,0.86
EGFR,S15,12,0.9
BAD,S1,0,1.0
BAD,S1,1,-5.0
BAD,S1,2,1.2
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.csv")
	if err := os.WriteFile(path, []byte(sampleSeries), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Model.Sites = 1
	cfg.Paths.TimeSeries = writeSample(t)
	cfg.Paths.OutDir = t.TempDir()
	cfg.Estimate.Iterations = 100
	cfg.Seed = 1
	cfg.Workers = 2
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunPrep(t *testing.T) {
	cfg := testConfig(t)
	s := runPrep(cfg)
	if s.Genes != 1 {
		t.Errorf("valid genes: %d", s.Genes)
	}
	if s.Rejected["BAD"] == "" {
		t.Errorf("rejected: %v", s.Rejected)
	}
	if s.TimePoints != 6 {
		t.Errorf("time points: %d", s.TimePoints)
	}
}

func TestRunModelIsolatesFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.ResultsDB = filepath.Join(t.TempDir(), "fits.db")

	s := runModel(cfg)
	if s.Fitted != 1 {
		t.Fatalf("fitted: %d (%+v)", s.Fitted, s.Genes)
	}
	if s.Failed != 1 {
		t.Errorf("failed: %d", s.Failed)
	}
	bad := s.Genes["BAD"]
	if bad == nil || bad.Error == "" {
		t.Errorf("bad gene outcome: %+v", bad)
	}
	good := s.Genes["EGFR"]
	if good == nil || good.Error != "" {
		t.Fatalf("good gene outcome: %+v", good)
	}
	if len(good.Params) != 6 {
		t.Errorf("parameter count: %d", len(good.Params))
	}

	for _, name := range []string{"fits.csv", "fits.tex", "scheme.dot", "index.html"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.OutDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	db, err := store.Open(cfg.Paths.ResultsDB)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if !db.Final("EGFR") {
		t.Error("fit not persisted")
	}
	if db.Final("BAD") {
		t.Error("failed gene persisted as final")
	}
}

func TestGeneSeedStable(t *testing.T) {
	a := geneSeed(1, "EGFR")
	b := geneSeed(1, "EGFR")
	c := geneSeed(1, "MAPK1")
	if a != b {
		t.Error("seed not deterministic")
	}
	if a == c {
		t.Error("different genes share a seed")
	}
	if a == geneSeed(2, "EGFR") {
		t.Error("run seed ignored")
	}
}

func TestAssembleKinase(t *testing.T) {
	series := map[string][]float64{
		"EGFR_S15":   {1, 2, 3},
		"MAPK1_T202": {3, 2, 1},
	}
	pairs := [][2]string{
		{"K1", "EGFR_S15"},
		{"K1", "MAPK1_T202"},
		{"K2", "MAPK1_T202"},
		{"K2", "ABSENT_S9"},
	}
	p, err := assembleKinase(pairs, series)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(p.Kinases) != 2 || len(p.Targets) != 2 {
		t.Errorf("%d kinases, %d targets", len(p.Kinases), len(p.Targets))
	}
	// K1 has two substrate rows, K2 only the one with observed data.
	if p.RowCount[0] != 2 || p.RowCount[1] != 1 {
		t.Errorf("row counts: %v", p.RowCount)
	}
	// MAPK1_T202 is driven by both kinases.
	if len(p.TargetKinases[1]) != 2 {
		t.Errorf("target kinases: %v", p.TargetKinases)
	}

	if _, err := assembleKinase([][2]string{{"K1", "NOPE"}}, series); err == nil {
		t.Error("map without observed sites accepted")
	}
}

func TestLoadPairsAndMatrix(t *testing.T) {
	dir := t.TempDir()
	pairsPath := filepath.Join(dir, "map.csv")
	if err := os.WriteFile(pairsPath, []byte("kinase,site\nK1,EGFR_S15\nK2,MAPK1_T202\n"), 0644); err != nil {
		t.Fatal(err)
	}
	pairs, err := loadPairs(pairsPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 || pairs[0] != [2]string{"K1", "EGFR_S15"} {
		t.Errorf("pairs: %v", pairs)
	}

	matrixPath := filepath.Join(dir, "expr.csv")
	if err := os.WriteFile(matrixPath, []byte("gene,x1,x2,x3\nG1,1,2,3\nG2,4,5,6\n"), 0644); err != nil {
		t.Fatal(err)
	}
	ids, values, err := loadMatrix(matrixPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[1] != "G2" || values[1][2] != 6 {
		t.Errorf("matrix: %v %v", ids, values)
	}

	if err := os.WriteFile(matrixPath, []byte("gene,x1\nG1,notanumber\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadMatrix(matrixPath); err == nil {
		t.Error("malformed matrix accepted")
	}
}
