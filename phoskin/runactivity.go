package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/phoskin/phoskin/config"
	"github.com/phoskin/phoskin/kinopt"
	"github.com/phoskin/phoskin/tfopt"
)

// runKinopt fits kinase activities to the phosphosite series.
func runKinopt(cfg *config.Config) *ActivitySummary {
	stageStart := time.Now()
	if cfg.Paths.KinaseMap == "" {
		log.Fatal("no kinase map configured (paths.kinase_map)")
	}
	recs := loadRecords(cfg)

	series := map[string][]float64{}
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			continue
		}
		for si, site := range rec.Sites {
			series[rec.Gene+"_"+site] = rec.Phospho[si]
		}
	}
	if len(series) == 0 {
		log.Fatal("no valid phosphosite series")
	}

	pairs, err := loadPairs(cfg.Paths.KinaseMap)
	if err != nil {
		log.Fatal(err)
	}

	p, err := assembleKinase(pairs, series)
	if err != nil {
		log.Fatal(err)
	}

	res, err := kinopt.Fit(p, kinopt.Settings{
		Method:      cfg.Estimate.Method,
		Iterations:  cfg.Estimate.Iterations,
		Loss:        cfg.Activity.Loss,
		TimeWeights: cfg.Activity.TimeWeights,
		Seed:        cfg.Seed,
		Quiet:       false,
	})
	if err != nil {
		log.Fatal(err)
	}
	logMetrics("kinopt", res)
	writeActivityJSON(filepath.Join(cfg.Paths.OutDir, "kinopt.json"), res)

	return &ActivitySummary{
		Targets: len(p.Targets),
		Loss:    res.Loss,
		Metrics: res.Metrics,
		Time:    time.Since(stageStart).Seconds(),
	}
}

// assembleKinase builds the fitting problem from (kinase, site) pairs
// and the site series table. Targets are all mapped sites; a kinase's
// substrate rows are the series of its own mapped sites.
func assembleKinase(pairs [][2]string, series map[string][]float64) (*kinopt.Problem, error) {
	siteKinases := map[string][]string{}
	kinaseSites := map[string][]string{}
	for _, pair := range pairs {
		kinase, site := pair[0], pair[1]
		if _, ok := series[site]; !ok {
			log.Debugf("kinase map references unknown site %s", site)
			continue
		}
		siteKinases[site] = append(siteKinases[site], kinase)
		kinaseSites[kinase] = append(kinaseSites[kinase], site)
	}
	if len(siteKinases) == 0 {
		return nil, fmt.Errorf("kinase map matches no observed site")
	}

	kinases := make([]string, 0, len(kinaseSites))
	for k := range kinaseSites {
		kinases = append(kinases, k)
	}
	sort.Strings(kinases)
	kinaseIdx := make(map[string]int, len(kinases))
	for i, k := range kinases {
		kinaseIdx[k] = i
	}

	p := &kinopt.Problem{Kinases: kinases}
	var rows [][]float64
	for _, k := range kinases {
		sites := kinaseSites[k]
		sort.Strings(sites)
		p.RowStart = append(p.RowStart, len(rows))
		p.RowCount = append(p.RowCount, len(sites))
		for _, site := range sites {
			rows = append(rows, series[site])
			p.RowLabels = append(p.RowLabels, site)
		}
	}
	m, err := kinopt.NewCSR(rows)
	if err != nil {
		return nil, err
	}
	p.K = m

	targets := make([]string, 0, len(siteKinases))
	for site := range siteKinases {
		targets = append(targets, site)
	}
	sort.Strings(targets)
	for _, site := range targets {
		p.Targets = append(p.Targets, site)
		p.Observed = append(p.Observed, series[site])
		var idx []int
		for _, k := range siteKinases[site] {
			idx = append(idx, kinaseIdx[k])
		}
		sort.Ints(idx)
		p.TargetKinases = append(p.TargetKinases, idx)
	}
	return p, nil
}

// runTfopt fits TF activities to the expression matrix.
func runTfopt(cfg *config.Config) *ActivitySummary {
	stageStart := time.Now()
	if cfg.Paths.TFMap == "" || cfg.Paths.Expression == "" {
		log.Fatal("tfopt needs paths.tf_map and paths.expression")
	}
	recs := loadRecords(cfg)

	genes, expression, err := loadMatrix(cfg.Paths.Expression)
	if err != nil {
		log.Fatal(err)
	}
	pairs, err := loadPairs(cfg.Paths.TFMap)
	if err != nil {
		log.Fatal(err)
	}

	net := &tfopt.Network{
		Genes:      genes,
		Expression: expression,
		Regulators: map[string][]string{},
	}
	for _, pair := range pairs {
		gene, tf := pair[0], pair[1]
		net.Regulators[gene] = append(net.Regulators[gene], tf)
	}

	// TF series come from the time-series data: protein reference plus
	// phosphosites per factor.
	seen := map[string]bool{}
	for _, pair := range pairs {
		tf := pair[1]
		if seen[tf] {
			continue
		}
		seen[tf] = true
		for _, rec := range recs {
			if rec.Gene != tf || rec.Validate() != nil {
				continue
			}
			protein := rec.Protein
			if protein == nil {
				// No reference series; fall back to the site mean.
				protein = meanSeries(rec.Phospho, len(rec.Times))
			}
			net.TFs = append(net.TFs, tf)
			net.Protein = append(net.Protein, protein)
			net.PSites = append(net.PSites, rec.Phospho)
			net.PSiteLabels = append(net.PSiteLabels, rec.Sites)
			break
		}
	}

	res, err := tfopt.Fit(net, kinopt.Settings{
		Method:      cfg.Estimate.Method,
		Iterations:  cfg.Estimate.Iterations,
		Loss:        cfg.Activity.Loss,
		TimeWeights: cfg.Activity.TimeWeights,
		Seed:        cfg.Seed,
		Quiet:       false,
	})
	if err != nil {
		log.Fatal(err)
	}
	logMetrics("tfopt", res)
	if err := tfopt.Export(filepath.Join(cfg.Paths.OutDir, "tfopt"), net, res); err != nil {
		log.Error(err)
	}

	return &ActivitySummary{
		Targets: len(net.Genes),
		Loss:    res.Loss,
		Metrics: res.Metrics,
		Time:    time.Since(stageStart).Seconds(),
	}
}

func meanSeries(series [][]float64, n int) []float64 {
	mean := make([]float64, n)
	if len(series) == 0 {
		return mean
	}
	for _, s := range series {
		for i, v := range s {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(series))
	}
	return mean
}

func logMetrics(stage string, res *kinopt.Result) {
	m := res.Metrics
	log.Notice("--- Error Metrics ---")
	log.Noticef("%s: MSE=%.4f RMSE=%.4f MAE=%.4f MAPE=%.2f%% R^2=%.4f",
		stage, m.MSE, m.RMSE, m.MAE, m.MAPE, m.R2)
}

func writeActivityJSON(path string, res *kinopt.Result) {
	f, err := os.Create(path)
	if err != nil {
		log.Error(err)
		return
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Error(err)
	}
}

// loadPairs reads a two-column CSV (with a header line) into ordered
// pairs.
func loadPairs(path string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}
	pairs := make([][2]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		pairs = append(pairs, [2]string{rec[0], rec[1]})
	}
	return pairs, nil
}

// loadMatrix reads a wide CSV (id, x1..xT with a header line).
func loadMatrix(path string) ([]string, [][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("%s: no data rows", path)
	}
	var ids []string
	var values [][]float64
	for ln, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, nil, fmt.Errorf("%s line %d: too few columns", path, ln+2)
		}
		row := make([]float64, 0, len(rec)-1)
		for _, field := range rec[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s line %d: %w", path, ln+2, err)
			}
			row = append(row, v)
		}
		ids = append(ids, rec[0])
		values = append(values, row)
	}
	return ids, values, nil
}
