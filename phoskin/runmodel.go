package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/phoskin/phoskin/config"
	"github.com/phoskin/phoskin/data"
	"github.com/phoskin/phoskin/estimate"
	"github.com/phoskin/phoskin/integrate"
	"github.com/phoskin/phoskin/kinetics"
	"github.com/phoskin/phoskin/optimize"
	"github.com/phoskin/phoskin/report"
	"github.com/phoskin/phoskin/sensitivity"
	"github.com/phoskin/phoskin/store"
)

// geneOutcome is one worker's result.
type geneOutcome struct {
	gene    string
	rec     *data.GeneRecord
	fit     *estimate.FitResult
	err     error
	resumed bool
}

// runPrep loads and validates the time series.
func runPrep(cfg *config.Config) *PrepSummary {
	recs := loadRecords(cfg)
	s := &PrepSummary{Rejected: map[string]string{}}
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			s.Rejected[rec.Gene] = err.Error()
			continue
		}
		s.Genes++
		if s.TimePoints == 0 {
			s.TimePoints = len(rec.Times)
		}
	}
	log.Noticef("prep: %d genes valid, %d rejected", s.Genes, len(s.Rejected))
	if len(s.Rejected) == 0 {
		s.Rejected = nil
	}
	return s
}

func loadRecords(cfg *config.Config) []*data.GeneRecord {
	if cfg.Paths.TimeSeries == "" {
		log.Fatal("no time-series file configured (use -d or paths.time_series)")
	}
	recs, err := data.Load(cfg.Paths.TimeSeries)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("read %d genes from %s", len(recs), cfg.Paths.TimeSeries)
	return recs
}

// runModel fits the kinetic model to every gene with a bounded worker
// pool. One gene's failure never aborts the others.
func runModel(cfg *config.Config) *ModelSummary {
	stageStart := time.Now()
	recs := loadRecords(cfg)

	variant, err := cfg.Variant()
	if err != nil {
		log.Fatal(err)
	}

	var warmStart []float64
	if *startF != "" {
		content, err := os.ReadFile(*startF)
		if err != nil {
			log.Fatal("Error reading start file:", err)
		}
		warmStart, err = optimize.ReadFloats(string(content))
		if err != nil {
			log.Fatal("Error parsing start file:", err)
		}
		log.Infof("Using warm start with %d values", len(warmStart))
	}

	var db *store.Store
	if cfg.Paths.ResultsDB != "" {
		db, err = store.Open(cfg.Paths.ResultsDB)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	jobs := make(chan *data.GeneRecord)
	results := make(chan geneOutcome)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- fitGene(cfg, variant, rec, db, warmStart)
			}
		}()
	}
	go func() {
		for _, rec := range recs {
			jobs <- rec
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	summary := &ModelSummary{Genes: map[string]*GeneSummary{}}
	var fits []*estimate.FitResult
	var fitRecs []*data.GeneRecord
	for out := range results {
		if out.err != nil {
			summary.Failed++
			summary.Genes[out.gene] = &GeneSummary{Error: out.err.Error()}
			log.Warningf("[%s] fit failed: %v", out.gene, out.err)
			continue
		}
		summary.Fitted++
		g := geneSummary(out.fit)
		g.Resumed = out.resumed
		summary.Genes[out.gene] = g
		fits = append(fits, out.fit)
		fitRecs = append(fitRecs, out.rec)
	}
	log.Noticef("model: %d genes fitted, %d failed", summary.Fitted, summary.Failed)

	if cfg.Sensitivity.Enabled && len(fits) > 0 {
		summary.Sensitivity = runSensitivity(cfg, variant, fitRecs[0], fits[0])
	}

	writeReports(cfg, variant, fits, fitRecs, summary)
	summary.Time = time.Since(stageStart).Seconds()
	return summary
}

// fitGene runs one gene end to end, honoring -resume.
func fitGene(cfg *config.Config, variant kinetics.Variant, rec *data.GeneRecord, db *store.Store, warmStart []float64) geneOutcome {
	out := geneOutcome{gene: rec.Gene, rec: rec}

	if *resume && db.Final(rec.Gene) {
		entry, err := db.Get(rec.Gene)
		if err == nil && entry != nil && entry.Payload != nil {
			var fit estimate.FitResult
			if err := json.Unmarshal(entry.Payload, &fit); err == nil {
				log.Infof("[%s] reusing stored fit", rec.Gene)
				out.fit = &fit
				out.resumed = true
				return out
			}
		}
		log.Warningf("[%s] stored fit unreadable, refitting", rec.Gene)
	}

	lower, upper, err := cfg.ParamBoundsFor(rec.NSites())
	if err != nil {
		out.err = err
		return out
	}
	solver, err := integrate.NewSolver(cfg.Model.Solver)
	if err != nil {
		out.err = err
		return out
	}
	var start []float64
	if warmStart != nil {
		if len(warmStart) != len(lower) {
			out.err = fmt.Errorf("%s: warm start has %d values, model needs %d",
				rec.Gene, len(warmStart), len(lower))
			return out
		}
		start = warmStart
	}

	est, err := estimate.New(estimate.Settings{
		Variant:    variant,
		Sites:      rec.NSites(),
		Solver:     solver,
		Mode:       cfg.Estimate.Mode,
		Method:     cfg.Estimate.Method,
		Iterations: cfg.Estimate.Iterations,
		Lower:      lower,
		Upper:      upper,
		Fixed:      cfg.Fixed(),
		Start:      start,
		Bootstrap:  cfg.Estimate.Bootstrap,
		Alpha:      cfg.Estimate.Alpha,
		Regularize: cfg.Estimate.Regularize,
		LambdaGrid: cfg.Estimate.LambdaGrid,
		Seed:       geneSeed(cfg.Seed, rec.Gene),
		Quiet:      true,
	})
	if err != nil {
		out.err = err
		return out
	}

	fit, err := est.Fit(rec)
	if err != nil {
		out.err = err
		return out
	}
	out.fit = fit

	if db != nil {
		payload, err := json.Marshal(fit)
		if err == nil {
			params := make(map[string]float64, len(fit.Names))
			for i, name := range fit.Names {
				params[name] = fit.Values[i]
			}
			err = db.Save(&store.Entry{
				Gene:       rec.Gene,
				Parameters: params,
				Score:      fit.Score,
				Payload:    payload,
				Final:      true,
			})
		}
		if err != nil {
			log.Warningf("[%s] could not persist fit: %v", rec.Gene, err)
		}
	}
	return out
}

// geneSeed derives a per-gene seed so parallel fits are reproducible
// regardless of scheduling.
func geneSeed(seed int64, gene string) int64 {
	h := int64(1469598103934665603)
	for _, c := range gene {
		h ^= int64(c)
		h *= 1099511628211
	}
	return seed ^ h
}

// runSensitivity screens the objective of one fitted gene around the
// configured bounds.
func runSensitivity(cfg *config.Config, variant kinetics.Variant, rec *data.GeneRecord, fit *estimate.FitResult) *SensitivitySummary {
	model, err := kinetics.NewModel(variant, rec.NSites())
	if err != nil {
		log.Error("sensitivity:", err)
		return nil
	}
	solver, err := integrate.NewSolver(cfg.Model.Solver)
	if err != nil {
		log.Error("sensitivity:", err)
		return nil
	}
	lower, upper, err := cfg.ParamBoundsFor(rec.NSites())
	if err != nil {
		log.Error("sensitivity:", err)
		return nil
	}
	obj := estimate.NewObjective(model, solver, rec, nil)
	f := func(x []float64) (float64, error) {
		s := obj.Score(x)
		if math.IsInf(s, 0) || math.IsNaN(s) {
			return 0, fmt.Errorf("objective not finite")
		}
		return s, nil
	}
	res, err := sensitivity.Morris(f, model.ParamNames(), lower, upper, sensitivity.Settings{
		Trajectories: cfg.Sensitivity.Trajectories,
		Levels:       cfg.Sensitivity.Levels,
		Seed:         cfg.Seed,
		Workers:      cfg.Workers,
	})
	if err != nil {
		log.Error("sensitivity:", err)
		return nil
	}
	log.Noticef("sensitivity: screened %s over %d trajectories", rec.Gene, res.Used)
	return &SensitivitySummary{
		Gene:   rec.Gene,
		Names:  res.Names,
		Mu:     res.Mu,
		MuStar: res.MuStar,
		Sigma:  res.Sigma,
	}
}

// writeReports renders the tables, figures and index for the fitted
// genes. Report failures are logged, not fatal.
func writeReports(cfg *config.Config, variant kinetics.Variant, fits []*estimate.FitResult, recs []*data.GeneRecord, summary *ModelSummary) {
	if len(fits) == 0 {
		return
	}
	dir := cfg.Paths.OutDir

	if err := report.WriteFitsCSV(filepath.Join(dir, "fits.csv"), fits); err != nil {
		log.Error("report:", err)
	}
	if err := report.WriteFitsLaTeX(filepath.Join(dir, "fits.tex"), fits); err != nil {
		log.Error("report:", err)
	}

	idx := &report.Index{
		Title:       "phosphorylation kinetics fits",
		Variant:     variant.String(),
		TablesCSV:   "fits.csv",
		TablesLaTeX: "fits.tex",
	}

	for i, fit := range fits {
		rec := recs[i]
		entry := report.IndexGene{
			Name:   fit.Gene,
			Score:  fit.Score,
			Lambda: fit.Lambda,
			Weight: fit.Weight,
		}
		if fit.Trace != nil {
			model, err := kinetics.NewModel(variant, rec.NSites())
			if err == nil {
				name := "fit_" + fit.Gene + ".png"
				if err := report.PlotFit(filepath.Join(dir, name), rec, model, fit.Trace); err != nil {
					log.Errorf("report: plotting %s: %v", fit.Gene, err)
				} else {
					entry.Plot = name
				}
			}
		}
		idx.Genes = append(idx.Genes, entry)
	}
	for gene, g := range summary.Genes {
		if g.Error != "" {
			idx.Genes = append(idx.Genes, report.IndexGene{Name: gene, Error: g.Error})
		}
	}

	if summary.Sensitivity != nil {
		if err := report.PlotMorris(filepath.Join(dir, "morris.png"), &sensitivity.Result{
			Names:  summary.Sensitivity.Names,
			Mu:     summary.Sensitivity.Mu,
			MuStar: summary.Sensitivity.MuStar,
			Sigma:  summary.Sensitivity.Sigma,
		}); err != nil {
			log.Error("report:", err)
		} else {
			idx.MorrisPlot = "morris.png"
		}
	}

	// Parameter-space map over genes sharing a parameter count.
	var vectors [][]float64
	for _, fit := range fits {
		if len(fit.Values) == len(fits[0].Values) {
			vectors = append(vectors, fit.Values)
		}
	}
	if len(vectors) >= 2 {
		coords, err := report.PCA(vectors)
		if err != nil {
			log.Error("report:", err)
		} else if err := report.PlotPCA(filepath.Join(dir, "pca.png"), coords); err != nil {
			log.Error("report:", err)
		} else {
			idx.PCAPlot = "pca.png"
		}
	}

	dot, err := report.Diagram(variant, cfg.Model.Sites)
	if err != nil {
		log.Error("report:", err)
	} else if err := os.WriteFile(filepath.Join(dir, "scheme.dot"), []byte(dot), 0644); err != nil {
		log.Error("report:", err)
	} else {
		idx.Diagram = "scheme.dot"
	}

	if err := report.WriteIndex(filepath.Join(dir, "index.html"), idx); err != nil {
		log.Error("report:", err)
	}
}
