// Package data loads experimental phosphorylation time courses. The
// input is long-format CSV with one measurement per row:
//
//	gene,site,time,intensity
//
// Rows with site "protein" (or empty) form the optional total-protein
// reference series. Records are immutable after loading; validation
// is per gene so one malformed gene never aborts a batch.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

var (
	// ErrTimeOrder is returned when a series is not strictly
	// increasing in time.
	ErrTimeOrder = errors.New("time points not strictly increasing")
	// ErrNegative is returned for negative measured intensities.
	ErrNegative = errors.New("negative intensity")
	// ErrGridMismatch is returned when sites of one gene disagree
	// on the time grid.
	ErrGridMismatch = errors.New("sites measured on different time grids")
	// ErrEmpty is returned for a gene without phosphosite series.
	ErrEmpty = errors.New("no phosphosite measurements")
)

// proteinSite is the site label of the total-protein reference rows.
const proteinSite = "protein"

// GeneRecord is one gene's observed time course.
type GeneRecord struct {
	Gene    string
	Sites   []string
	Times   []float64
	Phospho [][]float64 // site x time
	Protein []float64   // optional reference series, nil if absent

	buildErr error
}

// NSites returns the number of phosphosites.
func (g *GeneRecord) NSites() int { return len(g.Sites) }

// Validate checks the record invariants: strictly increasing time,
// non-negative intensities, one shared grid.
func (g *GeneRecord) Validate() error {
	if g.buildErr != nil {
		return g.buildErr
	}
	if len(g.Sites) == 0 {
		return fmt.Errorf("%s: %w", g.Gene, ErrEmpty)
	}
	for i := 1; i < len(g.Times); i++ {
		if g.Times[i] <= g.Times[i-1] {
			return fmt.Errorf("%s: %w: t[%d]=%g after t[%d]=%g",
				g.Gene, ErrTimeOrder, i, g.Times[i], i-1, g.Times[i-1])
		}
	}
	for si, series := range g.Phospho {
		if len(series) != len(g.Times) {
			return fmt.Errorf("%s: %w: site %s has %d points, grid has %d",
				g.Gene, ErrGridMismatch, g.Sites[si], len(series), len(g.Times))
		}
		for ti, v := range series {
			if v < 0 {
				return fmt.Errorf("%s: %w: site %s at t=%g",
					g.Gene, ErrNegative, g.Sites[si], g.Times[ti])
			}
		}
	}
	if g.Protein != nil && len(g.Protein) != len(g.Times) {
		return fmt.Errorf("%s: %w: protein series has %d points, grid has %d",
			g.Gene, ErrGridMismatch, len(g.Protein), len(g.Times))
	}
	return nil
}

type point struct {
	time  float64
	value float64
}

// Load reads all gene records from a CSV file. Structural CSV errors
// are fatal; per-gene data problems are left for Validate.
func Load(path string) ([]*GeneRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses gene records from long-format CSV.
func Read(r io.Reader) ([]*GeneRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4

	series := make(map[string]map[string][]point)
	var geneOrder []string

	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && rec[2] == "time" {
			continue // header
		}
		gene, site := rec[0], rec[1]
		t, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q: %v", line, rec[2], err)
		}
		v, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad intensity %q: %v", line, rec[3], err)
		}
		if site == "" {
			site = proteinSite
		}
		if _, ok := series[gene]; !ok {
			series[gene] = make(map[string][]point)
			geneOrder = append(geneOrder, gene)
		}
		series[gene][site] = append(series[gene][site], point{t, v})
	}

	records := make([]*GeneRecord, 0, len(geneOrder))
	for _, gene := range geneOrder {
		records = append(records, buildRecord(gene, series[gene]))
	}
	return records, nil
}

// buildRecord assembles one gene keeping the file's measurement order
// per site, so a non-increasing input surfaces in Validate instead of
// being silently repaired.
func buildRecord(gene string, sites map[string][]point) *GeneRecord {
	names := make([]string, 0, len(sites))
	for name := range sites {
		if name != proteinSite {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	g := &GeneRecord{Gene: gene, Sites: names}
	if len(names) > 0 {
		first := sites[names[0]]
		g.Times = make([]float64, len(first))
		for i, p := range first {
			g.Times[i] = p.time
		}
	}
	g.Phospho = make([][]float64, len(names))
	for si, name := range names {
		pts := sites[name]
		vals := make([]float64, len(pts))
		for i, p := range pts {
			vals[i] = p.value
			if i < len(g.Times) && p.time != g.Times[i] && g.buildErr == nil {
				g.buildErr = fmt.Errorf("%s: %w: site %s at index %d has t=%g, grid has %g",
					gene, ErrGridMismatch, name, i, p.time, g.Times[i])
			}
		}
		g.Phospho[si] = vals
	}
	if prot, ok := sites[proteinSite]; ok {
		g.Protein = make([]float64, len(prot))
		for i, p := range prot {
			g.Protein[i] = p.value
		}
	}
	return g
}
