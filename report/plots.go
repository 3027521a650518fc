package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/phoskin/phoskin/data"
	"github.com/phoskin/phoskin/integrate"
	"github.com/phoskin/phoskin/kinetics"
	"github.com/phoskin/phoskin/sensitivity"
)

// PlotFit draws the observed points and fitted curves of one gene.
func PlotFit(path string, rec *data.GeneRecord, model *kinetics.Model, tr *integrate.Trace) error {
	p := plot.New()
	p.Title.Text = rec.Gene
	p.X.Label.Text = "time"
	p.Y.Label.Text = "intensity"

	var items []interface{}
	if rec.Protein != nil {
		items = append(items, "protein (obs)", series(rec.Times, rec.Protein))
		items = append(items, "protein (fit)", signal(tr, model.ProteinSignal))
	}
	for si, site := range rec.Sites {
		si := si
		items = append(items, site+" (obs)", series(rec.Times, rec.Phospho[si]))
		items = append(items, site+" (fit)", signal(tr, func(x []float64) float64 {
			return model.SiteSignal(x, si)
		}))
	}
	if err := plotutil.AddLinePoints(p, items...); err != nil {
		return fmt.Errorf("report: plotting %s: %w", rec.Gene, err)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func series(times, values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(times))
	for i := range times {
		pts[i].X = times[i]
		pts[i].Y = values[i]
	}
	return pts
}

func signal(tr *integrate.Trace, f func(x []float64) float64) plotter.XYs {
	pts := make(plotter.XYs, len(tr.Times))
	for i := range tr.Times {
		pts[i].X = tr.Times[i]
		pts[i].Y = f(tr.At(i))
	}
	return pts
}

// PlotMorris draws the mu* ranking as a bar chart.
func PlotMorris(path string, res *sensitivity.Result) error {
	p := plot.New()
	p.Title.Text = "parameter sensitivity"
	p.Y.Label.Text = "mu*"

	bars, err := plotter.NewBarChart(plotter.Values(res.MuStar), vg.Points(20))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(res.Names...)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// PlotPCA draws the per-gene parameter-space map.
func PlotPCA(path string, coords [][2]float64) error {
	p := plot.New()
	p.Title.Text = "parameter space (PCA)"
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"

	pts := make(plotter.XYs, len(coords))
	for i, c := range coords {
		pts[i].X = c[0]
		pts[i].Y = c[1]
	}
	if err := plotutil.AddScatters(p, pts); err != nil {
		return err
	}
	return p.Save(5*vg.Inch, 5*vg.Inch, path)
}
