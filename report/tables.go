// Package report renders completed runs: parameter tables as CSV and
// LaTeX, fit and sensitivity figures, reaction-scheme diagrams, and a
// consolidated HTML index.
package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/op/go-logging"

	"github.com/phoskin/phoskin/estimate"
)

var log = logging.MustGetLogger("report")

// WriteFitsCSV writes one row per gene and parameter with the
// estimate, its uncertainty and the fit score.
func WriteFitsCSV(path string, fits []*estimate.FitResult) error {
	rows := [][]string{{
		"gene", "parameter", "estimate", "stderr",
		"lower", "upper", "pvalue", "score",
	}}
	for _, fit := range fits {
		for _, p := range fit.Params {
			rows = append(rows, []string{
				fit.Gene, p.Name,
				ff(p.Value), ff(p.StdErr),
				ff(p.Lower), ff(p.Upper),
				ff(p.PValue), ff(fit.Score),
			})
		}
	}
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

var latexTmpl = template.Must(template.New("table").Funcs(template.FuncMap{
	"esc": latexEscape,
	"ff":  ff,
	"fp":  fp,
}).Parse(`\begin{tabular}{llrrrr}
\hline
Gene & Parameter & Estimate & Lower & Upper & $p$ \\
\hline
{{range .}}{{$g := .Gene}}{{range .Params}}{{esc $g}} & {{esc .Name}} & {{ff .Value}} & {{ff .Lower}} & {{ff .Upper}} & {{fp .PValue}} \\
{{end}}{{end}}\hline
\end{tabular}
`))

// WriteFitsLaTeX writes the parameter table as a LaTeX tabular.
func WriteFitsLaTeX(path string, fits []*estimate.FitResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := latexTmpl.Execute(f, fits); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func latexEscape(s string) string {
	r := strings.NewReplacer("_", `\_`, "%", `\%`, "&", `\&`, "#", `\#`)
	return r.Replace(s)
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// fp formats p-values, compressing the small ones.
func fp(v float64) string {
	if v != v {
		return "--"
	}
	if v < 1e-4 {
		return "$<$1e-4"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
