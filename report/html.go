package report

import (
	"html/template"
	"os"
	"time"
)

// IndexGene is one gene row of the consolidated index.
type IndexGene struct {
	Name   string
	Score  float64
	Lambda float64
	Weight string
	Plot   string
	Error  string
}

// Index collects everything the consolidated report links to.
type Index struct {
	Title     string
	Generated time.Time
	Variant   string
	Genes     []IndexGene

	TablesCSV   string
	TablesLaTeX string
	MorrisPlot  string
	PCAPlot     string
	Diagram     string
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 4px 10px; }
.err { color: #a00; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Variant}} model &mdash; generated {{.Generated.Format "2006-01-02 15:04"}}</p>
<h2>Genes</h2>
<table>
<tr><th>Gene</th><th>Score</th><th>&lambda;</th><th>Weights</th><th>Fit</th></tr>
{{range .Genes}}<tr>
<td>{{.Name}}</td>
{{if .Error}}<td colspan="4" class="err">{{.Error}}</td>
{{else}}<td>{{printf "%.4g" .Score}}</td><td>{{printf "%.3g" .Lambda}}</td><td>{{.Weight}}</td><td>{{if .Plot}}<a href="{{.Plot}}">plot</a>{{end}}</td>
{{end}}</tr>
{{end}}</table>
<h2>Artifacts</h2>
<ul>
{{if .TablesCSV}}<li><a href="{{.TablesCSV}}">parameter table (CSV)</a></li>{{end}}
{{if .TablesLaTeX}}<li><a href="{{.TablesLaTeX}}">parameter table (LaTeX)</a></li>{{end}}
{{if .MorrisPlot}}<li><a href="{{.MorrisPlot}}">sensitivity ranking</a></li>{{end}}
{{if .PCAPlot}}<li><a href="{{.PCAPlot}}">parameter-space map</a></li>{{end}}
{{if .Diagram}}<li><a href="{{.Diagram}}">reaction scheme (DOT)</a></li>{{end}}
</ul>
</body>
</html>
`))

// WriteIndex renders the consolidated HTML index.
func WriteIndex(path string, idx *Index) error {
	if idx.Generated.IsZero() {
		idx.Generated = time.Now()
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := indexTmpl.Execute(f, idx); err != nil {
		f.Close()
		return err
	}
	log.Infof("report index written to %s", path)
	return f.Close()
}
