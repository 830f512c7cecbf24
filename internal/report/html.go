package report

import (
	"html/template"
	"os"
)

// reportTemplate mirrors the csv field order; top-N rows are
// highlighted.
var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Max Pain Report {{.GeneratedAt.Format "2006-01-02"}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: right; }
th { background: #20232a; color: #fff; }
td:first-child, td:nth-child(2), td:nth-child(7) { text-align: left; }
tr.top { background: #fff7d6; }
.call { color: #1a7f37; }
.put { color: #b42318; }
.meta { color: #666; font-size: 0.85em; }
</style>
</head>
<body>
<h1>Max Pain Report</h1>
<p class="meta">Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}} &middot; run {{.RunID}} &middot; {{.Count}} ticker(s)</p>
<table>
<tr>
<th>Ticker</th><th>Expiration</th><th>Current</th><th>Max Pain</th>
<th>Change %</th><th>Net Premium</th><th>Bias</th>
<th>Call OI</th><th>Put OI</th><th>Min Payout</th>
</tr>
{{range .Results}}
<tr{{if .IsTopN}} class="top"{{end}}>
<td>{{.Ticker}}</td>
<td>{{.ExpirationDate}}</td>
<td>{{printf "%.2f" .CurrentPrice}}</td>
<td>{{printf "%.2f" .MaxPainPrice}}</td>
<td>{{printf "%+.2f%%" .PctChange}}</td>
<td>{{printf "%.2f" .NetPremium}}</td>
<td class="{{.PremiumBias}}">{{.PremiumBias}}</td>
<td>{{.TotalCallOI}}</td>
<td>{{.TotalPutOI}}</td>
<td>{{printf "%.2f" .MinPayout}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

func (w *Writer) writeHTML(doc document) (string, error) {
	path, err := w.outputPath("html", "html")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return path, reportTemplate.Execute(f, doc)
}
