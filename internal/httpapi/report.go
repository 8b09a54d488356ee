package httpapi

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/money"
	"papelpos/backend/internal/receipt"
)

func summaryToCSV(summary domain.SaleSummary) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", summary.Date),
		fmt.Sprintf("summary,sales,%d", summary.Sales),
		fmt.Sprintf("summary,items,%d", summary.Items),
		fmt.Sprintf("summary,total,%d", summary.Total),
	}
	for _, m := range summary.ByMethod {
		lines = append(lines, fmt.Sprintf("method,%s_sales,%d", m.Method, m.Sales))
		lines = append(lines, fmt.Sprintf("method,%s_total,%d", m.Method, m.Total))
	}
	return strings.Join(lines, "\n") + "\n"
}

// All fields are escaped by html/template.
var summaryHTMLTmpl = template.Must(template.New("daily-summary").Funcs(template.FuncMap{
	"cop":   money.FormatCOP,
	"label": receipt.MethodLabel,
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Ventas {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
  </style>
</head>
<body>
  <h2>Ventas del {{.Date}}</h2>
  <p>Ventas: {{.Sales}} | Unidades: {{.Items}} | Total: {{cop .Total}}</p>
  <table>
    <thead><tr><th>Método</th><th>Ventas</th><th>Total</th></tr></thead>
    <tbody>{{range .ByMethod}}<tr><td>{{label .Method}}</td><td style="text-align:right;">{{.Sales}}</td><td style="text-align:right;">{{cop .Total}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func summaryToPrintableHTML(summary domain.SaleSummary) string {
	var buf bytes.Buffer
	if err := summaryHTMLTmpl.Execute(&buf, summary); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}
