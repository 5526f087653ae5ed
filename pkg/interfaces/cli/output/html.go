package output

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"time"

	appservices "github.com/batchforge/bom/pkg/application/services"
)

// timelinePage wraps the SVG chart with a version table and the
// timeline's data-quality findings.
const timelinePage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>BOM Timeline - {{.ProductID}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 24px; color: #333; }
table { border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #ddd; padding: 6px 12px; font-size: 13px; text-align: left; }
th { background: #f5f5f5; }
tr.overlap td { background: #fbeaea; }
.findings { margin-top: 16px; padding: 12px; background: #fff3cd; border: 1px solid #c79100; border-radius: 4px; font-size: 13px; }
.footer { margin-top: 24px; font-size: 11px; color: #999; }
</style>
</head>
<body>
<h1>BOM Version Timeline: {{.ProductID}}</h1>
{{.ChartSVG}}
<table>
<tr><th>Version</th><th>Status</th><th>Effective From</th><th>Effective To</th><th>Output</th></tr>
{{range .Rows}}<tr{{if .Overlap}} class="overlap"{{end}}>
<td>v{{.Version}}</td><td>{{.Status}}</td><td>{{.From}}</td><td>{{.To}}</td><td>{{.Output}}</td>
</tr>
{{end}}</table>
{{if .Findings}}<div class="findings"><strong>Findings</strong><ul>
{{range .Findings}}<li>{{.}}</li>{{end}}
</ul></div>{{end}}
<div class="footer">Generated {{.GeneratedAt}}</div>
</body>
</html>
`

type timelineRow struct {
	Version int
	Status  string
	From    string
	To      string
	Output  string
	Overlap bool
}

type timelinePageData struct {
	ProductID   string
	ChartSVG    template.HTML
	Rows        []timelineRow
	Findings    []string
	GeneratedAt string
}

// GenerateTimelineHTML renders a product timeline as a standalone HTML
// page with an SVG interval chart
func GenerateTimelineHTML(timeline *appservices.Timeline) (string, error) {
	chart := NewTimelineChart(timeline)

	data := timelinePageData{
		ProductID:   string(timeline.ProductID),
		ChartSVG:    template.HTML(chart.GenerateSVG(timeline)),
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
	}

	for _, v := range timeline.Versions {
		to := "open-ended"
		if v.EffectiveTo != nil {
			to = v.EffectiveTo.Format("2006-01-02")
		}
		data.Rows = append(data.Rows, timelineRow{
			Version: v.Version,
			Status:  v.Status.String(),
			From:    v.EffectiveFrom.Format("2006-01-02"),
			To:      to,
			Output:  fmt.Sprintf("%s %s", v.OutputQuantity, v.OutputUoM),
			Overlap: timeline.Overlaps[v.ID],
		})
	}

	if len(data.Rows) > 0 {
		overlapCount := 0
		for _, row := range data.Rows {
			if row.Overlap {
				overlapCount++
			}
		}
		if overlapCount > 0 {
			data.Findings = append(data.Findings,
				fmt.Sprintf("%d version(s) overlap an adjacent interval", overlapCount))
		}
		for _, gap := range timeline.Gaps {
			data.Findings = append(data.Findings,
				fmt.Sprintf("coverage gap from %s to %s", gap.From.Format("2006-01-02"), gap.To.Format("2006-01-02")))
		}
	}

	tmpl, err := template.New("timeline").Parse(timelinePage)
	if err != nil {
		return "", fmt.Errorf("failed to parse timeline template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render timeline page: %w", err)
	}
	return buf.String(), nil
}

// WriteTimelineHTML renders and writes the timeline page to a file
func WriteTimelineHTML(timeline *appservices.Timeline, filename string) error {
	page, err := GenerateTimelineHTML(timeline)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(page), 0644); err != nil {
		return fmt.Errorf("failed to write timeline page: %w", err)
	}
	return nil
}
