package output

import (
	"fmt"
	"math"
	"strings"
	"time"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/domain/services"
)

// TimelineChart renders a product's version intervals as horizontal
// bars on a shared time axis. Overlapping versions are tinted red,
// gaps appear as hatched spans between bars.
type TimelineChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// openEndedPadding extends the axis past an open-ended interval so the
// bar visibly runs off the chart edge.
const openEndedPadding = 90 * 24 * time.Hour

// NewTimelineChart sizes a chart for the given timeline
func NewTimelineChart(timeline *appservices.Timeline) *TimelineChart {
	chart := &TimelineChart{
		Width:        1000,
		MarginLeft:   160,
		MarginTop:    60,
		MarginRight:  60,
		MarginBottom: 60,
		RowHeight:    34,
	}

	if len(timeline.Versions) == 0 {
		chart.Height = 160
		return chart
	}

	start := timeline.Versions[0].EffectiveFrom
	end := start
	openEnded := false
	for _, v := range timeline.Versions {
		if v.EffectiveFrom.Before(start) {
			start = v.EffectiveFrom
		}
		if v.EffectiveTo == nil {
			openEnded = true
			if v.EffectiveFrom.After(end) {
				end = v.EffectiveFrom
			}
		} else if v.EffectiveTo.After(end) {
			end = *v.EffectiveTo
		}
	}
	if openEnded {
		end = end.Add(openEndedPadding)
	}

	padding := time.Duration(float64(end.Sub(start)) * 0.05)
	chart.StartTime = start.Add(-padding)
	chart.EndTime = end.Add(padding)
	chart.Height = len(timeline.Versions)*chart.RowHeight + chart.MarginTop + chart.MarginBottom
	return chart
}

// GenerateSVG renders the timeline as an SVG document
func (tc *TimelineChart) GenerateSVG(timeline *appservices.Timeline) string {
	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, tc.Width, tc.Height))
	svg.WriteString(`<defs><style>`)
	svg.WriteString(`.version-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.interval-bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.gap-span { fill: #fff3cd; stroke: #c79100; stroke-width: 1; stroke-dasharray: 4 2; }`)
	svg.WriteString(`</style></defs>`)

	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, tc.Width, tc.Height))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="30" class="title" text-anchor="middle">BOM Version Timeline - %s</text>`,
		tc.Width/2, timeline.ProductID))

	if len(timeline.Versions) == 0 {
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="version-label" text-anchor="middle">No versions</text>`,
			tc.Width/2, tc.Height/2))
		svg.WriteString(`</svg>`)
		return svg.String()
	}

	tc.drawTimeAxis(&svg)
	tc.drawGaps(&svg, timeline.Gaps, len(timeline.Versions))
	tc.drawVersionBars(&svg, timeline)

	svg.WriteString(`</svg>`)
	return svg.String()
}

func (tc *TimelineChart) xFor(t time.Time) int {
	chartWidth := tc.Width - tc.MarginLeft - tc.MarginRight
	total := tc.EndTime.Sub(tc.StartTime)
	offset := t.Sub(tc.StartTime)
	return tc.MarginLeft + int(float64(offset)/float64(total)*float64(chartWidth))
}

func (tc *TimelineChart) drawTimeAxis(svg *strings.Builder) {
	totalDuration := tc.EndTime.Sub(tc.StartTime)
	days := int(math.Ceil(totalDuration.Hours() / 24))

	var interval time.Duration
	var labelFormat string
	switch {
	case days <= 30:
		interval = 24 * time.Hour
		labelFormat = "Jan 2"
	case days <= 180:
		interval = 7 * 24 * time.Hour
		labelFormat = "Jan 2"
	default:
		interval = 30 * 24 * time.Hour
		labelFormat = "Jan 2006"
	}

	axisY := tc.Height - tc.MarginBottom
	for t := tc.StartTime.Truncate(interval); t.Before(tc.EndTime); t = t.Add(interval) {
		x := tc.xFor(t)
		if x < tc.MarginLeft || x > tc.Width-tc.MarginRight {
			continue
		}
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			x, tc.MarginTop, x, axisY))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
			x, axisY+15, t.Format(labelFormat)))
	}

	svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		tc.MarginLeft, axisY, tc.Width-tc.MarginRight, axisY))
}

func (tc *TimelineChart) drawGaps(svg *strings.Builder, gaps []services.Gap, rows int) {
	top := tc.MarginTop
	bottom := top + rows*tc.RowHeight
	for _, gap := range gaps {
		x1 := tc.xFor(gap.From)
		x2 := tc.xFor(gap.To.Add(24 * time.Hour))
		if x2 <= x1 {
			x2 = x1 + 2
		}
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" class="gap-span"/>`,
			x1, top, x2-x1, bottom-top))
	}
}

func (tc *TimelineChart) drawVersionBars(svg *strings.Builder, timeline *appservices.Timeline) {
	for i, v := range timeline.Versions {
		y := tc.MarginTop + i*tc.RowHeight + 4
		barHeight := tc.RowHeight - 8

		x1 := tc.xFor(v.EffectiveFrom)
		var x2 int
		if v.EffectiveTo == nil {
			x2 = tc.Width - tc.MarginRight
		} else {
			x2 = tc.xFor(v.EffectiveTo.Add(24 * time.Hour))
		}
		if x2-x1 < 2 {
			x2 = x1 + 2
		}

		color := tc.barColor(v, timeline)
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="interval-bar" rx="3"/>`,
			x1, y, x2-x1, barHeight, color))

		label := fmt.Sprintf("v%d (%s)", v.Version, v.Status)
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="version-label" text-anchor="end">%s</text>`,
			tc.MarginLeft-8, y+barHeight/2+4, label))
	}
}

func (tc *TimelineChart) barColor(v *entities.BOMVersion, timeline *appservices.Timeline) string {
	if timeline.Overlaps[v.ID] {
		return "#d9534f"
	}
	switch v.Status {
	case entities.StatusActive:
		return "#5cb85c"
	case entities.StatusDraft:
		return "#5bc0de"
	case entities.StatusPhasedOut:
		return "#f0ad4e"
	default:
		return "#999999"
	}
}
