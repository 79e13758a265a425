package report

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/divvy/internal/models"
)

// ErrNoIncome is returned when there is nothing to chart
var ErrNoIncome = errors.New("no projected dividend income to chart")

// MonthlyIncome spreads each record's projected annual income evenly over
// the months it pays in. Index 0 is January. Records with no known payment
// months are left out.
func MonthlyIncome(records []models.AnalysisRecord) [12]float64 {
	var months [12]float64
	for _, r := range records {
		income := r.Affordability.ProjectedAnnualIncome
		if income <= 0 || len(r.DividendMonths) == 0 {
			continue
		}
		share := income / float64(len(r.DividendMonths))
		for _, m := range r.DividendMonths {
			if m >= 1 && m <= 12 {
				months[m-1] += share
			}
		}
	}
	return months
}

// RenderIncomeChart renders a bar per calendar month and returns raw PNG bytes
func RenderIncomeChart(months [12]float64, currency string) ([]byte, error) {
	total := 0.0
	bars := make([]chart.Value, 0, len(months))
	for i, v := range months {
		total += v
		bars = append(bars, chart.Value{
			Label: monthNames[i],
			Value: v,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("16a34a"), // green-600
				StrokeColor: drawing.ColorFromHex("15803d"),
				StrokeWidth: 1,
			},
		})
	}
	if total <= 0 {
		return nil, ErrNoIncome
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("Projected Dividend Income (%s %.0f / year)", currency, total),
		Width:    900,
		Height:   400,
		BarWidth: 50,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
