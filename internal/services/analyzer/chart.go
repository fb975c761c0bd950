package analyzer

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/polyfolio/internal/models"
)

// Chart renders the account's cumulative mark-to-market P&L over its trade
// history as a PNG line chart. Each trade contributes (curPrice - price) *
// size at its fill time.
func (s *Service) Chart(report *models.AnalysisReport) ([]byte, error) {
	if len(report.Trades) < 2 {
		return nil, fmt.Errorf("need at least 2 trades to chart, got %d", len(report.Trades))
	}

	trades := make([]models.Trade, len(report.Trades))
	copy(trades, report.Trades)
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})

	xValues := make([]time.Time, len(trades))
	yValues := make([]float64, len(trades))
	cumulative := 0.0
	for i, t := range trades {
		cumulative += t.TradePnL
		xValues[i] = t.Timestamp
		yValues[i] = cumulative
	}

	title := "Cumulative P&L"
	if report.UserName != "" {
		title = report.UserName + " Cumulative P&L"
	}

	pnlSeries := chart.TimeSeries{
		Name: "Cumulative P&L",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("16a34a"), // green-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	zeroSeries := chart.TimeSeries{
		Name: "Break Even",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.0,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: []time.Time{xValues[0], xValues[len(xValues)-1]},
		YValues: []float64{0, 0},
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			pnlSeries,
			zeroSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
