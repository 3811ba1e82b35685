package valuation

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/valorafin/valora/models"
)

// RenderValuationChart renders a PNG line chart of the daily valuation
// series. Returns raw PNG bytes.
func RenderValuationChart(series *models.ValuationSeries) ([]byte, error) {
	if series == nil || len(series.Points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points")
	}

	xValues := make([]time.Time, len(series.Points))
	yValues := make([]float64, len(series.Points))
	for i, p := range series.Points {
		xValues[i] = p.Date
		yValues[i] = p.MarketValue
	}

	valueSeries := chart.TimeSeries{
		Name: "Portfolio Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  "Portfolio Value (" + series.BaseCurrency + ")",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{valueSeries},
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

// RenderTargetIndexChart renders the blended target index together with each
// asset's indexed series. Returns raw PNG bytes.
func RenderTargetIndexChart(result *models.TargetIndexResult) ([]byte, error) {
	if result == nil || len(result.Points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points")
	}

	// muted palette for per-asset series; the blend stays prominent
	palette := []string{"9ca3af", "f59e0b", "10b981", "8b5cf6", "ef4444", "0ea5e9"}

	var series []chart.Series
	for i, asset := range result.Assets {
		if len(asset.Points) < 2 {
			continue
		}
		xs := make([]time.Time, len(asset.Points))
		ys := make([]float64, len(asset.Points))
		for j, p := range asset.Points {
			xs[j] = p.Date
			ys[j] = p.Value
		}
		series = append(series, chart.TimeSeries{
			Name: asset.Symbol,
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex(palette[i%len(palette)]),
				StrokeWidth:     1.0,
				StrokeDashArray: []float64{4.0, 3.0},
			},
			XValues: xs,
			YValues: ys,
		})
	}

	xs := make([]time.Time, len(result.Points))
	ys := make([]float64, len(result.Points))
	for i, p := range result.Points {
		xs[i] = p.Date
		ys[i] = p.Value
	}
	series = append(series, chart.TimeSeries{
		Name: "Target Index",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.5,
		},
		XValues: xs,
		YValues: ys,
	})

	graph := chart.Chart{
		Title:  "Target Allocation Index (100 = baseline)",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: series,
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
