// Package chart renders price and RSI charts as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/internal/services/indicators"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultWidth  = 1024
	defaultHeight = 512
)

var (
	priceColor     = drawing.ColorFromHex("2962ff")
	emaColor       = drawing.ColorFromHex("ff9800")
	rsiColor       = drawing.ColorFromHex("9c27b0")
	thresholdColor = drawing.ColorFromHex("9e9e9e")
)

// Input data for one chart.
type Input struct {
	Series   domain.PriceSeries
	EMA      []indicators.SeriesPoint
	RSI      []indicators.SeriesPoint
	Strategy indicators.Strategy
}

// Renderer draws charts of a fixed size.
type Renderer struct {
	width  int
	height int
}

// NewRenderer creates a renderer. Non-positive sizes fall back to 1024x512.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Renderer{width: width, height: height}
}

// Render draws closes with the EMA overlay on the left axis and RSI with its thresholds on the right one.
func (r *Renderer) Render(in Input) ([]byte, error) {
	if in.Series.Len() < 2 {
		return nil, errors.Wrapf(domain.ErrInsufficientHistory, "chart needs at least 2 points, got %d", in.Series.Len())
	}

	times := make([]time.Time, in.Series.Len())
	closes := make([]float64, in.Series.Len())
	for i, p := range in.Series.Points {
		times[i] = p.Time
		closes[i] = p.Close.InexactFloat64()
	}

	series := []gochart.Series{
		gochart.TimeSeries{
			Name:    in.Series.Symbol,
			XValues: times,
			YValues: closes,
			Style:   gochart.Style{StrokeColor: priceColor, StrokeWidth: 2},
		},
	}

	if len(in.EMA) >= 2 {
		x, y := split(in.EMA)
		series = append(series, gochart.TimeSeries{
			Name:    "EMA",
			XValues: x,
			YValues: y,
			Style:   gochart.Style{StrokeColor: emaColor, StrokeWidth: 1.5},
		})
	}

	if len(in.RSI) >= 2 {
		x, y := split(in.RSI)
		series = append(series, gochart.TimeSeries{
			Name:    "RSI",
			XValues: x,
			YValues: y,
			YAxis:   gochart.YAxisSecondary,
			Style:   gochart.Style{StrokeColor: rsiColor, StrokeWidth: 1},
		})
		series = append(series,
			threshold("buy below", times, in.Strategy.BuyBelow.InexactFloat64()),
			threshold("sell above", times, in.Strategy.SellAbove.InexactFloat64()),
		)
	}

	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s close, %s to %s", in.Series.Symbol, times[0].Format("Jan 02 15:04"), times[len(times)-1].Format("Jan 02 15:04")),
		Width:  r.width,
		Height: r.height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: timeFormatter(times),
		},
		YAxis: gochart.YAxis{
			Name: "Price",
		},
		YAxisSecondary: gochart.YAxis{
			Name:  "RSI",
			Range: &gochart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "render chart")
	}

	return buf.Bytes(), nil
}

func threshold(name string, times []time.Time, level float64) gochart.TimeSeries {
	y := make([]float64, len(times))
	for i := range y {
		y[i] = level
	}
	return gochart.TimeSeries{
		Name:    name,
		XValues: times,
		YValues: y,
		YAxis:   gochart.YAxisSecondary,
		Style:   gochart.Style{StrokeColor: thresholdColor, StrokeWidth: 1, StrokeDashArray: []float64{4, 4}},
	}
}

func split(points []indicators.SeriesPoint) ([]time.Time, []float64) {
	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.Time
		y[i] = p.Value
	}
	return x, y
}

// timeFormatter picks tick labels by the covered span.
func timeFormatter(times []time.Time) gochart.ValueFormatter {
	span := times[len(times)-1].Sub(times[0])
	switch {
	case span <= 24*time.Hour:
		return gochart.TimeValueFormatterWithFormat("15:04")
	case span <= 14*24*time.Hour:
		return gochart.TimeValueFormatterWithFormat("01-02 15:04")
	default:
		return gochart.TimeValueFormatterWithFormat("2006-01-02")
	}
}
