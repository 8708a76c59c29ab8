package indicators

import (
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

// SeriesPoint indicator value at a point of the source series.
type SeriesPoint struct {
	Time  time.Time
	Value float64
}

// RSISeries returns RSI for every point that has a full window behind it.
// Points without any movement inside their window are omitted. Float precision, for charts only.
func RSISeries(series domain.PriceSeries, window int) []SeriesPoint {
	if window < 1 || series.Len() < window+1 {
		return nil
	}

	closes := closesFloat(series)
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGains := sma(gains, window)
	avgLosses := sma(losses, window)

	count := min(len(avgGains), len(avgLosses))
	// averages are aligned to the tail of the series
	offset := len(series.Points) - count
	points := make([]SeriesPoint, 0, count)
	for i := 0; i < count; i++ {
		g := avgGains[len(avgGains)-count+i]
		l := avgLosses[len(avgLosses)-count+i]

		var value float64
		switch {
		case l == 0 && g == 0:
			continue
		case l == 0:
			value = 100
		default:
			value = 100 * g / (g + l)
		}

		points = append(points, SeriesPoint{Time: series.Points[offset+i].Time, Value: value})
	}

	return points
}

// EMASeries returns the exponential moving average of closes aligned to the series tail.
func EMASeries(series domain.PriceSeries, period int) []SeriesPoint {
	if period < 1 || series.Len() < period {
		return nil
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	values := helper.ChanToSlice(ema.Compute(helper.SliceToChan(closesFloat(series))))

	offset := len(series.Points) - len(values)
	points := make([]SeriesPoint, len(values))
	for i, v := range values {
		points[i] = SeriesPoint{Time: series.Points[offset+i].Time, Value: v}
	}

	return points
}

func sma(values []float64, period int) []float64 {
	s := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(s.Compute(helper.SliceToChan(values)))
}

func closesFloat(series domain.PriceSeries) []float64 {
	result := make([]float64, len(series.Points))
	for i, p := range series.Points {
		result[i] = p.Close.InexactFloat64()
	}
	return result
}
