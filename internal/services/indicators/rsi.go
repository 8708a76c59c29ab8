// Package indicators computes RSI snapshots and trading signals over price series.
package indicators

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

// DefaultWindow classic RSI lookback.
const DefaultWindow = 14

var hundred = decimal.NewFromInt(100)

// ComputeRSI returns the RSI snapshot for the latest point of the series.
// Gains and losses are averaged with a simple moving average over the trailing window.
// The second result is false when the series is shorter than window+1 points
// or when there was no price movement at all inside the window.
func ComputeRSI(series domain.PriceSeries, window int) (domain.IndicatorSnapshot, bool) {
	if window < 1 || series.Len() < window+1 {
		return domain.IndicatorSnapshot{}, false
	}

	points := series.Points
	start := len(points) - window

	gainSum := decimal.Zero
	lossSum := decimal.Zero
	for i := start; i < len(points); i++ {
		delta := points[i].Close.Sub(points[i-1].Close)
		switch delta.Sign() {
		case 1:
			gainSum = gainSum.Add(delta)
		case -1:
			lossSum = lossSum.Add(delta.Neg())
		}
	}

	n := decimal.NewFromInt(int64(window))
	avgGain := gainSum.Div(n)
	avgLoss := lossSum.Div(n)

	rsi, ok := rsiFromAverages(avgGain, avgLoss)
	if !ok {
		return domain.IndicatorSnapshot{}, false
	}

	return domain.IndicatorSnapshot{
		Window:      window,
		AverageGain: avgGain,
		AverageLoss: avgLoss,
		RSI:         rsi,
		At:          points[len(points)-1].Time,
	}, true
}

// rsiFromAverages maps averages to RSI. Only gains saturates at 100, no movement yields nothing.
func rsiFromAverages(avgGain, avgLoss decimal.Decimal) (decimal.Decimal, bool) {
	if avgLoss.IsZero() {
		if avgGain.IsZero() {
			return decimal.Zero, false
		}
		return hundred, true
	}

	if avgGain.IsZero() {
		return decimal.Zero, true
	}

	// 100 - 100/(1+rs) == 100*gain/(gain+loss), avoids dividing twice
	rsi := hundred.Mul(avgGain).Div(avgGain.Add(avgLoss))

	return clamp(rsi), true
}

func clamp(v decimal.Decimal) decimal.Decimal {
	if v.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if v.GreaterThan(hundred) {
		return hundred
	}
	return v
}
