package indicators

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func makeSeries(t *testing.T, closes ...float64) domain.PriceSeries {
	t.Helper()
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{
			Time:  baseTime.Add(time.Duration(i) * 5 * time.Minute),
			Close: decimal.NewFromFloat(c),
		}
	}
	series, err := domain.NewPriceSeries("BTC-USD", points)
	require.NoError(t, err)
	return series
}

func TestComputeRSI_InsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		window int
	}{
		{name: "empty series", closes: nil, window: 14},
		{name: "exactly window points", closes: []float64{1, 2, 3}, window: 3},
		{name: "single point", closes: []float64{100}, window: 1},
		{name: "zero window", closes: []float64{1, 2, 3}, window: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ComputeRSI(makeSeries(t, tt.closes...), tt.window)
			assert.False(t, ok)
		})
	}
}

func TestComputeRSI_KnownValue(t *testing.T) {
	series := makeSeries(t, 10, 13, 12)

	snapshot, ok := ComputeRSI(series, 2)
	require.True(t, ok)

	assert.True(t, decimal.NewFromFloat(1.5).Equal(snapshot.AverageGain), snapshot.AverageGain.String())
	assert.True(t, decimal.NewFromFloat(0.5).Equal(snapshot.AverageLoss), snapshot.AverageLoss.String())
	assert.True(t, decimal.NewFromInt(75).Equal(snapshot.RSI), snapshot.RSI.String())
	assert.Equal(t, 2, snapshot.Window)
	assert.Equal(t, series.Points[2].Time, snapshot.At)
}

func TestComputeRSI_UsesTrailingWindowOnly(t *testing.T) {
	// the early crash falls outside the window of the last two steps
	series := makeSeries(t, 100, 50, 60, 70)

	snapshot, ok := ComputeRSI(series, 2)
	require.True(t, ok)
	assert.True(t, hundred.Equal(snapshot.RSI), snapshot.RSI.String())
}

func TestComputeRSI_Saturation(t *testing.T) {
	snapshot, ok := ComputeRSI(makeSeries(t, 1, 2, 3, 4, 5, 6), 5)
	require.True(t, ok)
	assert.True(t, hundred.Equal(snapshot.RSI))
	assert.True(t, snapshot.AverageLoss.IsZero())

	snapshot, ok = ComputeRSI(makeSeries(t, 6, 5, 4, 3, 2, 1), 5)
	require.True(t, ok)
	assert.True(t, snapshot.RSI.IsZero())
}

func TestComputeRSI_FlatSeriesHasNoSignal(t *testing.T) {
	_, ok := ComputeRSI(makeSeries(t, 42, 42, 42, 42, 42), 3)
	assert.False(t, ok)
}

func TestComputeRSI_RangeAndDeterminism(t *testing.T) {
	closes := []float64{44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84, 46.08,
		45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41, 46.22, 45.64}
	series := makeSeries(t, closes...)

	first, ok := ComputeRSI(series, DefaultWindow)
	require.True(t, ok)
	second, ok := ComputeRSI(series, DefaultWindow)
	require.True(t, ok)

	assert.Equal(t, first.RSI.String(), second.RSI.String())
	assert.False(t, first.RSI.IsNegative())
	assert.False(t, first.RSI.GreaterThan(hundred))
	// input is left untouched
	assert.Equal(t, len(closes), series.Len())
	assert.True(t, decimal.NewFromFloat(44.34).Equal(series.Points[0].Close))
}

func TestClassify(t *testing.T) {
	strategy := DefaultStrategy()

	tests := []struct {
		rsi  int64
		want domain.Signal
	}{
		{rsi: 0, want: domain.SignalBuy},
		{rsi: 29, want: domain.SignalBuy},
		{rsi: 30, want: domain.SignalHold},
		{rsi: 50, want: domain.SignalHold},
		{rsi: 70, want: domain.SignalHold},
		{rsi: 71, want: domain.SignalSell},
		{rsi: 100, want: domain.SignalSell},
	}

	for _, tt := range tests {
		got := Classify(domain.IndicatorSnapshot{RSI: decimal.NewFromInt(tt.rsi)}, strategy)
		assert.Equal(t, tt.want, got, "rsi %d", tt.rsi)
	}
}

func TestStrategyValidate(t *testing.T) {
	require.NoError(t, DefaultStrategy().Validate())

	bad := []Strategy{
		{BuyBelow: decimal.NewFromInt(-1), SellAbove: decimal.NewFromInt(70)},
		{BuyBelow: decimal.NewFromInt(30), SellAbove: decimal.NewFromInt(101)},
		{BuyBelow: decimal.NewFromInt(80), SellAbove: decimal.NewFromInt(20)},
	}
	for _, s := range bad {
		assert.Error(t, s.Validate())
	}
}
