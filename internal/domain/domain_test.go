package domain

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: " btc-usd ", want: "BTC-USD"},
		{raw: "BTCUSDT", want: "BTCUSDT"},
		{raw: "^gspc", want: "^GSPC"},
		{raw: "eurusd=x", want: "EURUSD=X"},
		{raw: "brk.b", want: "BRK.B"},
		{raw: "", wantErr: true},
		{raw: "BTC USD", wantErr: true},
		{raw: "BTC/USD", wantErr: true},
		{raw: "ABCDEFGHIJKLMNOPQRSTU", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeSymbol(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSymbol)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPriceSeries(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := func(offset int, close int64) PricePoint {
		return PricePoint{Time: t0.Add(time.Duration(offset) * time.Minute), Close: decimal.NewFromInt(close)}
	}

	series, err := NewPriceSeries("BTC-USD", []PricePoint{p(0, 10), p(5, 11), p(10, 12)})
	require.NoError(t, err)
	assert.Equal(t, 3, series.Len())
	latest, ok := series.Latest()
	require.True(t, ok)
	assert.True(t, latest.Close.Equal(decimal.NewFromInt(12)))
	assert.Len(t, series.Closes(), 3)

	_, err = NewPriceSeries("BTC-USD", []PricePoint{p(0, 10), p(0, 11)})
	assert.Error(t, err)
	_, err = NewPriceSeries("BTC-USD", []PricePoint{p(5, 10), p(0, 11)})
	assert.Error(t, err)
	_, err = NewPriceSeries("BTC-USD", []PricePoint{p(0, 0)})
	assert.Error(t, err)

	empty, err := NewPriceSeries("BTC-USD", nil)
	require.NoError(t, err)
	_, ok = empty.Latest()
	assert.False(t, ok)
}

func TestKindErrors(t *testing.T) {
	cause := errors.New("connection reset")

	err := NetworkError(cause, "fetch %s", "BTC-USD")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrQuoteUnavailable)
	assert.Equal(t, "fetch BTC-USD: network error: connection reset", err.Error())

	err = QuoteUnavailableError(nil, "no data for %s", "XYZ")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
	assert.Equal(t, "no data for XYZ: quote unavailable", err.Error())

	wrapped := errors.Wrap(err, "summary")
	assert.ErrorIs(t, wrapped, ErrQuoteUnavailable)
}

func TestTradeRecordString(t *testing.T) {
	rec := TradeRecord{
		Side:      SideSell,
		Symbol:    "BTC-USD",
		Quantity:  decimal.RequireFromString("0.5"),
		UnitPrice: decimal.NewFromInt(60000),
		Notional:  decimal.NewFromInt(30000),
	}
	assert.Equal(t, "SELL 0.5 BTC-USD @ 60000 (30000.00)", rec.String())
	assert.Equal(t, "BUY", SideBuy.String())
}

func TestCheckAmount(t *testing.T) {
	ok := []string{"1", "0.001", "999999999999999", "0.000000000000000000000001", "1.500", "-3"}
	for _, raw := range ok {
		assert.NoError(t, CheckAmount(ErrInvalidQuantity, "amount", decimal.RequireFromString(raw)), raw)
	}

	bad := []string{"1000000000000000", "1e15", "1e50000000", "1e-25", "1e-50000000"}
	for _, raw := range bad {
		err := CheckAmount(ErrInvalidPrice, "price", decimal.RequireFromString(raw))
		assert.ErrorIs(t, err, ErrInvalidPrice, raw)
		assert.Less(t, len(err.Error()), 200)
	}
}
