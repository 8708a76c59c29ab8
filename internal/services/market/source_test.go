package market

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

func TestParseSpan(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "5m", expected: 5 * time.Minute},
		{input: "1h", expected: time.Hour},
		{input: "7d", expected: 7 * 24 * time.Hour},
		{input: "1wk", expected: 7 * 24 * time.Hour},
		{input: "2w", expected: 14 * 24 * time.Hour},
		{input: "3mo", expected: 90 * 24 * time.Hour},
		{input: "1y", expected: 365 * 24 * time.Hour},
		{input: "", wantErr: true},
		{input: "m", wantErr: true},
		{input: "0d", wantErr: true},
		{input: "5x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSpan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCandleLimit(t *testing.T) {
	limit, step, err := candleLimit("1d", "1h")
	require.NoError(t, err)
	assert.Equal(t, 24, limit)
	assert.Equal(t, time.Hour, step)

	limit, _, err = candleLimit("7d", "5m")
	require.NoError(t, err)
	assert.Equal(t, maxCandles, limit)

	_, _, err = candleLimit("1h", "1d")
	assert.Error(t, err)
}

func TestExchangeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ExchangeSymbol("BTC-USD"))
	assert.Equal(t, "BTCUSDT", ExchangeSymbol("btc/usdt"))
	assert.Equal(t, "ETHBTC", ExchangeSymbol("ETH-BTC"))
	assert.Equal(t, "SOLUSDT", ExchangeSymbol(" SOLUSDT "))
}

func TestBaseCoin(t *testing.T) {
	assert.Equal(t, "BTC", BaseCoin("BTC-USD"))
	assert.Equal(t, "BTC", BaseCoin("BTCUSDT"))
	assert.Equal(t, "ETH", BaseCoin("eth"))
	assert.Equal(t, "SOL", BaseCoin("SOL/USDC"))
	assert.Equal(t, "USD", BaseCoin("USD"))
}

func TestAliasesResolve(t *testing.T) {
	aliases := Aliases{"btc": "BTC-USD", "SPX": "^GSPC"}

	got, err := aliases.Resolve(" Btc ")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", got)

	got, err = aliases.Resolve("spx")
	require.NoError(t, err)
	assert.Equal(t, "^GSPC", got)

	got, err = aliases.Resolve("aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got)

	_, err = aliases.Resolve("rm -rf")
	assert.True(t, errors.Is(err, domain.ErrInvalidSymbol))
}

func TestAliasesResolveAll(t *testing.T) {
	aliases := Aliases{"btc": "BTC-USD"}

	got, err := aliases.ResolveAll([]string{"btc", "eth-usd", "BTC-USD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, got)

	_, err = aliases.ResolveAll([]string{"btc", "bad symbol"})
	assert.True(t, errors.Is(err, domain.ErrInvalidSymbol))
}

func TestBuildSeries(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	points := []domain.PricePoint{
		{Time: base.Add(2 * time.Minute), Close: d("3")},
		{Time: base, Close: d("1")},
		{Time: base.Add(time.Minute), Close: d("2")},
		{Time: base.Add(time.Minute), Close: d("2")},
	}

	series, err := buildSeries("BTC-USD", "test", points)
	require.NoError(t, err)
	require.Equal(t, 3, series.Len())
	assert.True(t, d("1").Equal(series.Points[0].Close))
	assert.True(t, d("3").Equal(series.Points[2].Close))

	_, err = buildSeries("BTC-USD", "test", nil)
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
}
