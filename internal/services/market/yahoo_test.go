package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const yahooChartBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "BTC-USD", "regularMarketPrice": 64000.5},
      "timestamp": [1700000600, 1700000000, 1700000300, 1700000900],
      "indicators": {"quote": [{"close": [64100.25, 63900, null, 64000.5]}]}
    }],
    "error": null
  }
}`

func TestYahooSource_Series(t *testing.T) {
	var gotPath, gotRange, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		_, _ = w.Write([]byte(yahooChartBody))
	}))
	defer srv.Close()

	source := NewYahooSource(srv.Client(), srv.URL)
	series, err := source.Series(context.Background(), "BTC-USD", "7d", "5m")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BTC-USD", gotPath)
	assert.Equal(t, "7d", gotRange)
	assert.Equal(t, "5m", gotInterval)

	require.Equal(t, 3, series.Len())
	assert.Equal(t, "BTC-USD", series.Symbol)
	assert.True(t, d("63900").Equal(series.Points[0].Close))
	assert.True(t, d("64100.25").Equal(series.Points[1].Close))
	assert.True(t, d("64000.5").Equal(series.Points[2].Close))
	assert.True(t, series.Points[0].Time.Before(series.Points[1].Time))
}

func TestYahooSource_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(yahooChartBody))
	}))
	defer srv.Close()

	price, err := NewYahooSource(srv.Client(), srv.URL).Quote(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.True(t, d("64000.5").Equal(price), price.String())
}

func TestYahooSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{}`, want: domain.ErrQuoteUnavailable},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, want: domain.ErrNetwork},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``, want: domain.ErrNetwork},
		{
			name:   "api error",
			status: http.StatusOK,
			body:   `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`,
			want:   domain.ErrQuoteUnavailable,
		},
		{
			name:   "only nulls",
			status: http.StatusOK,
			body:   `{"chart":{"result":[{"meta":{},"timestamp":[1,2],"indicators":{"quote":[{"close":[null,null]}]}}]}}`,
			want:   domain.ErrQuoteUnavailable,
		},
		{name: "garbage", status: http.StatusOK, body: `<html>`, want: domain.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewYahooSource(srv.Client(), srv.URL).Series(context.Background(), "NOPE", "1d", "5m")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}

func TestYahooSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewYahooSource(nil, url).Quote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}
