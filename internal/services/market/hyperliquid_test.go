package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

func newHyperliquidServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/info" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req struct {
			Type string `json:"type"`
			Req  struct {
				Coin     string `json:"coin"`
				Interval string `json:"interval"`
			} `json:"req"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		switch req.Type {
		case "meta":
			_, _ = w.Write([]byte(`{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":50}]}`))
		case "spotMeta":
			_, _ = w.Write([]byte(`{"universe":[],"tokens":[]}`))
		case "allMids":
			_, _ = w.Write([]byte(`{"BTC":"64000.5","ETH":"3100.25"}`))
		case "candleSnapshot":
			assert.Equal(t, "BTC", req.Req.Coin)
			assert.Equal(t, "1h", req.Req.Interval)
			// out of order on purpose
			_, _ = w.Write([]byte(`[
				{"t":1700003600000,"T":1700007199999,"s":"BTC","i":"1h","o":"105.5","c":"108.25","h":"111.0","l":"101.0","v":"10.0","n":10},
				{"t":1700000000000,"T":1700003599999,"s":"BTC","i":"1h","o":"100.0","c":"105.5","h":"110.0","l":"90.0","v":"12.0","n":12}
			]`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
}

func TestHyperliquidSource(t *testing.T) {
	srv := newHyperliquidServer(t)
	defer srv.Close()

	src, err := NewHyperliquidSource(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hyperliquid", src.Name())

	price, err := src.Quote(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.True(t, d("64000.5").Equal(price))

	_, err = src.Quote(context.Background(), "DOGE-USD")
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))

	series, err := src.Series(context.Background(), "BTC-USD", "2h", "1h")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, "BTC-USD", series.Symbol)
	assert.True(t, d("105.5").Equal(series.Points[0].Close))
	assert.True(t, d("108.25").Equal(series.Points[1].Close))
	assert.Equal(t, time.UnixMilli(1700007199999).UTC(), series.Points[1].Time.UTC())
}

func TestCandlePoints(t *testing.T) {
	points, err := candlePoints([]hyperliquid.Candle{
		{TimeClose: 1700003599999, Close: "105.5"},
		{TimeClose: 1700007199999, Close: "108.25"},
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, d("108.25").Equal(points[1].Close))
	assert.Equal(t, int64(1700003599999), points[0].Time.UnixMilli())

	_, err = candlePoints([]hyperliquid.Candle{{TimeClose: 1, Close: "n/a"}})
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
}
