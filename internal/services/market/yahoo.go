package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

const (
	yahooName    = "yahoo"
	yahooBaseURL = "https://query1.finance.yahoo.com"
)

// YahooSource reads the Yahoo Finance chart API. Works for stocks, indices, FX and crypto tickers (BTC-USD).
type YahooSource struct {
	client  *http.Client
	baseURL string
}

// NewYahooSource creates a Yahoo source. Empty baseURL selects the public endpoint.
func NewYahooSource(client *http.Client, baseURL string) *YahooSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	return &YahooSource{client: client, baseURL: baseURL}
}

func (s *YahooSource) Name() string { return yahooName }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote returns the regular market price, falling back to the latest one-minute close.
func (s *YahooSource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	chart, err := s.fetchChart(ctx, symbol, "1d", "1m")
	if err != nil {
		return decimal.Zero, err
	}

	result := chart.Chart.Result[0]
	if p := result.Meta.RegularMarketPrice; p != nil && *p > 0 {
		return decimal.NewFromFloat(*p), nil
	}

	points := yahooPoints(chart)
	if len(points) == 0 {
		return decimal.Zero, domain.QuoteUnavailableError(nil, "yahoo returned no price for %s", symbol)
	}
	sortPoints(points)
	return points[len(points)-1].Close, nil
}

// Series returns closing prices for period sampled at interval.
func (s *YahooSource) Series(ctx context.Context, symbol, period, interval string) (domain.PriceSeries, error) {
	chart, err := s.fetchChart(ctx, symbol, period, interval)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return buildSeries(symbol, yahooName, yahooPoints(chart))
}

func (s *YahooSource) fetchChart(ctx context.Context, symbol, period, interval string) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		s.baseURL, url.PathEscape(symbol), url.QueryEscape(interval), url.QueryEscape(period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build yahoo request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NetworkError(err, "yahoo fetch %s", symbol)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NetworkError(err, "yahoo read body for %s", symbol)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.QuoteUnavailableError(nil, "yahoo has no data for %s", symbol)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, domain.NetworkError(nil, "yahoo status %d for %s", resp.StatusCode, symbol)
	case resp.StatusCode != http.StatusOK:
		return nil, domain.QuoteUnavailableError(nil, "yahoo status %d for %s: %s", resp.StatusCode, symbol, truncate(body, 200))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, domain.NetworkError(err, "yahoo decode %s", symbol)
	}
	if chart.Chart.Error != nil {
		return nil, domain.QuoteUnavailableError(nil, "yahoo api error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, domain.QuoteUnavailableError(nil, "yahoo returned no result for %s", symbol)
	}

	return &chart, nil
}

// yahooPoints zips timestamps with closes, skipping null and non-positive bars.
func yahooPoints(chart *yahooChart) []domain.PricePoint {
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	closes := result.Indicators.Quote[0].Close

	points := make([]domain.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{
			Time:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*closes[i]),
		})
	}
	return points
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
