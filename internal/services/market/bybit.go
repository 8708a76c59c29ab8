package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

const bybitName = "bybit"

// BybitSource reads public spot market data from Bybit V5.
type BybitSource struct {
	client *bybit.Client
}

// NewBybitSource creates a Bybit source. Empty baseURL selects the public endpoint.
func NewBybitSource(baseURL string) *BybitSource {
	client := bybit.NewClient()
	if baseURL != "" {
		client = client.WithBaseURL(baseURL)
	}
	return &BybitSource{client: client}
}

func (s *BybitSource) Name() string { return bybitName }

// Quote returns the last traded price from the spot ticker.
func (s *BybitSource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	pair := bybit.SymbolV5(ExchangeSymbol(symbol))

	result, err := s.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &pair,
	})
	if err != nil {
		return decimal.Zero, domain.NetworkError(err, "bybit tickers %s", pair)
	}
	if result == nil || result.Result.Spot == nil || len(result.Result.Spot.List) == 0 {
		return decimal.Zero, domain.QuoteUnavailableError(nil, "bybit returned no ticker for %s", pair)
	}

	return parsePrice(result.Result.Spot.List[0].LastPrice, bybitName, symbol)
}

// Series returns kline closes covering period at interval. Bybit lists newest first.
func (s *BybitSource) Series(ctx context.Context, symbol, period, interval string) (domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceSeries{}, err
	}
	limit, step, err := candleLimit(period, interval)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return domain.PriceSeries{}, errors.Wrapf(err, "invalid interval: %s", interval)
	}
	pair := bybit.SymbolV5(ExchangeSymbol(symbol))

	result, err := s.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   pair,
		Interval: bybit.Interval(bybitInterval),
		Limit:    &limit,
	})
	if err != nil {
		return domain.PriceSeries{}, domain.NetworkError(err, "bybit klines %s", pair)
	}
	if result == nil {
		return domain.PriceSeries{}, domain.QuoteUnavailableError(nil, "empty result from bybit for %s", pair)
	}

	points := make([]domain.PricePoint, 0, len(result.Result.List))
	for i, k := range result.Result.List {
		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return domain.PriceSeries{}, domain.QuoteUnavailableError(err, "start time at index %d", i)
		}
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return domain.PriceSeries{}, domain.QuoteUnavailableError(err, "close price at index %d", i)
		}
		points = append(points, domain.PricePoint{Time: openTime.Add(step), Close: closePrice})
	}

	return buildSeries(symbol, bybitName, points)
}

// convertIntervalToBybit converts "1m", "5m", "1h", "4h", "1d", "1w" to Bybit's "1", "5", "60", "240", "D", "W".
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid interval number: %s", interval)
	}

	switch unit {
	case 'm':
		return strconv.Itoa(n), nil
	case 'h':
		return strconv.Itoa(n * 60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// parseTimestamp converts a millisecond timestamp string to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}
	return msToTime(ms), nil
}
