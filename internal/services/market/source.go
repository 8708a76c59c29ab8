// Package market fetches quotes and closing-price series from market-data providers.
package market

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

// maxCandles upper bound of candles requested from exchanges in one call.
const maxCandles = 1000

// Source market-data provider.
// Failures wrap domain.ErrQuoteUnavailable when the provider has no data for the symbol
// and domain.ErrNetwork when the provider could not be reached.
type Source interface {
	Name() string
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
	Series(ctx context.Context, symbol, period, interval string) (domain.PriceSeries, error)
}

// ParseSpan parses spans such as "5m", "1h", "7d", "2w", "3mo" or "1y".
func ParseSpan(span string) (time.Duration, error) {
	span = strings.ToLower(strings.TrimSpace(span))

	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"mo", 30 * 24 * time.Hour},
		{"m", time.Minute},
		{"h", time.Hour},
		{"d", 24 * time.Hour},
		{"wk", 7 * 24 * time.Hour},
		{"w", 7 * 24 * time.Hour},
		{"y", 365 * 24 * time.Hour},
	}

	for _, u := range units {
		if !strings.HasSuffix(span, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(span, u.suffix))
		if err != nil || n <= 0 {
			return 0, errors.Errorf("invalid span %q", span)
		}
		return time.Duration(n) * u.unit, nil
	}

	return 0, errors.Errorf("unsupported span unit in %q", span)
}

// candleLimit number of candles of interval covering period, capped at maxCandles.
func candleLimit(period, interval string) (int, time.Duration, error) {
	p, err := ParseSpan(period)
	if err != nil {
		return 0, 0, errors.Wrap(err, "period")
	}
	i, err := ParseSpan(interval)
	if err != nil {
		return 0, 0, errors.Wrap(err, "interval")
	}
	if i > p {
		return 0, 0, errors.Errorf("interval %s is longer than period %s", interval, period)
	}

	limit := int((p + i - 1) / i)
	if limit > maxCandles {
		limit = maxCandles
	}
	return limit, i, nil
}

// ExchangeSymbol converts a ticker such as BTC-USD or btc/usdt into an exchange pair symbol (BTCUSDT).
// USD quotes are mapped to USDT.
func ExchangeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	if strings.HasSuffix(s, "USD") {
		s += "T"
	}
	return s
}

// BaseCoin extracts the base asset from a ticker: BTC-USD, BTCUSDT and BTC all give BTC.
func BaseCoin(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexAny(s, "-/_"); i > 0 {
		return s[:i]
	}
	for _, quote := range []string{"USDT", "USDC", "USD"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}

func parsePrice(raw, provider, symbol string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.QuoteUnavailableError(err, "%s returned malformed price for %s", provider, symbol)
	}
	if !price.IsPositive() {
		return decimal.Zero, domain.QuoteUnavailableError(nil, "%s returned price %s for %s", provider, raw, symbol)
	}
	return price, nil
}

// buildSeries orders points by time, drops duplicates and validates the result.
func buildSeries(symbol, provider string, points []domain.PricePoint) (domain.PriceSeries, error) {
	if len(points) == 0 {
		return domain.PriceSeries{}, domain.QuoteUnavailableError(nil, "%s returned no history for %s", provider, symbol)
	}

	sortPoints(points)
	deduped := points[:1]
	for _, p := range points[1:] {
		if p.Time.After(deduped[len(deduped)-1].Time) {
			deduped = append(deduped, p)
		}
	}

	series, err := domain.NewPriceSeries(symbol, deduped)
	if err != nil {
		return domain.PriceSeries{}, domain.QuoteUnavailableError(err, "%s returned invalid history for %s", provider, symbol)
	}
	return series, nil
}

func sortPoints(points []domain.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
