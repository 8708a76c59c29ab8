package market

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

const binanceName = "binance"

// BinanceSource reads public spot market data from Binance. No API keys are needed.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource creates a Binance source. Empty baseURL selects the public endpoint.
func NewBinanceSource(baseURL string) *BinanceSource {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceSource{client: client}
}

func (s *BinanceSource) Name() string { return binanceName }

// Quote returns the last traded price of the pair.
func (s *BinanceSource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := ExchangeSymbol(symbol)

	prices, err := s.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, binanceError(err, "binance price %s", pair)
	}
	for _, p := range prices {
		if p.Symbol == pair {
			return parsePrice(p.Price, binanceName, symbol)
		}
	}

	return decimal.Zero, domain.QuoteUnavailableError(nil, "binance returned no price for %s", pair)
}

// Series returns kline closes covering period at interval.
func (s *BinanceSource) Series(ctx context.Context, symbol, period, interval string) (domain.PriceSeries, error) {
	limit, _, err := candleLimit(period, interval)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	pair := ExchangeSymbol(symbol)

	klines, err := s.client.NewKlinesService().
		Symbol(pair).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return domain.PriceSeries{}, binanceError(err, "binance klines %s", pair)
	}

	points := make([]domain.PricePoint, 0, len(klines))
	for i, k := range klines {
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return domain.PriceSeries{}, domain.QuoteUnavailableError(err, "parse close price at index %d", i)
		}
		points = append(points, domain.PricePoint{Time: msToTime(k.CloseTime), Close: closePrice})
	}

	return buildSeries(symbol, binanceName, points)
}

// binanceError maps API rejections (unknown symbol, bad interval) to unavailable quotes
// and everything else to network failures.
func binanceError(err error, format string, args ...any) error {
	if common.IsAPIError(err) {
		return domain.QuoteUnavailableError(err, format, args...)
	}
	return domain.NetworkError(err, format, args...)
}
