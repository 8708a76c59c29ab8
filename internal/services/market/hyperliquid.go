package market

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

const (
	hyperliquidName    = "hyperliquid"
	hyperliquidBaseURL = "https://api.hyperliquid.xyz"
)

// HyperliquidSource reads mid prices and candles from the Hyperliquid public Info API.
// Symbols are reduced to the base coin (BTC-USD -> BTC).
type HyperliquidSource struct {
	info *hyperliquid.Info
}

// NewHyperliquidSource creates a Hyperliquid source. The SDK requires a signer even for
// read-only calls, so a throwaway key is generated and never funded.
func NewHyperliquidSource(ctx context.Context, baseURL string) (*HyperliquidSource, error) {
	if baseURL == "" {
		baseURL = hyperliquidBaseURL
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate hyperliquid signer")
	}
	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("error casting public key to ECDSA")
	}
	accountAddr := crypto.PubkeyToAddress(*pub).Hex()

	ex := hyperliquid.NewExchange(ctx, privateKey, baseURL, nil, "", accountAddr, nil)

	return &HyperliquidSource{info: ex.Info()}, nil
}

func (s *HyperliquidSource) Name() string { return hyperliquidName }

// Quote returns the current mid price of the coin.
func (s *HyperliquidSource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	coin := BaseCoin(symbol)

	mids, err := s.info.AllMids(ctx)
	if err != nil {
		return decimal.Zero, domain.NetworkError(err, "hyperliquid mids")
	}

	mid, ok := mids[coin]
	if !ok || mid == "" {
		return decimal.Zero, domain.QuoteUnavailableError(nil, "hyperliquid has no mid price for %s", coin)
	}
	return parsePrice(mid, hyperliquidName, symbol)
}

// Series returns candle closes over the last period.
func (s *HyperliquidSource) Series(ctx context.Context, symbol, period, interval string) (domain.PriceSeries, error) {
	limit, step, err := candleLimit(period, interval)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	coin := BaseCoin(symbol)

	endMs := time.Now().UnixMilli()
	startMs := endMs - int64(limit)*step.Milliseconds()

	candles, err := s.info.CandlesSnapshot(ctx, coin, interval, startMs, endMs)
	if err != nil {
		return domain.PriceSeries{}, domain.NetworkError(err, "hyperliquid candles %s %s", coin, interval)
	}

	points, err := candlePoints(candles)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	return buildSeries(symbol, hyperliquidName, points)
}

// candlePoints keeps the close of every candle, stamped with the candle close time.
func candlePoints(candles []hyperliquid.Candle) ([]domain.PricePoint, error) {
	points := make([]domain.PricePoint, 0, len(candles))
	for i, c := range candles {
		closePrice, err := decimal.NewFromString(c.Close)
		if err != nil {
			return nil, domain.QuoteUnavailableError(err, "parse close at %d", i)
		}
		points = append(points, domain.PricePoint{Time: msToTime(c.TimeClose), Close: closePrice})
	}
	return points, nil
}
