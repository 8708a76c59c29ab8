package market

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

// Supported providers.
const (
	ProviderYahoo       = "yahoo"
	ProviderBinance     = "binance"
	ProviderBybit       = "bybit"
	ProviderHyperliquid = "hyperliquid"
)

// Providers lists supported provider names.
var Providers = []string{ProviderYahoo, ProviderBinance, ProviderBybit, ProviderHyperliquid}

// NewSource builds the source for provider. baseURL overrides the public endpoint when set.
func NewSource(ctx context.Context, provider, baseURL string, httpClient *http.Client) (Source, error) {
	switch strings.ToLower(provider) {
	case ProviderYahoo:
		return NewYahooSource(httpClient, baseURL), nil
	case ProviderBinance:
		return NewBinanceSource(baseURL), nil
	case ProviderBybit:
		return NewBybitSource(baseURL), nil
	case ProviderHyperliquid:
		source, err := NewHyperliquidSource(ctx, baseURL)
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		return nil, errors.Errorf("unsupported market provider %q, want one of %s", provider, strings.Join(Providers, ", "))
	}
}

// Aliases maps user-facing shorthands to provider symbols, e.g. BTC -> BTC-USD.
type Aliases map[string]string

// Resolve normalizes raw and applies the alias table.
func (a Aliases) Resolve(raw string) (string, error) {
	symbol, err := domain.NormalizeSymbol(raw)
	if err != nil {
		return "", err
	}
	for alias, target := range a {
		if strings.EqualFold(alias, symbol) {
			return domain.NormalizeSymbol(target)
		}
	}
	return symbol, nil
}

// ResolveAll resolves every symbol and drops duplicates, keeping the first occurrence order.
func (a Aliases) ResolveAll(raw []string) ([]string, error) {
	resolved := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		symbol, err := a.Resolve(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		resolved = append(resolved, symbol)
	}
	return resolved, nil
}
