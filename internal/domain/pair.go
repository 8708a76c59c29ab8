// Package domain defines core data structures used throughout the trading bot.
package domain

import (
	"strings"

	"github.com/pkg/errors"
)

const maxSymbolLength = 20

// NormalizeSymbol trims and upper-cases an asset symbol and checks its alphabet.
// Accepted characters cover exchange tickers (BTCUSDT), Yahoo tickers (BTC-USD, ^GSPC, EURUSD=X)
// and class suffixes (BRK.B).
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", errors.Wrap(ErrInvalidSymbol, "symbol is empty")
	}
	if len(symbol) > maxSymbolLength {
		return "", errors.Wrapf(ErrInvalidSymbol, "symbol %q is longer than %d characters", symbol, maxSymbolLength)
	}

	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '.', r == '_', r == '^', r == '=':
		default:
			return "", errors.Wrapf(ErrInvalidSymbol, "symbol %q contains %q", symbol, r)
		}
	}

	return symbol, nil
}
