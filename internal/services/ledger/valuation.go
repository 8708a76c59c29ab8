package ledger

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

// PriceLookup resolves the current unit price of a symbol.
type PriceLookup interface {
	Price(symbol string) (decimal.Decimal, error)
}

// Quotes static symbol to price table.
type Quotes map[string]decimal.Decimal

// Price implements PriceLookup. Missing or non-positive prices are unavailable.
func (q Quotes) Price(symbol string) (decimal.Decimal, error) {
	price, ok := q[symbol]
	if !ok {
		return decimal.Zero, errors.Wrapf(domain.ErrQuoteUnavailable, "no quote for %s", symbol)
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(domain.ErrQuoteUnavailable, "quote for %s is %s", symbol, price.String())
	}
	return price, nil
}

// Position valued holding.
type Position struct {
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Value    decimal.Decimal
}

// NetWorth account valuation.
type NetWorth struct {
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal
	Total         decimal.Decimal
	// Positions sorted by symbol.
	Positions []Position
}

// Valuation prices every holding with lookup. Any lookup failure aborts the valuation.
func (a *Account) Valuation(lookup PriceLookup) (NetWorth, error) {
	a.mu.RLock()
	cash := a.cash
	holdings := make(map[string]decimal.Decimal, len(a.holdings))
	for symbol, qty := range a.holdings {
		holdings[symbol] = qty
	}
	a.mu.RUnlock()

	symbols := make([]string, 0, len(holdings))
	for symbol := range holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	worth := NetWorth{Cash: cash, HoldingsValue: decimal.Zero}
	for _, symbol := range symbols {
		price, err := lookup.Price(symbol)
		if err != nil {
			if errors.Is(err, domain.ErrQuoteUnavailable) {
				return NetWorth{}, err
			}
			return NetWorth{}, domain.QuoteUnavailableError(err, "price %s", symbol)
		}

		value := holdings[symbol].Mul(price)
		worth.HoldingsValue = worth.HoldingsValue.Add(value)
		worth.Positions = append(worth.Positions, Position{
			Symbol:   symbol,
			Quantity: holdings[symbol],
			Price:    price,
			Value:    value,
		})
	}
	worth.Total = cash.Add(worth.HoldingsValue)

	return worth, nil
}
