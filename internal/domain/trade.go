package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord executed paper trade. Records are immutable once appended to the trade log.
type TradeRecord struct {
	// ID unique trade identifier.
	ID string
	// Side buy or sell.
	Side Side
	// Symbol traded asset.
	Symbol string
	// Quantity amount of the asset.
	Quantity decimal.Decimal
	// UnitPrice price per unit at execution.
	UnitPrice decimal.Decimal
	// Notional cash moved by the trade, Quantity × UnitPrice.
	Notional decimal.Decimal
	// Time execution timestamp.
	Time time.Time
}

// String returns a human-readable string representation.
func (t TradeRecord) String() string {
	return fmt.Sprintf("%s %s %s @ %s (%s)",
		t.Side.String(), t.Quantity.String(), t.Symbol, t.UnitPrice.String(), t.Notional.StringFixed(2))
}
