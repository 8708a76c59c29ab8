package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal trading recommendation derived from an indicator.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// IndicatorSnapshot RSI state at the most recent point of a series.
type IndicatorSnapshot struct {
	Window      int
	AverageGain decimal.Decimal
	AverageLoss decimal.Decimal
	// RSI value in [0, 100].
	RSI decimal.Decimal
	// At timestamp of the point the snapshot was computed for.
	At time.Time
}
