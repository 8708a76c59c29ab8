package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PricePoint closing price at a moment in time.
type PricePoint struct {
	Time  time.Time
	Close decimal.Decimal
}

// PriceSeries time-ordered closing prices of a single asset.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// NewPriceSeries validates points and builds a series.
// Timestamps must be strictly increasing and every close must be positive.
func NewPriceSeries(symbol string, points []PricePoint) (PriceSeries, error) {
	for i, p := range points {
		if !p.Close.IsPositive() {
			return PriceSeries{}, errors.Errorf("close at index %d must be positive, got %s", i, p.Close.String())
		}
		if i > 0 && !p.Time.After(points[i-1].Time) {
			return PriceSeries{}, errors.Errorf("timestamp at index %d (%s) is not after the previous one",
				i, p.Time.Format(time.RFC3339))
		}
	}

	return PriceSeries{Symbol: symbol, Points: points}, nil
}

// Len returns the number of points.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Closes returns the closing prices in order.
func (s PriceSeries) Closes() []decimal.Decimal {
	closes := make([]decimal.Decimal, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Latest returns the most recent point.
func (s PriceSeries) Latest() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
