package indicators

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

// Strategy RSI thresholds. Below BuyBelow is oversold, above SellAbove is overbought.
type Strategy struct {
	BuyBelow  decimal.Decimal
	SellAbove decimal.Decimal
}

// DefaultStrategy returns the classic 30/70 thresholds.
func DefaultStrategy() Strategy {
	return Strategy{
		BuyBelow:  decimal.NewFromInt(30),
		SellAbove: decimal.NewFromInt(70),
	}
}

// Validate checks that thresholds are within [0, 100] and ordered.
func (s Strategy) Validate() error {
	if s.BuyBelow.IsNegative() || s.BuyBelow.GreaterThan(hundred) {
		return errors.Errorf("buy threshold %s is outside [0, 100]", s.BuyBelow.String())
	}
	if s.SellAbove.IsNegative() || s.SellAbove.GreaterThan(hundred) {
		return errors.Errorf("sell threshold %s is outside [0, 100]", s.SellAbove.String())
	}
	if s.BuyBelow.GreaterThan(s.SellAbove) {
		return errors.Errorf("buy threshold %s is above sell threshold %s", s.BuyBelow.String(), s.SellAbove.String())
	}
	return nil
}

// Classify maps a snapshot to a recommendation.
func Classify(snapshot domain.IndicatorSnapshot, strategy Strategy) domain.Signal {
	switch {
	case snapshot.RSI.LessThan(strategy.BuyBelow):
		return domain.SignalBuy
	case snapshot.RSI.GreaterThan(strategy.SellAbove):
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}
