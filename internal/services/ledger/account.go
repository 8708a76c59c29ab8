// Package ledger holds the paper-trading account: cash, holdings and the trade log.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"go.uber.org/zap"
)

// DefaultQuantityPrecision decimal places kept when cash is converted into quantity.
const DefaultQuantityPrecision int32 = 8

// Account single in-memory paper wallet.
// Cash never goes negative and every stored holding is strictly positive.
type Account struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	now       func() time.Time
	precision int32

	cash     decimal.Decimal
	holdings map[string]decimal.Decimal
	trades   []domain.TradeRecord
}

// Option configures an Account.
type Option func(*Account)

// WithLogger sets the account logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Account) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the trade timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Account) {
		if now != nil {
			a.now = now
		}
	}
}

// WithQuantityPrecision sets how many decimal places notional conversions keep.
func WithQuantityPrecision(places int32) Option {
	return func(a *Account) {
		if places >= 0 {
			a.precision = places
		}
	}
}

// NewAccount creates an account funded with initialCash.
func NewAccount(initialCash decimal.Decimal, opts ...Option) (*Account, error) {
	if err := domain.CheckAmount(domain.ErrInvalidQuantity, "initial cash", initialCash); err != nil {
		return nil, err
	}
	if initialCash.IsNegative() {
		return nil, errors.Errorf("initial cash must not be negative, got %s", initialCash.String())
	}

	a := &Account{
		logger:    zap.NewNop(),
		now:       time.Now,
		precision: DefaultQuantityPrecision,
		cash:      initialCash,
		holdings:  make(map[string]decimal.Decimal),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.logger.Info("account init",
		zap.String("cash", initialCash.String()),
		zap.Int32("quantity_precision", a.precision))

	return a, nil
}

// Buy purchases quantity units of symbol at unitPrice.
func (a *Account) Buy(symbol string, quantity, unitPrice decimal.Decimal) (domain.TradeRecord, error) {
	symbol, err := validate(symbol, quantity, unitPrice)
	if err != nil {
		return domain.TradeRecord{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.buyLocked(symbol, quantity, unitPrice)
}

// Sell disposes of quantity units of symbol at unitPrice.
func (a *Account) Sell(symbol string, quantity, unitPrice decimal.Decimal) (domain.TradeRecord, error) {
	symbol, err := validate(symbol, quantity, unitPrice)
	if err != nil {
		return domain.TradeRecord{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.sellLocked(symbol, quantity, unitPrice)
}

// BuyNotional spends up to cash on symbol. The quantity is cash/unitPrice truncated to the account precision,
// so the debit never exceeds the requested amount.
func (a *Account) BuyNotional(symbol string, cash, unitPrice decimal.Decimal) (domain.TradeRecord, error) {
	quantity, err := a.notionalToQuantity(cash, unitPrice)
	if err != nil {
		return domain.TradeRecord{}, err
	}
	return a.Buy(symbol, quantity, unitPrice)
}

// SellNotional sells the quantity worth cash at unitPrice, truncated to the account precision.
func (a *Account) SellNotional(symbol string, cash, unitPrice decimal.Decimal) (domain.TradeRecord, error) {
	quantity, err := a.notionalToQuantity(cash, unitPrice)
	if err != nil {
		return domain.TradeRecord{}, err
	}
	return a.Sell(symbol, quantity, unitPrice)
}

// SellAll sells the whole holding of symbol.
func (a *Account) SellAll(symbol string, unitPrice decimal.Decimal) (domain.TradeRecord, error) {
	normalized, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return domain.TradeRecord{}, err
	}
	if err := domain.CheckAmount(domain.ErrInvalidPrice, "unit price", unitPrice); err != nil {
		return domain.TradeRecord{}, err
	}
	if !unitPrice.IsPositive() {
		return domain.TradeRecord{}, errors.Wrapf(domain.ErrInvalidPrice, "unit price %s", unitPrice.String())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	held, ok := a.holdings[normalized]
	if !ok {
		return domain.TradeRecord{}, errors.Wrapf(domain.ErrInsufficientHoldings, "no %s held", normalized)
	}

	return a.sellLocked(normalized, held, unitPrice)
}

func (a *Account) buyLocked(symbol string, quantity, unitPrice decimal.Decimal) (domain.TradeRecord, error) {
	cost := quantity.Mul(unitPrice)
	if cost.GreaterThan(a.cash) {
		a.logger.Warn("buy rejected",
			zap.String("symbol", symbol),
			zap.String("cost", cost.String()),
			zap.String("cash", a.cash.String()))
		return domain.TradeRecord{}, errors.Wrapf(domain.ErrInsufficientFunds,
			"have %s need %s", a.cash.String(), cost.String())
	}

	a.cash = a.cash.Sub(cost)
	a.holdings[symbol] = a.holdings[symbol].Add(quantity)

	return a.record(domain.SideBuy, symbol, quantity, unitPrice, cost), nil
}

func (a *Account) sellLocked(symbol string, quantity, unitPrice decimal.Decimal) (domain.TradeRecord, error) {
	held := a.holdings[symbol]
	if quantity.GreaterThan(held) {
		a.logger.Warn("sell rejected",
			zap.String("symbol", symbol),
			zap.String("quantity", quantity.String()),
			zap.String("held", held.String()))
		return domain.TradeRecord{}, errors.Wrapf(domain.ErrInsufficientHoldings,
			"insufficient %s: have %s need %s", symbol, held.String(), quantity.String())
	}

	remaining := held.Sub(quantity)
	if remaining.IsZero() {
		delete(a.holdings, symbol)
	} else {
		a.holdings[symbol] = remaining
	}

	proceeds := quantity.Mul(unitPrice)
	a.cash = a.cash.Add(proceeds)

	return a.record(domain.SideSell, symbol, quantity, unitPrice, proceeds), nil
}

func (a *Account) record(side domain.Side, symbol string, quantity, unitPrice, notional decimal.Decimal) domain.TradeRecord {
	trade := domain.TradeRecord{
		ID:        uuid.NewString(),
		Side:      side,
		Symbol:    symbol,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Notional:  notional,
		Time:      a.now(),
	}
	a.trades = append(a.trades, trade)

	a.logger.Info("trade executed",
		zap.String("id", trade.ID),
		zap.String("side", side.String()),
		zap.String("symbol", symbol),
		zap.String("quantity", quantity.String()),
		zap.String("price", unitPrice.String()),
		zap.String("cash", a.cash.String()))

	return trade
}

func (a *Account) notionalToQuantity(cash, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if err := domain.CheckAmount(domain.ErrInvalidQuantity, "amount", cash); err != nil {
		return decimal.Zero, err
	}
	if err := domain.CheckAmount(domain.ErrInvalidPrice, "unit price", unitPrice); err != nil {
		return decimal.Zero, err
	}
	if !cash.IsPositive() {
		return decimal.Zero, errors.Wrapf(domain.ErrInvalidQuantity, "amount %s must be positive", cash.String())
	}
	if !unitPrice.IsPositive() {
		return decimal.Zero, errors.Wrapf(domain.ErrInvalidPrice, "unit price %s", unitPrice.String())
	}

	quantity, _ := cash.QuoRem(unitPrice, a.precision)
	if !quantity.IsPositive() {
		return decimal.Zero, errors.Wrapf(domain.ErrInvalidQuantity,
			"amount %s buys less than 1e-%d units at %s", cash.String(), a.precision, unitPrice.String())
	}

	return quantity, nil
}

func validate(symbol string, quantity, unitPrice decimal.Decimal) (string, error) {
	normalized, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return "", err
	}
	// bounds first, String() below expands the exponent
	if err := domain.CheckAmount(domain.ErrInvalidQuantity, "quantity", quantity); err != nil {
		return "", err
	}
	if err := domain.CheckAmount(domain.ErrInvalidPrice, "unit price", unitPrice); err != nil {
		return "", err
	}
	if !quantity.IsPositive() {
		return "", errors.Wrapf(domain.ErrInvalidQuantity, "quantity %s must be positive", quantity.String())
	}
	if !unitPrice.IsPositive() {
		return "", errors.Wrapf(domain.ErrInvalidPrice, "unit price %s must be positive", unitPrice.String())
	}
	return normalized, nil
}

// Cash returns the available cash balance.
func (a *Account) Cash() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cash
}

// Holdings returns a copy of the holdings.
func (a *Account) Holdings() map[string]decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]decimal.Decimal, len(a.holdings))
	for symbol, qty := range a.holdings {
		result[symbol] = qty
	}
	return result
}

// Holding returns the held quantity of symbol, zero when nothing is held.
func (a *Account) Holding(symbol string) decimal.Decimal {
	normalized, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Zero
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.holdings[normalized]
}

// Symbols returns held symbols in sorted order.
func (a *Account) Symbols() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	symbols := make([]string, 0, len(a.holdings))
	for symbol := range a.holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// History returns a copy of the trade log in execution order.
func (a *Account) History() []domain.TradeRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]domain.TradeRecord, len(a.trades))
	copy(result, a.trades)
	return result
}

// TradeCount returns the number of executed trades.
func (a *Account) TradeCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.trades)
}
