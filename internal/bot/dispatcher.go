// Package bot turns chat commands into ledger operations and replies.
package bot

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/internal/services/chart"
	"github.com/vadiminshakov/paperbot/internal/services/indicators"
	"github.com/vadiminshakov/paperbot/internal/services/ledger"
	"github.com/vadiminshakov/paperbot/internal/services/market"
	"go.uber.org/zap"
)

const emaPeriod = 20

// Account ledger operations used by the bot.
type Account interface {
	Buy(symbol string, quantity, unitPrice decimal.Decimal) (domain.TradeRecord, error)
	Sell(symbol string, quantity, unitPrice decimal.Decimal) (domain.TradeRecord, error)
	BuyNotional(symbol string, cash, unitPrice decimal.Decimal) (domain.TradeRecord, error)
	SellNotional(symbol string, cash, unitPrice decimal.Decimal) (domain.TradeRecord, error)
	SellAll(symbol string, unitPrice decimal.Decimal) (domain.TradeRecord, error)
	Valuation(lookup ledger.PriceLookup) (ledger.NetWorth, error)
	Cash() decimal.Decimal
	Holdings() map[string]decimal.Decimal
	Symbols() []string
	History() []domain.TradeRecord
}

// ChartRenderer draws /chart images.
type ChartRenderer interface {
	Render(in chart.Input) ([]byte, error)
}

// Recorder receives command and trade outcomes.
type Recorder interface {
	CommandHandled(command, outcome string)
	TradeExecuted(side string)
	TradeRejected(reason string)
}

// Settings bot behaviour taken from configuration.
type Settings struct {
	OperatorID          int64
	Currency            string
	DefaultSymbol       string
	Period              string
	Interval            string
	RSIWindow           int
	Strategy            indicators.Strategy
	DefaultBuyNotional  decimal.Decimal
	DefaultSellQuantity decimal.Decimal
}

// Reply answer to a command. Image, when set, is sent as a photo with Text as caption.
type Reply struct {
	Text  string
	Image []byte
}

// Dispatcher routes commands of the single operator.
type Dispatcher struct {
	account  Account
	source   market.Source
	renderer ChartRenderer
	aliases  market.Aliases
	settings Settings
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithAliases sets symbol shorthands.
func WithAliases(aliases market.Aliases) Option {
	return func(d *Dispatcher) {
		d.aliases = aliases
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(account Account, source market.Source, renderer ChartRenderer, settings Settings, opts ...Option) (*Dispatcher, error) {
	if account == nil {
		return nil, errors.New("account is required")
	}
	if source == nil {
		return nil, errors.New("market source is required")
	}
	if renderer == nil {
		return nil, errors.New("chart renderer is required")
	}
	if settings.RSIWindow < 1 {
		return nil, errors.Errorf("rsi window must be positive, got %d", settings.RSIWindow)
	}
	if err := settings.Strategy.Validate(); err != nil {
		return nil, errors.Wrap(err, "strategy")
	}
	if _, err := domain.NormalizeSymbol(settings.DefaultSymbol); err != nil {
		return nil, errors.Wrap(err, "default symbol")
	}

	d := &Dispatcher{
		account:  account,
		source:   source,
		renderer: renderer,
		settings: settings,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type handlerFunc func(ctx context.Context, args []string) (Reply, error)

func (d *Dispatcher) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"start":     d.handleStart,
		"help":      d.handleHelp,
		"portfolio": d.handlePortfolio,
		"summary":   d.handleSummary,
		"buy":       d.handleBuy,
		"sell":      d.handleSell,
		"history":   d.handleHistory,
		"log":       d.handleHistory,
		"chart":     d.handleChart,
		"signal":    d.handleSignal,
		"price":     d.handlePrice,
	}
}

// Handle answers one message from senderID.
func (d *Dispatcher) Handle(ctx context.Context, senderID int64, text string) Reply {
	cmd := ParseCommand(text)
	handler, known := d.handlers()[cmd.Name]
	label := cmd.Name
	if !known {
		label = "unknown"
	}

	if senderID != d.settings.OperatorID {
		d.logger.Warn("rejected message from unknown user",
			zap.Int64("sender_id", senderID),
			zap.String("command", cmd.Name))
		d.recorder.CommandHandled(label, "unauthorized")
		return Reply{Text: "⛔ This bot is private."}
	}

	if !known {
		d.recorder.CommandHandled(label, "unknown")
		return Reply{Text: "Unknown command. Try /help."}
	}

	reply, err := handler(ctx, cmd.Args)
	if err != nil {
		d.logger.Warn("command failed",
			zap.String("command", cmd.Name),
			zap.Strings("args", cmd.Args),
			zap.Error(err))
		d.recorder.CommandHandled(label, "error")
		return Reply{Text: describeError(err)}
	}

	d.recorder.CommandHandled(label, "ok")
	return reply
}

func (d *Dispatcher) handleStart(context.Context, []string) (Reply, error) {
	return Reply{Text: fmt.Sprintf("👋 Paperbot activated!\nPaper cash: %s\nSend /help for commands.",
		d.money(d.account.Cash()))}, nil
}

func (d *Dispatcher) handleHelp(context.Context, []string) (Reply, error) {
	return Reply{Text: helpText(d.settings)}, nil
}

func (d *Dispatcher) handlePortfolio(context.Context, []string) (Reply, error) {
	return Reply{Text: formatPortfolio(d.account.Cash(), d.account.Holdings(), d.account.Symbols(), d.settings.Currency)}, nil
}

func (d *Dispatcher) handleSummary(ctx context.Context, _ []string) (Reply, error) {
	worth, err := d.account.Valuation(liveQuotes{ctx: ctx, source: d.source})
	if err != nil {
		return Reply{}, errors.Wrap(err, "value portfolio")
	}
	return Reply{Text: formatSummary(worth, d.settings.Currency)}, nil
}

func (d *Dispatcher) handleBuy(ctx context.Context, args []string) (Reply, error) {
	req, err := parseTradeArgs(args)
	if err != nil {
		return Reply{}, err
	}
	if req.All {
		return Reply{}, errors.Wrap(domain.ErrInvalidQuantity, "buy does not support all")
	}

	symbol, err := d.resolve(req.Symbol)
	if err != nil {
		return Reply{}, err
	}
	price, err := d.source.Quote(ctx, symbol)
	if err != nil {
		return Reply{}, err
	}

	var trade domain.TradeRecord
	switch {
	case req.Mode == modeQuantity:
		if !req.HasAmount {
			return Reply{}, errors.Wrap(domain.ErrInvalidQuantity, "qty mode needs a quantity")
		}
		trade, err = d.account.Buy(symbol, req.Amount, price)
	case req.HasAmount:
		trade, err = d.account.BuyNotional(symbol, req.Amount, price)
	default:
		trade, err = d.account.BuyNotional(symbol, d.settings.DefaultBuyNotional, price)
	}
	if err != nil {
		d.recorder.TradeRejected(rejectionReason(err))
		return Reply{}, err
	}

	d.recorder.TradeExecuted(trade.Side.String())
	return Reply{Text: fmt.Sprintf("✅ Bought %s %s @ %s for %s\nCash: %s",
		trade.Quantity.String(), trade.Symbol, formatPrice(trade.UnitPrice),
		d.money(trade.Notional), d.money(d.account.Cash()))}, nil
}

func (d *Dispatcher) handleSell(ctx context.Context, args []string) (Reply, error) {
	req, err := parseTradeArgs(args)
	if err != nil {
		return Reply{}, err
	}

	symbol, err := d.resolve(req.Symbol)
	if err != nil {
		return Reply{}, err
	}
	price, err := d.source.Quote(ctx, symbol)
	if err != nil {
		return Reply{}, err
	}

	var trade domain.TradeRecord
	switch {
	case req.All:
		trade, err = d.account.SellAll(symbol, price)
	case req.Mode == modeNotional:
		if !req.HasAmount {
			return Reply{}, errors.Wrap(domain.ErrInvalidQuantity, "cash mode needs an amount")
		}
		trade, err = d.account.SellNotional(symbol, req.Amount, price)
	case req.HasAmount:
		trade, err = d.account.Sell(symbol, req.Amount, price)
	default:
		trade, err = d.account.Sell(symbol, d.settings.DefaultSellQuantity, price)
	}
	if err != nil {
		d.recorder.TradeRejected(rejectionReason(err))
		return Reply{}, err
	}

	d.recorder.TradeExecuted(trade.Side.String())
	return Reply{Text: fmt.Sprintf("✅ Sold %s %s @ %s for %s\nCash: %s",
		trade.Quantity.String(), trade.Symbol, formatPrice(trade.UnitPrice),
		d.money(trade.Notional), d.money(d.account.Cash()))}, nil
}

func (d *Dispatcher) handleHistory(context.Context, []string) (Reply, error) {
	return Reply{Text: formatHistory(d.account.History(), d.settings.Currency)}, nil
}

func (d *Dispatcher) handlePrice(ctx context.Context, args []string) (Reply, error) {
	raw, err := parseSymbolArg(args)
	if err != nil {
		return Reply{}, err
	}
	symbol, err := d.resolve(raw)
	if err != nil {
		return Reply{}, err
	}

	price, err := d.source.Quote(ctx, symbol)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: fmt.Sprintf("💱 %s: %s", symbol, formatPrice(price))}, nil
}

func (d *Dispatcher) handleSignal(ctx context.Context, args []string) (Reply, error) {
	symbol, series, err := d.fetchSeries(ctx, args)
	if err != nil {
		return Reply{}, err
	}

	snapshot, ok := indicators.ComputeRSI(series, d.settings.RSIWindow)
	if !ok {
		return Reply{}, d.noSignal(series)
	}

	signal := indicators.Classify(snapshot, d.settings.Strategy)
	return Reply{Text: formatSignal(symbol, series, snapshot, signal, d.settings)}, nil
}

func (d *Dispatcher) handleChart(ctx context.Context, args []string) (Reply, error) {
	symbol, series, err := d.fetchSeries(ctx, args)
	if err != nil {
		return Reply{}, err
	}

	img, err := d.renderer.Render(chart.Input{
		Series:   series,
		EMA:      indicators.EMASeries(series, emaPeriod),
		RSI:      indicators.RSISeries(series, d.settings.RSIWindow),
		Strategy: d.settings.Strategy,
	})
	if err != nil {
		return Reply{}, errors.Wrapf(err, "render %s chart", symbol)
	}

	return Reply{Text: chartCaption(symbol, series, d.settings), Image: img}, nil
}

func (d *Dispatcher) fetchSeries(ctx context.Context, args []string) (string, domain.PriceSeries, error) {
	raw, err := parseSymbolArg(args)
	if err != nil {
		return "", domain.PriceSeries{}, err
	}
	symbol, err := d.resolve(raw)
	if err != nil {
		return "", domain.PriceSeries{}, err
	}

	series, err := d.source.Series(ctx, symbol, d.settings.Period, d.settings.Interval)
	if err != nil {
		return "", domain.PriceSeries{}, err
	}
	return symbol, series, nil
}

func (d *Dispatcher) noSignal(series domain.PriceSeries) error {
	need := d.settings.RSIWindow + 1
	if series.Len() < need {
		return errors.Wrapf(domain.ErrInsufficientHistory, "have %d points of %s, need %d", series.Len(), series.Symbol, need)
	}
	return errors.Wrapf(domain.ErrInsufficientHistory, "%s did not move over the last %d intervals", series.Symbol, d.settings.RSIWindow)
}

// resolve applies aliases and falls back to the default symbol.
func (d *Dispatcher) resolve(raw string) (string, error) {
	if raw == "" {
		raw = d.settings.DefaultSymbol
	}
	return d.aliases.Resolve(raw)
}

func (d *Dispatcher) money(v decimal.Decimal) string {
	return formatMoney(v, d.settings.Currency)
}

// liveQuotes prices holdings through the market source during valuation.
type liveQuotes struct {
	ctx    context.Context
	source market.Source
}

func (q liveQuotes) Price(symbol string) (decimal.Decimal, error) {
	price, err := q.source.Quote(q.ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrQuoteUnavailable) {
			return decimal.Zero, err
		}
		return decimal.Zero, domain.QuoteUnavailableError(err, "no quote for %s", symbol)
	}
	return price, nil
}

type nopRecorder struct{}

func (nopRecorder) CommandHandled(string, string) {}
func (nopRecorder) TradeExecuted(string)          {}
func (nopRecorder) TradeRejected(string)          {}
