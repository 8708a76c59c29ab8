package bot

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/internal/services/indicators"
	"github.com/vadiminshakov/paperbot/internal/services/ledger"
)

func helpText(s Settings) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	b.WriteString("/portfolio - cash and holdings\n")
	b.WriteString("/summary - portfolio valued at live prices\n")
	fmt.Fprintf(&b, "/buy [symbol] [amount] [qty] - buy for %s of %s by default, qty buys units\n",
		formatMoney(s.DefaultBuyNotional, s.Currency), s.DefaultSymbol)
	fmt.Fprintf(&b, "/sell [symbol] [quantity|all] [cash] - sell %s units by default, cash sells by value\n",
		s.DefaultSellQuantity.String())
	b.WriteString("/history - executed trades\n")
	fmt.Fprintf(&b, "/chart [symbol] - price over %s at %s with RSI(%d)\n", s.Period, s.Interval, s.RSIWindow)
	fmt.Fprintf(&b, "/signal [symbol] - RSI(%d) recommendation, buy below %s, sell above %s\n",
		s.RSIWindow, s.Strategy.BuyBelow.String(), s.Strategy.SellAbove.String())
	b.WriteString("/price [symbol] - current price")
	return b.String()
}

func formatPortfolio(cash decimal.Decimal, holdings map[string]decimal.Decimal, symbols []string, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💼 Cash: %s", formatMoney(cash, currency))
	if len(symbols) == 0 {
		b.WriteString("\nNo holdings.")
		return b.String()
	}
	for _, symbol := range symbols {
		fmt.Fprintf(&b, "\n🪙 %s: %s", symbol, holdings[symbol].String())
	}
	return b.String()
}

func formatSummary(worth ledger.NetWorth, currency string) string {
	var b strings.Builder
	b.WriteString("📊 Portfolio summary\n")
	fmt.Fprintf(&b, "Cash: %s\n", formatMoney(worth.Cash, currency))
	for _, p := range worth.Positions {
		fmt.Fprintf(&b, "%s: %s × %s = %s\n", p.Symbol, p.Quantity.String(), formatPrice(p.Price), formatMoney(p.Value, currency))
	}
	fmt.Fprintf(&b, "Holdings value: %s\n", formatMoney(worth.HoldingsValue, currency))
	fmt.Fprintf(&b, "Total value: %s", formatMoney(worth.Total, currency))
	return b.String()
}

func formatHistory(trades []domain.TradeRecord, currency string) string {
	if len(trades) == 0 {
		return "📭 No trades yet."
	}

	lines := make([]string, 0, len(trades))
	for i, t := range trades {
		lines = append(lines, fmt.Sprintf("%d. %s %s %s %s @ %s = %s",
			i+1, t.Time.UTC().Format("2006-01-02 15:04"), t.Side.String(), t.Quantity.String(), t.Symbol,
			formatPrice(t.UnitPrice), formatMoney(t.Notional, currency)))
	}
	return strings.Join(lines, "\n")
}

func formatSignal(symbol string, series domain.PriceSeries, snapshot domain.IndicatorSnapshot, signal domain.Signal, s Settings) string {
	last, _ := series.Latest()
	return fmt.Sprintf("%s %s %s\nPrice: %s\nRSI(%d): %s (avg gain %s, avg loss %s)\nBuy below %s, sell above %s\nAs of %s",
		signalIcon(signal), signal, symbol, formatPrice(last.Close),
		snapshot.Window, snapshot.RSI.StringFixed(2),
		snapshot.AverageGain.StringFixed(4), snapshot.AverageLoss.StringFixed(4),
		s.Strategy.BuyBelow.String(), s.Strategy.SellAbove.String(),
		snapshot.At.UTC().Format("2006-01-02 15:04 MST"))
}

func chartCaption(symbol string, series domain.PriceSeries, s Settings) string {
	last, _ := series.Latest()
	caption := fmt.Sprintf("%s (%s, %s) last %s", symbol, s.Period, s.Interval, formatPrice(last.Close))

	snapshot, ok := indicators.ComputeRSI(series, s.RSIWindow)
	if !ok {
		return caption + ", RSI n/a"
	}
	signal := indicators.Classify(snapshot, s.Strategy)
	return fmt.Sprintf("%s, RSI(%d) %s %s %s", caption, s.RSIWindow, snapshot.RSI.StringFixed(1), signalIcon(signal), signal)
}

func signalIcon(signal domain.Signal) string {
	switch signal {
	case domain.SignalBuy:
		return "🟢"
	case domain.SignalSell:
		return "🔴"
	default:
		return "⚪"
	}
}

func formatMoney(v decimal.Decimal, currency string) string {
	if currency == "" {
		return v.StringFixed(2)
	}
	return v.StringFixed(2) + " " + currency
}

// formatPrice keeps more digits for sub-unit prices.
func formatPrice(v decimal.Decimal) string {
	if v.Abs().LessThan(decimal.NewFromInt(1)) {
		return v.StringFixed(6)
	}
	return v.StringFixed(2)
}

// describeError renders a failed command as a short user-facing message.
func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "❌ Not enough funds: " + detail(err, domain.ErrInsufficientFunds)
	case errors.Is(err, domain.ErrInsufficientHoldings):
		return "❌ Not enough holdings: " + detail(err, domain.ErrInsufficientHoldings)
	case errors.Is(err, domain.ErrInvalidSymbol):
		return "⚠️ Invalid symbol: " + detail(err, domain.ErrInvalidSymbol)
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "⚠️ Invalid amount: " + detail(err, domain.ErrInvalidQuantity)
	case errors.Is(err, domain.ErrInvalidPrice):
		return "⚠️ Invalid price: " + detail(err, domain.ErrInvalidPrice)
	case errors.Is(err, domain.ErrNetwork):
		return "⚠️ Market data provider is unreachable, try again later."
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return "⚠️ No market data: " + detail(err, domain.ErrQuoteUnavailable)
	case errors.Is(err, domain.ErrInsufficientHistory):
		return "⏳ No signal: " + detail(err, domain.ErrInsufficientHistory)
	default:
		return "⚠️ Something went wrong, check the logs."
	}
}

// detail strips the trailing sentinel text from a wrapped error message.
func detail(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInsufficientHoldings):
		return "insufficient_holdings"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, domain.ErrInvalidSymbol):
		return "invalid_symbol"
	default:
		return "other"
	}
}
