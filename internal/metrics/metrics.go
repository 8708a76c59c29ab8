// Package metrics exposes bot activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "paperbot"

// AccountReader read side of the ledger sampled on scrape.
type AccountReader interface {
	Cash() decimal.Decimal
	TradeCount() int
}

// Metrics holds the bot collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Commands      *prometheus.CounterVec
	Trades        *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	Signals       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec
}

// New registers all collectors. account may be nil, then the ledger gauges are omitted.
func New(account AccountReader) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chat commands handled, by command and outcome",
		}, []string{"command", "outcome"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Executed paper trades, by side",
		}, []string{"side"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_rejections_total",
			Help:      "Rejected trade requests, by reason",
		}, []string{"reason"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_signals_total",
			Help:      "Signals emitted by scheduled alerts",
		}, []string{"symbol", "signal"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "market_fetch_duration_seconds",
			Help:      "Market data provider latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_fetch_errors_total",
			Help:      "Failed market data requests",
		}, []string{"provider", "operation"}),
	}

	m.registry.MustRegister(
		m.Commands,
		m.Trades,
		m.Rejections,
		m.Signals,
		m.FetchDuration,
		m.FetchErrors,
		collectors.NewGoCollector(),
	)

	if account != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "account_cash",
				Help:      "Available paper cash",
			}, func() float64 { return account.Cash().InexactFloat64() }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "account_trades",
				Help:      "Trades in the account log",
			}, func() float64 { return float64(account.TradeCount()) }),
		)
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CommandHandled counts a chat command.
func (m *Metrics) CommandHandled(command, outcome string) {
	m.Commands.WithLabelValues(command, outcome).Inc()
}

// TradeExecuted counts an executed trade.
func (m *Metrics) TradeExecuted(side string) {
	m.Trades.WithLabelValues(side).Inc()
}

// TradeRejected counts a rejected trade.
func (m *Metrics) TradeRejected(reason string) {
	m.Rejections.WithLabelValues(reason).Inc()
}

// SignalEmitted counts an alert sent to the operator.
func (m *Metrics) SignalEmitted(symbol, signal string) {
	m.Signals.WithLabelValues(symbol, signal).Inc()
}

// ObserveFetch records provider latency and failures.
func (m *Metrics) ObserveFetch(provider, operation string, elapsed time.Duration, err error) {
	m.FetchDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(provider, operation).Inc()
	}
}
