// Package alerts periodically evaluates RSI signals and notifies the operator about new BUY or SELL signals.
package alerts

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/internal/services/indicators"
	"github.com/vadiminshakov/paperbot/internal/services/market"
	"go.uber.org/zap"
)

// Notifier delivers alert text to a chat.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// SignalRecorder counts emitted alerts.
type SignalRecorder interface {
	SignalEmitted(symbol, signal string)
}

// Config watcher settings.
type Config struct {
	// Schedule cron expression, seconds field optional ("0 */5 * * * *", "*/5 * * * *", "@every 5m").
	Schedule  string
	Symbols   []string
	ChatID    int64
	Period    string
	Interval  string
	RSIWindow int
	Strategy  indicators.Strategy
}

// Watcher runs signal checks on a cron schedule.
type Watcher struct {
	cfg      Config
	cron     *cron.Cron
	source   market.Source
	notifier Notifier
	recorder SignalRecorder
	logger   *zap.Logger

	mu   sync.Mutex
	last map[string]domain.Signal
}

// NewWatcher validates the schedule and creates a watcher.
func NewWatcher(cfg Config, source market.Source, notifier Notifier, recorder SignalRecorder, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Symbols) == 0 {
		return nil, errors.New("alerts need at least one symbol")
	}
	if cfg.RSIWindow < 1 {
		return nil, errors.Errorf("rsi window must be positive, got %d", cfg.RSIWindow)
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, errors.Wrapf(err, "invalid alerts schedule %q", cfg.Schedule)
	}

	return &Watcher{
		cfg:      cfg,
		cron:     cron.New(cron.WithParser(parser)),
		source:   source,
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
		last:     make(map[string]domain.Signal),
	}, nil
}

// Run schedules checks and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.cfg.Schedule, func() { w.Check(ctx) }); err != nil {
		return errors.Wrap(err, "register alerts job")
	}

	w.cron.Start()
	w.logger.Info("alerts scheduler started",
		zap.String("schedule", w.cfg.Schedule),
		zap.Strings("symbols", w.cfg.Symbols))

	<-ctx.Done()

	<-w.cron.Stop().Done()
	w.logger.Info("alerts scheduler stopped")
	return nil
}

// Check evaluates every symbol once and notifies about transitions into BUY or SELL.
func (w *Watcher) Check(ctx context.Context) {
	for _, symbol := range w.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}

		signal, snapshot, err := w.evaluate(ctx, symbol)
		if err != nil {
			w.logger.Warn("alert check failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		if !w.pending(symbol, signal) {
			continue
		}

		text := fmt.Sprintf("🔔 %s signal for %s: RSI(%d) %s", signal, symbol, snapshot.Window, snapshot.RSI.StringFixed(2))
		if err := w.notifier.SendMessage(ctx, w.cfg.ChatID, text); err != nil {
			w.logger.Error("send alert", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		w.commit(symbol, signal)
		if w.recorder != nil {
			w.recorder.SignalEmitted(symbol, string(signal))
		}
		w.logger.Info("alert sent", zap.String("symbol", symbol), zap.String("signal", string(signal)))
	}
}

func (w *Watcher) evaluate(ctx context.Context, symbol string) (domain.Signal, domain.IndicatorSnapshot, error) {
	series, err := w.source.Series(ctx, symbol, w.cfg.Period, w.cfg.Interval)
	if err != nil {
		return "", domain.IndicatorSnapshot{}, err
	}

	snapshot, ok := indicators.ComputeRSI(series, w.cfg.RSIWindow)
	if !ok {
		return domain.SignalHold, domain.IndicatorSnapshot{}, nil
	}
	return indicators.Classify(snapshot, w.cfg.Strategy), snapshot, nil
}

// pending reports whether signal is a BUY or SELL the operator has not been told about yet.
// HOLD is recorded immediately, BUY and SELL only once delivered (see commit).
func (w *Watcher) pending(symbol string, signal domain.Signal) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if signal == domain.SignalHold {
		w.last[symbol] = signal
		return false
	}
	prev, seen := w.last[symbol]
	return !seen || prev != signal
}

func (w *Watcher) commit(symbol string, signal domain.Signal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last[symbol] = signal
}
