package market

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/pkg/retrier"
	"go.uber.org/zap"
)

// Observer receives the outcome of every provider call.
type Observer interface {
	ObserveFetch(provider, operation string, elapsed time.Duration, err error)
}

// Resilient wraps a Source with a per-attempt timeout and retries network failures.
type Resilient struct {
	source   Source
	timeout  time.Duration
	retrier  *retrier.Retrier
	logger   *zap.Logger
	observer Observer
}

// ResilientOption configures Resilient.
type ResilientOption func(*Resilient)

// WithObserver reports fetch latency and errors.
func WithObserver(o Observer) ResilientOption {
	return func(r *Resilient) {
		r.observer = o
	}
}

// WithRetrierOptions overrides backoff settings.
func WithRetrierOptions(opts ...retrier.Option) ResilientOption {
	return func(r *Resilient) {
		r.retrier = r.newRetrier(opts...)
	}
}

// NewResilient wraps source. retries is the number of additional attempts after a network failure.
func NewResilient(source Source, timeout time.Duration, retries int, logger *zap.Logger, opts ...ResilientOption) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resilient{
		source:  source,
		timeout: timeout,
		logger:  logger,
	}
	r.retrier = r.newRetrier(retrier.WithMaxRetries(retries))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resilient) newRetrier(opts ...retrier.Option) *retrier.Retrier {
	base := []retrier.Option{
		retrier.WithRetryIf(func(err error) bool { return errors.Is(err, domain.ErrNetwork) }),
		retrier.WithOnRetry(func(attempt int, err error, wait time.Duration) {
			r.logger.Warn("market fetch failed, retrying",
				zap.String("provider", r.source.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}),
	}
	return retrier.New(append(base, opts...)...)
}

func (r *Resilient) Name() string { return r.source.Name() }

// Quote fetches a quote with retries.
func (r *Resilient) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return retrier.DoWithData(ctx, r.retrier, func(ctx context.Context) (decimal.Decimal, error) {
		ctx, cancel := r.attemptContext(ctx)
		defer cancel()

		started := time.Now()
		price, err := r.source.Quote(ctx, symbol)
		r.observe("quote", started, err)
		return price, r.classify(ctx, err)
	})
}

// Series fetches a price series with retries.
func (r *Resilient) Series(ctx context.Context, symbol, period, interval string) (domain.PriceSeries, error) {
	return retrier.DoWithData(ctx, r.retrier, func(ctx context.Context) (domain.PriceSeries, error) {
		ctx, cancel := r.attemptContext(ctx)
		defer cancel()

		started := time.Now()
		series, err := r.source.Series(ctx, symbol, period, interval)
		r.observe("series", started, err)
		return series, r.classify(ctx, err)
	})
}

func (r *Resilient) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// classify turns an attempt deadline into a retryable network error.
func (r *Resilient) classify(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, domain.ErrNetwork) || errors.Is(err, domain.ErrQuoteUnavailable) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NetworkError(err, "%s timed out after %s", r.source.Name(), r.timeout)
	}
	return err
}

func (r *Resilient) observe(operation string, started time.Time, err error) {
	if r.observer != nil {
		r.observer.ObserveFetch(r.source.Name(), operation, time.Since(started), err)
	}
}
