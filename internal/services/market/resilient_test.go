package market

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/pkg/retrier"
)

type flakySource struct {
	failures int
	failWith error
	calls    int
	block    bool
}

func (s *flakySource) Name() string { return "flaky" }

func (s *flakySource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return decimal.Zero, ctx.Err()
	}
	if s.calls <= s.failures {
		return decimal.Zero, s.failWith
	}
	return d("42"), nil
}

func (s *flakySource) Series(ctx context.Context, symbol, period, interval string) (domain.PriceSeries, error) {
	s.calls++
	if s.calls <= s.failures {
		return domain.PriceSeries{}, s.failWith
	}
	return domain.NewPriceSeries(symbol, []domain.PricePoint{{Time: time.Unix(1, 0), Close: d("1")}})
}

type recordingObserver struct {
	operations []string
	errs       int
}

func (o *recordingObserver) ObserveFetch(provider, operation string, elapsed time.Duration, err error) {
	o.operations = append(o.operations, provider+":"+operation)
	if err != nil {
		o.errs++
	}
}

func fastRetries() ResilientOption {
	return WithRetrierOptions(retrier.WithInitialInterval(time.Millisecond), retrier.WithMaxRetries(3))
}

func TestResilient_RetriesNetworkErrors(t *testing.T) {
	src := &flakySource{failures: 2, failWith: domain.NetworkError(errors.New("reset"), "fetch")}
	obs := &recordingObserver{}
	r := NewResilient(src, time.Second, 3, nil, fastRetries(), WithObserver(obs))

	price, err := r.Quote(context.Background(), "BTC")
	require.NoError(t, err)
	assert.True(t, d("42").Equal(price))
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, []string{"flaky:quote", "flaky:quote", "flaky:quote"}, obs.operations)
	assert.Equal(t, 2, obs.errs)
	assert.Equal(t, "flaky", r.Name())
}

func TestResilient_DoesNotRetryUnavailable(t *testing.T) {
	src := &flakySource{failures: 5, failWith: domain.QuoteUnavailableError(nil, "no data")}
	r := NewResilient(src, time.Second, 3, nil, fastRetries())

	_, err := r.Series(context.Background(), "NOPE", "1d", "1h")
	assert.True(t, errors.Is(err, domain.ErrQuoteUnavailable))
	assert.Equal(t, 1, src.calls)
}

func TestResilient_GivesUp(t *testing.T) {
	src := &flakySource{failures: 10, failWith: domain.NetworkError(nil, "down")}
	r := NewResilient(src, time.Second, 2, nil, WithRetrierOptions(retrier.WithInitialInterval(time.Millisecond), retrier.WithMaxRetries(2)))

	_, err := r.Quote(context.Background(), "BTC")
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.Equal(t, 3, src.calls)
}

func TestResilient_TimeoutIsNetworkError(t *testing.T) {
	src := &flakySource{block: true}
	r := NewResilient(src, 5*time.Millisecond, 1, nil, WithRetrierOptions(retrier.WithInitialInterval(time.Millisecond), retrier.WithMaxRetries(1)))

	_, err := r.Quote(context.Background(), "BTC")
	assert.True(t, errors.Is(err, domain.ErrNetwork), err.Error())
	assert.Equal(t, 2, src.calls)
}
