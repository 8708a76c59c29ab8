package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/internal/services/indicators"
)

type scriptedSource struct {
	mu     sync.Mutex
	closes map[string][]float64
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Quote(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, domain.QuoteUnavailableError(nil, "not used")
}

func (s *scriptedSource) Series(_ context.Context, symbol, _, _ string) (domain.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closes, ok := s.closes[symbol]
	if !ok {
		return domain.PriceSeries{}, domain.NetworkError(nil, "down")
	}
	base := time.Unix(1700000000, 0)
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{Time: base.Add(time.Duration(i) * time.Minute), Close: decimal.NewFromFloat(c)}
	}
	return domain.NewPriceSeries(symbol, points)
}

func (s *scriptedSource) set(symbol string, closes ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes[symbol] = closes
}

type inbox struct {
	mu       sync.Mutex
	messages []string
	signals  []string
	failures int
}

func (i *inbox) SendMessage(_ context.Context, chatID int64, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.failures > 0 {
		i.failures--
		return errors.New("telegram unavailable")
	}
	i.messages = append(i.messages, text)
	return nil
}

func (i *inbox) SignalEmitted(symbol, signal string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.signals = append(i.signals, symbol+":"+signal)
}

func (i *inbox) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.messages)
}

func testConfig(symbols ...string) Config {
	return Config{
		Schedule:  "@every 1s",
		Symbols:   symbols,
		ChatID:    7,
		Period:    "1d",
		Interval:  "5m",
		RSIWindow: 3,
		Strategy:  indicators.DefaultStrategy(),
	}
}

func TestWatcher_NotifiesOnTransitions(t *testing.T) {
	src := &scriptedSource{closes: map[string][]float64{}}
	box := &inbox{}
	w, err := NewWatcher(testConfig("BTC-USD", "ETH-USD"), src, box, box, nil)
	require.NoError(t, err)

	src.set("BTC-USD", 10, 9, 8, 7)
	src.set("ETH-USD", 1, 2, 1, 2)

	w.Check(context.Background())
	require.Len(t, box.messages, 1)
	assert.Contains(t, box.messages[0], "BUY signal for BTC-USD")
	assert.Equal(t, []string{"BTC-USD:BUY"}, box.signals)

	// unchanged signal is not repeated
	w.Check(context.Background())
	assert.Len(t, box.messages, 1)

	src.set("BTC-USD", 7, 8, 9, 10)
	w.Check(context.Background())
	require.Len(t, box.messages, 2)
	assert.Contains(t, box.messages[1], "SELL signal for BTC-USD")

	// back to HOLD and then BUY again notifies again
	src.set("BTC-USD", 10, 11, 10, 11)
	w.Check(context.Background())
	src.set("BTC-USD", 10, 9, 8, 7)
	w.Check(context.Background())
	assert.Len(t, box.messages, 3)
}

func TestWatcher_SkipsFailures(t *testing.T) {
	src := &scriptedSource{closes: map[string][]float64{"ETH-USD": {5, 4, 3, 2}}}
	box := &inbox{}
	w, err := NewWatcher(testConfig("DOWN", "ETH-USD"), src, box, nil, nil)
	require.NoError(t, err)

	w.Check(context.Background())
	require.Len(t, box.messages, 1)
	assert.Contains(t, box.messages[0], "ETH-USD")
}

func TestWatcher_RetriesUndeliveredAlert(t *testing.T) {
	src := &scriptedSource{closes: map[string][]float64{"BTC-USD": {10, 9, 8, 7}}}
	box := &inbox{failures: 1}
	w, err := NewWatcher(testConfig("BTC-USD"), src, box, box, nil)
	require.NoError(t, err)

	w.Check(context.Background())
	assert.Empty(t, box.messages)
	assert.Empty(t, box.signals)

	// same BUY signal on the next tick is delivered once
	w.Check(context.Background())
	require.Len(t, box.messages, 1)
	assert.Contains(t, box.messages[0], "BUY signal for BTC-USD")
	assert.Equal(t, []string{"BTC-USD:BUY"}, box.signals)

	w.Check(context.Background())
	assert.Len(t, box.messages, 1)
}

func TestWatcher_Run(t *testing.T) {
	src := &scriptedSource{closes: map[string][]float64{"BTC-USD": {4, 3, 2, 1}}}
	box := &inbox{}
	w, err := NewWatcher(testConfig("BTC-USD"), src, box, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return box.count() == 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewWatcher_Validation(t *testing.T) {
	src := &scriptedSource{closes: map[string][]float64{}}

	cfg := testConfig("BTC-USD")
	cfg.Schedule = "every now and then"
	_, err := NewWatcher(cfg, src, &inbox{}, nil, nil)
	assert.Error(t, err)

	_, err = NewWatcher(testConfig(), src, &inbox{}, nil, nil)
	assert.Error(t, err)

	cfg = testConfig("BTC-USD")
	cfg.Schedule = "*/5 * * * *"
	_, err = NewWatcher(cfg, src, &inbox{}, nil, nil)
	assert.NoError(t, err)
}
