package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperbot/config"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/internal/services/market"
)

func TestAlertsConfigResolvesAliases(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.OperatorID = 1001
	cfg.Alerts.Cron = "@every 5m"
	cfg.Alerts.Symbols = []string{"btc", "eth-usd", "BTC-USD"}

	got, err := alertsConfig(cfg, market.Aliases{"BTC": "BTC-USD"})
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, got.Symbols)
	assert.Equal(t, int64(1001), got.ChatID)
	assert.Equal(t, "@every 5m", got.Schedule)
	assert.Equal(t, cfg.Strategy.RSIWindow, got.RSIWindow)

	cfg.Alerts.Symbols = []string{"not a symbol"}
	_, err = alertsConfig(cfg, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidSymbol)
}
