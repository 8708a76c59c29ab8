package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/internal/services/indicators"
	"github.com/vadiminshakov/paperbot/internal/services/market"
	"gopkg.in/yaml.v3"
)

// Config bot configuration with parsed values.
type Config struct {
	Telegram TelegramConfig
	Account  AccountConfig
	Market   MarketConfig
	Strategy StrategyConfig
	Trading  TradingConfig
	Alerts   AlertsConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

type TelegramConfig struct {
	Token       string
	OperatorID  int64
	PollTimeout time.Duration
	BaseURL     string
}

type AccountConfig struct {
	InitialCash       decimal.Decimal
	Currency          string
	QuantityPrecision int32
}

type MarketConfig struct {
	Provider      string
	BaseURL       string
	DefaultSymbol string
	Period        string
	Interval      string
	Timeout       time.Duration
	Retries       int
	Aliases       map[string]string
}

type StrategyConfig struct {
	RSIWindow int
	BuyBelow  decimal.Decimal
	SellAbove decimal.Decimal
}

type TradingConfig struct {
	DefaultBuyNotional  decimal.Decimal
	DefaultSellQuantity decimal.Decimal
}

type AlertsConfig struct {
	// Cron empty disables alerts.
	Cron    string
	Symbols []string
}

type MetricsConfig struct {
	// Addr empty disables the metrics endpoint. "off" in yaml or env maps to empty.
	Addr string
}

type LogConfig struct {
	Development bool
}

// ConfigTmp raw yaml representation, decimals are kept as strings.
type ConfigTmp struct {
	Telegram struct {
		Token       string        `yaml:"token,omitempty"`
		OperatorID  int64         `yaml:"operator_id,omitempty"`
		PollTimeout time.Duration `yaml:"poll_timeout,omitempty"`
		BaseURL     string        `yaml:"base_url,omitempty"`
	} `yaml:"telegram"`
	Account struct {
		InitialCash       string `yaml:"initial_cash,omitempty"`
		Currency          string `yaml:"currency,omitempty"`
		QuantityPrecision *int32 `yaml:"quantity_precision,omitempty"`
	} `yaml:"account"`
	Market struct {
		Provider      string            `yaml:"provider,omitempty"`
		BaseURL       string            `yaml:"base_url,omitempty"`
		DefaultSymbol string            `yaml:"default_symbol,omitempty"`
		Period        string            `yaml:"period,omitempty"`
		Interval      string            `yaml:"interval,omitempty"`
		Timeout       time.Duration     `yaml:"timeout,omitempty"`
		Retries       *int              `yaml:"retries,omitempty"`
		Aliases       map[string]string `yaml:"aliases,omitempty"`
	} `yaml:"market"`
	Strategy struct {
		RSIWindow int    `yaml:"rsi_window,omitempty"`
		BuyBelow  string `yaml:"buy_below,omitempty"`
		SellAbove string `yaml:"sell_above,omitempty"`
	} `yaml:"strategy"`
	Trading struct {
		DefaultBuyNotional  string `yaml:"default_buy_notional,omitempty"`
		DefaultSellQuantity string `yaml:"default_sell_quantity,omitempty"`
	} `yaml:"trading"`
	Alerts struct {
		Cron    string   `yaml:"cron,omitempty"`
		Symbols []string `yaml:"symbols,omitempty"`
	} `yaml:"alerts"`
	Metrics struct {
		Addr string `yaml:"addr,omitempty"`
	} `yaml:"metrics"`
	Log struct {
		Development bool `yaml:"development,omitempty"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Telegram: TelegramConfig{PollTimeout: 30 * time.Second},
		Account: AccountConfig{
			InitialCash:       decimal.NewFromInt(100000),
			Currency:          "USD",
			QuantityPrecision: 8,
		},
		Market: MarketConfig{
			Provider:      market.ProviderYahoo,
			DefaultSymbol: "BTC-USD",
			Period:        "7d",
			Interval:      "5m",
			Timeout:       15 * time.Second,
			Retries:       3,
			Aliases:       map[string]string{},
		},
		Strategy: StrategyConfig{
			RSIWindow: indicators.DefaultWindow,
			BuyBelow:  decimal.NewFromInt(30),
			SellAbove: decimal.NewFromInt(70),
		},
		Trading: TradingConfig{
			DefaultBuyNotional:  decimal.NewFromInt(5000),
			DefaultSellQuantity: decimal.RequireFromString("0.001"),
		},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Load reads envFile (if present), then the yaml file at path (if present), then env overrides, and validates the result.
func Load(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			cfg, err = Parse(data)
			if err != nil {
				return Config{}, err
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes yaml on top of the defaults.
func Parse(data []byte) (Config, error) {
	var tmp ConfigTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, fmt.Errorf("decode yaml config: %w", err)
	}
	return tmp.toConfig()
}

func (c ConfigTmp) toConfig() (Config, error) {
	cfg := Default()
	var err error

	cfg.Telegram.Token = c.Telegram.Token
	cfg.Telegram.OperatorID = c.Telegram.OperatorID
	cfg.Telegram.BaseURL = c.Telegram.BaseURL
	if c.Telegram.PollTimeout != 0 {
		cfg.Telegram.PollTimeout = c.Telegram.PollTimeout
	}

	if cfg.Account.InitialCash, err = decimalOr(c.Account.InitialCash, cfg.Account.InitialCash, "account.initial_cash"); err != nil {
		return Config{}, err
	}
	if c.Account.Currency != "" {
		cfg.Account.Currency = c.Account.Currency
	}
	if c.Account.QuantityPrecision != nil {
		cfg.Account.QuantityPrecision = *c.Account.QuantityPrecision
	}

	if c.Market.Provider != "" {
		cfg.Market.Provider = strings.ToLower(c.Market.Provider)
	}
	cfg.Market.BaseURL = c.Market.BaseURL
	if c.Market.DefaultSymbol != "" {
		cfg.Market.DefaultSymbol = c.Market.DefaultSymbol
	}
	if c.Market.Period != "" {
		cfg.Market.Period = c.Market.Period
	}
	if c.Market.Interval != "" {
		cfg.Market.Interval = c.Market.Interval
	}
	if c.Market.Timeout != 0 {
		cfg.Market.Timeout = c.Market.Timeout
	}
	if c.Market.Retries != nil {
		cfg.Market.Retries = *c.Market.Retries
	}
	for alias, target := range c.Market.Aliases {
		cfg.Market.Aliases[alias] = target
	}

	if c.Strategy.RSIWindow != 0 {
		cfg.Strategy.RSIWindow = c.Strategy.RSIWindow
	}
	if cfg.Strategy.BuyBelow, err = decimalOr(c.Strategy.BuyBelow, cfg.Strategy.BuyBelow, "strategy.buy_below"); err != nil {
		return Config{}, err
	}
	if cfg.Strategy.SellAbove, err = decimalOr(c.Strategy.SellAbove, cfg.Strategy.SellAbove, "strategy.sell_above"); err != nil {
		return Config{}, err
	}

	if cfg.Trading.DefaultBuyNotional, err = decimalOr(c.Trading.DefaultBuyNotional, cfg.Trading.DefaultBuyNotional, "trading.default_buy_notional"); err != nil {
		return Config{}, err
	}
	if cfg.Trading.DefaultSellQuantity, err = decimalOr(c.Trading.DefaultSellQuantity, cfg.Trading.DefaultSellQuantity, "trading.default_sell_quantity"); err != nil {
		return Config{}, err
	}

	cfg.Alerts.Cron = c.Alerts.Cron
	cfg.Alerts.Symbols = c.Alerts.Symbols
	if c.Metrics.Addr != "" {
		cfg.Metrics.Addr = metricsAddr(c.Metrics.Addr)
	}
	cfg.Log.Development = c.Log.Development

	return cfg, nil
}

// Raw converts the configuration back to its yaml form.
func (c Config) Raw() ConfigTmp {
	var tmp ConfigTmp

	tmp.Telegram.Token = c.Telegram.Token
	tmp.Telegram.OperatorID = c.Telegram.OperatorID
	tmp.Telegram.PollTimeout = c.Telegram.PollTimeout
	tmp.Telegram.BaseURL = c.Telegram.BaseURL

	tmp.Account.InitialCash = c.Account.InitialCash.String()
	tmp.Account.Currency = c.Account.Currency
	precision := c.Account.QuantityPrecision
	tmp.Account.QuantityPrecision = &precision

	tmp.Market.Provider = c.Market.Provider
	tmp.Market.BaseURL = c.Market.BaseURL
	tmp.Market.DefaultSymbol = c.Market.DefaultSymbol
	tmp.Market.Period = c.Market.Period
	tmp.Market.Interval = c.Market.Interval
	tmp.Market.Timeout = c.Market.Timeout
	retries := c.Market.Retries
	tmp.Market.Retries = &retries
	tmp.Market.Aliases = c.Market.Aliases

	tmp.Strategy.RSIWindow = c.Strategy.RSIWindow
	tmp.Strategy.BuyBelow = c.Strategy.BuyBelow.String()
	tmp.Strategy.SellAbove = c.Strategy.SellAbove.String()

	tmp.Trading.DefaultBuyNotional = c.Trading.DefaultBuyNotional.String()
	tmp.Trading.DefaultSellQuantity = c.Trading.DefaultSellQuantity.String()

	tmp.Alerts.Cron = c.Alerts.Cron
	tmp.Alerts.Symbols = c.Alerts.Symbols
	tmp.Metrics.Addr = c.Metrics.Addr
	if tmp.Metrics.Addr == "" {
		tmp.Metrics.Addr = metricsOff
	}
	tmp.Log.Development = c.Log.Development

	return tmp
}

// Save writes the configuration as yaml.
func Save(path string, c Config) error {
	data, err := yaml.Marshal(c.Raw())
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// applyEnv overrides secrets and deployment settings from the environment.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("OPERATOR_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("incorrect OPERATOR_ID %q (must be an integer): %w", v, err)
		}
		cfg.Telegram.OperatorID = id
	}
	if v := os.Getenv("MARKET_PROVIDER"); v != "" {
		cfg.Market.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = metricsAddr(v)
	}
	return nil
}

// Validate checks value ranges and cross-field consistency.
func (c Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (telegram.token or BOT_TOKEN)")
	}
	if c.Telegram.OperatorID == 0 {
		return errors.New("operator id is required (telegram.operator_id or OPERATOR_ID)")
	}
	if c.Telegram.PollTimeout < time.Second {
		return fmt.Errorf("telegram.poll_timeout must be at least 1s, got %s", c.Telegram.PollTimeout)
	}

	if c.Account.InitialCash.IsNegative() {
		return fmt.Errorf("account.initial_cash must not be negative, got %s", c.Account.InitialCash)
	}
	if c.Account.QuantityPrecision < 0 || c.Account.QuantityPrecision > 18 {
		return fmt.Errorf("account.quantity_precision must be within [0, 18], got %d", c.Account.QuantityPrecision)
	}

	if !isSupportedProvider(c.Market.Provider) {
		return fmt.Errorf("unsupported market.provider %q, want one of %s", c.Market.Provider, strings.Join(market.Providers, ", "))
	}
	if _, err := domain.NormalizeSymbol(c.Market.DefaultSymbol); err != nil {
		return fmt.Errorf("incorrect market.default_symbol: %w", err)
	}
	period, err := market.ParseSpan(c.Market.Period)
	if err != nil {
		return fmt.Errorf("incorrect market.period: %w", err)
	}
	interval, err := market.ParseSpan(c.Market.Interval)
	if err != nil {
		return fmt.Errorf("incorrect market.interval: %w", err)
	}
	if interval > period {
		return fmt.Errorf("market.interval %s is longer than market.period %s", c.Market.Interval, c.Market.Period)
	}
	if c.Market.Retries < 0 {
		return fmt.Errorf("market.retries must not be negative, got %d", c.Market.Retries)
	}
	for alias, target := range c.Market.Aliases {
		if _, err := domain.NormalizeSymbol(target); err != nil {
			return fmt.Errorf("incorrect market alias %s: %w", alias, err)
		}
	}

	if c.Strategy.RSIWindow < 1 {
		return fmt.Errorf("strategy.rsi_window must be positive, got %d", c.Strategy.RSIWindow)
	}
	if err := c.IndicatorStrategy().Validate(); err != nil {
		return fmt.Errorf("incorrect strategy thresholds: %w", err)
	}

	if !c.Trading.DefaultBuyNotional.IsPositive() {
		return fmt.Errorf("trading.default_buy_notional must be positive, got %s", c.Trading.DefaultBuyNotional)
	}
	if !c.Trading.DefaultSellQuantity.IsPositive() {
		return fmt.Errorf("trading.default_sell_quantity must be positive, got %s", c.Trading.DefaultSellQuantity)
	}

	if c.Alerts.Cron != "" && len(c.Alerts.Symbols) == 0 {
		return errors.New("alerts.symbols must not be empty when alerts.cron is set")
	}
	for _, s := range c.Alerts.Symbols {
		if _, err := domain.NormalizeSymbol(s); err != nil {
			return fmt.Errorf("incorrect alerts symbol: %w", err)
		}
	}

	return nil
}

// IndicatorStrategy returns RSI thresholds for the indicator engine.
func (c Config) IndicatorStrategy() indicators.Strategy {
	return indicators.Strategy{BuyBelow: c.Strategy.BuyBelow, SellAbove: c.Strategy.SellAbove}
}

const metricsOff = "off"

func metricsAddr(v string) string {
	if strings.EqualFold(v, metricsOff) {
		return ""
	}
	return v
}

func isSupportedProvider(p string) bool {
	for _, known := range market.Providers {
		if p == known {
			return true
		}
	}
	return false
}

func decimalOr(raw string, fallback decimal.Decimal, key string) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("incorrect '%s' param in yaml config (must be a decimal), error: %w", key, err)
	}
	return v, nil
}
