package setup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/config"
	"github.com/vadiminshakov/paperbot/internal/domain"
	"github.com/vadiminshakov/paperbot/internal/services/market"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)
)

const title = "PAPERBOT SETUP"

// answers raw wizard input, every field is a string so huh inputs can bind to it.
type answers struct {
	token       string
	operatorID  string
	provider    string
	symbol      string
	period      string
	interval    string
	initialCash string
	currency    string
	rsiWindow   string
	buyBelow    string
	sellAbove   string
	buyNotional string
	sellQty     string
	alertsCron  string
}

func defaultAnswers(cfg config.Config) answers {
	return answers{
		token:       cfg.Telegram.Token,
		operatorID:  formatID(cfg.Telegram.OperatorID),
		provider:    cfg.Market.Provider,
		symbol:      cfg.Market.DefaultSymbol,
		period:      cfg.Market.Period,
		interval:    cfg.Market.Interval,
		initialCash: cfg.Account.InitialCash.String(),
		currency:    cfg.Account.Currency,
		rsiWindow:   strconv.Itoa(cfg.Strategy.RSIWindow),
		buyBelow:    cfg.Strategy.BuyBelow.String(),
		sellAbove:   cfg.Strategy.SellAbove.String(),
		buyNotional: cfg.Trading.DefaultBuyNotional.String(),
		sellQty:     cfg.Trading.DefaultSellQuantity.String(),
		alertsCron:  cfg.Alerts.Cron,
	}
}

// RunTUI launches the terminal wizard and writes the result to path.
func RunTUI(path string) error {
	a := defaultAnswers(config.Default())
	var confirm bool

	screen("")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Paper trading on live prices, no real money involved.\n"))

	screen("STEP 1: TELEGRAM")
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("Issued by @BotFather").
				Value(&a.token).
				EchoMode(huh.EchoModePassword).
				Validate(required("token")),
			huh.NewInput().
				Title("Operator user id").
				Description("Only this Telegram user may talk to the bot").
				Value(&a.operatorID).
				Validate(validateID),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 2: MARKET DATA")
	options := make([]huh.Option[string], 0, len(market.Providers))
	for _, p := range market.Providers {
		options = append(options, huh.NewOption(strings.ToUpper(p[:1])+p[1:], p))
	}
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Price provider").
				Options(options...).
				Value(&a.provider),
			huh.NewInput().
				Title("Default symbol").
				Description("Yahoo style ticker (e.g. BTC-USD)").
				Value(&a.symbol).
				Validate(validateSymbol),
			huh.NewInput().
				Title("History period").
				Description("e.g. 1d, 7d, 1mo").
				Value(&a.period).
				Validate(validateSpan),
			huh.NewInput().
				Title("Candle interval").
				Description("e.g. 1m, 5m, 1h").
				Value(&a.interval).
				Validate(validateSpan),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 3: ACCOUNT AND STRATEGY")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Starting cash").Value(&a.initialCash).Validate(validateNonNegative),
			huh.NewInput().Title("Currency label").Value(&a.currency).Validate(required("currency")),
			huh.NewInput().Title("RSI window").Value(&a.rsiWindow).Validate(validateWindow),
			huh.NewInput().Title("Buy below RSI").Value(&a.buyBelow).Validate(validateLevel),
			huh.NewInput().Title("Sell above RSI").Value(&a.sellAbove).Validate(validateLevel),
			huh.NewInput().Title("Default /buy cash amount").Value(&a.buyNotional).Validate(validatePositive),
			huh.NewInput().Title("Default /sell quantity").Value(&a.sellQty).Validate(validatePositive),
			huh.NewInput().
				Title("Alert schedule").
				Description("Cron spec, e.g. @every 5m; empty disables alerts").
				Value(&a.alertsCron),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Provider: %s\nSymbol: %s (%s / %s)\nCash: %s %s\nRSI(%s): buy < %s, sell > %s\nAlerts: %s\n",
		a.provider, a.symbol, a.period, a.interval, a.initialCash, a.currency,
		a.rsiWindow, a.buyBelow, a.sellAbove, orNone(a.alertsCron),
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfg, err := a.toConfig()
	if err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

// toConfig builds a validated configuration from wizard answers.
func (a answers) toConfig() (config.Config, error) {
	cfg := config.Default()

	id, err := strconv.ParseInt(strings.TrimSpace(a.operatorID), 10, 64)
	if err != nil {
		return config.Config{}, fmt.Errorf("operator id: %w", err)
	}
	window, err := strconv.Atoi(strings.TrimSpace(a.rsiWindow))
	if err != nil {
		return config.Config{}, fmt.Errorf("rsi window: %w", err)
	}

	cfg.Telegram.Token = strings.TrimSpace(a.token)
	cfg.Telegram.OperatorID = id
	cfg.Market.Provider = a.provider
	cfg.Market.DefaultSymbol = strings.ToUpper(strings.TrimSpace(a.symbol))
	cfg.Market.Period = strings.TrimSpace(a.period)
	cfg.Market.Interval = strings.TrimSpace(a.interval)
	cfg.Account.Currency = strings.TrimSpace(a.currency)
	cfg.Strategy.RSIWindow = window
	cfg.Alerts.Cron = strings.TrimSpace(a.alertsCron)
	if cfg.Alerts.Cron != "" {
		cfg.Alerts.Symbols = []string{cfg.Market.DefaultSymbol}
	}

	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{a.initialCash, &cfg.Account.InitialCash},
		{a.buyBelow, &cfg.Strategy.BuyBelow},
		{a.sellAbove, &cfg.Strategy.SellAbove},
		{a.buyNotional, &cfg.Trading.DefaultBuyNotional},
		{a.sellQty, &cfg.Trading.DefaultSellQuantity},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(strings.TrimSpace(f.raw))
		if err != nil {
			return config.Config{}, fmt.Errorf("incorrect number %q: %w", f.raw, err)
		}
		*f.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(title))
	if step != "" {
		fmt.Println(stepStyle.Render(step))
	}
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		return nil
	}
}

func validateID(s string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("must be a non-zero integer")
	}
	return nil
}

func validateSymbol(s string) error {
	_, err := domain.NormalizeSymbol(s)
	return err
}

func validateSpan(s string) error {
	_, err := market.ParseSpan(strings.TrimSpace(s))
	return err
}

func validateWindow(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateLevel(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateNonNegative(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func orNone(s string) string {
	if s == "" {
		return "disabled"
	}
	return s
}
