// Command paperbot runs a private Telegram bot for paper trading on live market prices.
// It keeps an in-memory cash and holdings ledger, computes RSI signals and draws price charts.
//
// Usage:
//
//	paperbot -config config.yaml
//	paperbot -setup (interactive config wizard)
//
// Environment variables (also read from .env):
//
//	BOT_TOKEN, OPERATOR_ID, MARKET_PROVIDER, METRICS_ADDR
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/paperbot/config"
	"github.com/vadiminshakov/paperbot/internal/alerts"
	"github.com/vadiminshakov/paperbot/internal/bot"
	"github.com/vadiminshakov/paperbot/internal/metrics"
	"github.com/vadiminshakov/paperbot/internal/services/chart"
	"github.com/vadiminshakov/paperbot/internal/services/ledger"
	"github.com/vadiminshakov/paperbot/internal/services/market"
	"github.com/vadiminshakov/paperbot/internal/setup"
	"github.com/vadiminshakov/paperbot/internal/transport/telegram"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	if flags.Setup {
		if err := setup.RunTUI(flags.ConfigPath); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(flags.ConfigPath, flags.EnvFile)
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg.Log.Development)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("paperbot stopped", zap.Error(err))
	}
	logger.Info("paperbot stopped")
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	return logger
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	account, err := ledger.NewAccount(cfg.Account.InitialCash,
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithQuantityPrecision(cfg.Account.QuantityPrecision))
	if err != nil {
		return err
	}

	m := metrics.New(account)

	httpClient := &http.Client{}
	provider, err := market.NewSource(ctx, cfg.Market.Provider, cfg.Market.BaseURL, httpClient)
	if err != nil {
		return err
	}
	source := market.NewResilient(provider, cfg.Market.Timeout, cfg.Market.Retries,
		logger.Named("market"), market.WithObserver(m))

	aliases := market.Aliases(cfg.Market.Aliases)
	dispatcher, err := bot.NewDispatcher(account, source, chart.NewRenderer(0, 0), bot.Settings{
		OperatorID:          cfg.Telegram.OperatorID,
		Currency:            cfg.Account.Currency,
		DefaultSymbol:       cfg.Market.DefaultSymbol,
		Period:              cfg.Market.Period,
		Interval:            cfg.Market.Interval,
		RSIWindow:           cfg.Strategy.RSIWindow,
		Strategy:            cfg.IndicatorStrategy(),
		DefaultBuyNotional:  cfg.Trading.DefaultBuyNotional,
		DefaultSellQuantity: cfg.Trading.DefaultSellQuantity,
	},
		bot.WithLogger(logger.Named("bot")),
		bot.WithRecorder(m),
		bot.WithAliases(aliases),
	)
	if err != nil {
		return err
	}

	client, err := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL, httpClient,
		cfg.Telegram.PollTimeout, logger.Named("telegram"))
	if err != nil {
		return err
	}
	poller := telegram.NewPoller(client, func(ctx context.Context, msg telegram.Message) telegram.Outgoing {
		reply := dispatcher.Handle(ctx, msg.SenderID, msg.Text)
		return telegram.Outgoing{Text: reply.Text, Photo: reply.Image}
	}, logger.Named("telegram"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return poller.Run(gctx)
	})

	if cfg.Alerts.Cron != "" {
		alertsCfg, err := alertsConfig(cfg, aliases)
		if err != nil {
			return err
		}
		watcher, err := alerts.NewWatcher(alertsCfg, source, client, m, logger.Named("alerts"))
		if err != nil {
			return err
		}
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics server started", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("paperbot started",
		zap.String("provider", source.Name()),
		zap.String("symbol", cfg.Market.DefaultSymbol),
		zap.String("cash", cfg.Account.InitialCash.String()))

	return g.Wait()
}

// alertsConfig builds the watcher settings, alert symbols go through the same aliases as chat commands.
func alertsConfig(cfg config.Config, aliases market.Aliases) (alerts.Config, error) {
	symbols, err := aliases.ResolveAll(cfg.Alerts.Symbols)
	if err != nil {
		return alerts.Config{}, errors.Wrap(err, "alerts symbols")
	}
	return alerts.Config{
		Schedule:  cfg.Alerts.Cron,
		Symbols:   symbols,
		ChatID:    cfg.Telegram.OperatorID,
		Period:    cfg.Market.Period,
		Interval:  cfg.Market.Interval,
		RSIWindow: cfg.Strategy.RSIWindow,
		Strategy:  cfg.IndicatorStrategy(),
	}, nil
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
