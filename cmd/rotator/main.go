package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/rotator/config"
	"github.com/alejandrodnm/rotator/internal/adapters/exchange"
	"github.com/alejandrodnm/rotator/internal/adapters/notify"
	"github.com/alejandrodnm/rotator/internal/adapters/storage"
	"github.com/alejandrodnm/rotator/internal/application/cycle"
	"github.com/alejandrodnm/rotator/internal/application/evaluator"
	"github.com/alejandrodnm/rotator/internal/application/execution"
	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/alejandrodnm/rotator/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	simulate := flag.Bool("simulate", false, "simulate fills instead of placing real orders")
	once := flag.Bool("once", false, "run one cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full ranking table per cycle (default: compact 1-line)")
	report := flag.Bool("report", false, "print trade history and P&L, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if _, err := exchange.IntervalCode(cfg.Window().Interval); err != nil {
		slog.Error("invalid candle interval", "err", fmt.Errorf("%w: %w", domain.ErrConfiguration, err))
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN,
		storage.WithSnapshotRetention(time.Duration(cfg.Storage.SnapshotRetentionDays)*24*time.Hour))
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	console := notify.NewConsole(*table)

	if *report {
		if err := runReport(context.Background(), cfg, store, console); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("rotator starting",
		"config", *configPath,
		"quote", cfg.Trading.Quote,
		"assets", cfg.Trading.Assets,
		"interval", cfg.Interval(),
		"threshold", cfg.Decision().Threshold,
		"metric", cfg.Scoring.Metric,
		"simulate", *simulate,
		"once", *once,
	)

	client := exchange.NewClient(exchange.Config{
		BaseURL:        cfg.Exchange.BaseURL,
		APIKey:         cfg.Exchange.APIKey,
		APISecret:      cfg.Exchange.APISecret,
		Account:        cfg.Exchange.Account,
		Quote:          cfg.Trading.Quote,
		Assets:         cfg.Trading.Assets,
		RequestTimeout: time.Duration(cfg.Exchange.RequestTimeoutSeconds) * time.Second,
		RatePerSec:     cfg.Exchange.RateLimitPerSec,
		DefaultFees:    domain.FeeRates{Maker: cfg.Fees.Maker, Taker: cfg.Fees.Taker},
		FeeOverrides:   cfg.FeeOverrides(),
		UseMaker:       cfg.Fees.UseMaker,
		FeeDiscount:    cfg.Fees.Discount,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var exec ports.Executor
	if *simulate {
		exec = execution.NewSimulated()
	} else {
		if !client.HasCredentials() {
			slog.Error("live mode needs EXCHANGE_API_KEY and EXCHANGE_API_SECRET (or run with --simulate)",
				"err", domain.ErrConfiguration)
			os.Exit(1)
		}
		if !confirmLive(ctx, cfg) {
			return
		}
		exec = execution.NewLive(client, time.Duration(cfg.Exchange.OrderTimeoutSeconds)*time.Second)
	}

	notifier, closeNotifier := buildNotifier(ctx, cfg, console)
	defer closeNotifier()

	pos, err := cycle.Restore(ctx, store, cfg.Trading.Quote, cfg.Trading.InitialCapital, exec.Simulated())
	if err != nil {
		slog.Error("failed to restore position", "err", err)
		os.Exit(1)
	}

	eval := evaluator.New(evaluator.Config{
		Window:       cfg.Window(),
		Score:        cfg.ScoreConfig(),
		Workers:      cfg.Scoring.Workers,
		FetchTimeout: time.Duration(cfg.Scoring.FetchTimeoutSecs) * time.Second,
	}, client)

	ctrl := cycle.New(cycle.Config{
		Assets:                 cfg.Trading.Assets,
		Quote:                  cfg.Trading.Quote,
		Interval:               cfg.Interval(),
		Decision:               cfg.Decision(),
		MaxTradesPerDay:        cfg.Trading.MaxTradesPerDay,
		MaxConsecutiveFailures: cfg.Trading.MaxConsecutiveFailures,
		Once:                   *once,
		FeeTimeout:             time.Duration(cfg.Exchange.RequestTimeoutSeconds) * time.Second,
		StopFile:               cfg.Trading.StopFile,
	}, eval, client, exec, store, notifier)

	final, err := ctrl.Run(ctx, pos)
	if err != nil {
		slog.Error("rotator exited with error", "err", err, "asset", final.Asset, "quantity", final.Quantity)
		os.Exit(1)
	}

	slog.Info("rotator stopped cleanly", "asset", final.Asset, "quantity", final.Quantity)
}

// buildNotifier devuelve la consola y, si hay redis_addr, también Redis.
// Si Redis no responde se sigue solo con consola.
func buildNotifier(ctx context.Context, cfg *config.Config, console *notify.Console) (ports.Notifier, func()) {
	if cfg.Notify.RedisAddr == "" {
		return console, func() {}
	}
	rdb, err := notify.DialRedis(ctx, cfg.Notify.RedisAddr, cfg.Notify.RedisPassword, cfg.Notify.RedisDB)
	if err != nil {
		slog.Warn("redis unavailable, notifying to console only", "err", err)
		return console, func() {}
	}
	slog.Info("redis notifier enabled", "addr", cfg.Notify.RedisAddr, "prefix", cfg.Notify.RedisPrefix)
	r := notify.NewRedis(rdb, cfg.Notify.RedisPrefix, cfg.Notify.RedisStream, cfg.Notify.StreamMaxLen)
	return notify.Multi{console, r}, func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("redis close", "err", err)
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
