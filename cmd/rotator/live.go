package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/rotator/config"
)

const liveAbortWindow = 5 * time.Second

// confirmLive avisa de que se va a operar con dinero real y deja unos
// segundos para abortar con Ctrl+C. Devuelve false si se abortó.
func confirmLive(ctx context.Context, cfg *config.Config) bool {
	slog.Info("=== LIVE TRADING MODE (REAL MONEY) ===",
		"account", cfg.Exchange.Account,
		"quote", cfg.Trading.Quote,
		"max_trades_per_day", cfg.Trading.MaxTradesPerDay,
	)

	fmt.Printf("\n⚠️  LIVE TRADING MODE: REAL ORDERS WILL BE PLACED\n")
	fmt.Printf("   Account: %s | Universe: %v | Threshold: %.4f\n",
		cfg.Exchange.Account, cfg.Trading.Assets, cfg.Decision().Threshold)
	fmt.Printf("   Press Ctrl+C within %s to abort...\n\n", liveAbortWindow)

	timer := time.NewTimer(liveAbortWindow)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		slog.Info("live trading aborted by user")
		return false
	}
}
