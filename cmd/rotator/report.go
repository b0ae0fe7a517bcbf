package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/rotator/config"
	"github.com/alejandrodnm/rotator/internal/adapters/notify"
	"github.com/alejandrodnm/rotator/internal/adapters/storage"
	"github.com/alejandrodnm/rotator/internal/domain"
)

const (
	reportTrades    = 50
	reportSnapshots = 24 * 90
)

// runReport imprime el histórico desde la base de datos, sin tocar el exchange.
// El valor actual usa los precios del último snapshot.
func runReport(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, console *notify.Console) error {
	pos, ok, err := store.LoadPosition(ctx)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}
	if !ok {
		pos = domain.CashPosition(cfg.Trading.Quote, cfg.Trading.InitialCapital)
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}
	trades, err := store.Trades(ctx, reportTrades)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}
	snaps, err := store.Snapshots(ctx, reportSnapshots)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}

	var prices map[string]float64
	if len(snaps) > 0 {
		prices = snaps[0].Prices
	}

	console.PrintReport(notify.ReportInput{
		Quote:          cfg.Trading.Quote,
		InitialCapital: cfg.Trading.InitialCapital,
		Position:       pos,
		Value:          pos.Notional(cfg.Trading.Quote, prices),
		Trades:         trades,
		TradeCount:     totals.Count,
		TotalFees:      totals.Fees,
		Snapshots:      snaps,
	})
	return nil
}
