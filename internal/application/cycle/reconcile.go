package cycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/alejandrodnm/rotator/internal/ports"
)

// Restore devuelve la posición con la que arranca la sesión.
//
// La posición guardada se contrasta con el último trade del histórico: si el
// trade es posterior a la posición (se perdió el write de la posición), manda
// el trade. Sin posición ni trades se arranca en cash con initialCapital.
func Restore(ctx context.Context, store ports.Storage, quote string, initialCapital float64, simulated bool) (domain.Position, error) {
	stored, hasPos, err := store.LoadPosition(ctx)
	if err != nil {
		return domain.Position{}, fmt.Errorf("cycle.Restore: %w", err)
	}
	last, hasTrade, err := store.LastTrade(ctx)
	if err != nil {
		return domain.Position{}, fmt.Errorf("cycle.Restore: %w", err)
	}

	if hasTrade && last.Simulated != simulated {
		slog.Warn("trade history was produced in a different mode",
			"last_trade_simulated", last.Simulated,
			"running_simulated", simulated,
		)
	}

	var pos domain.Position
	switch {
	case !hasPos && !hasTrade:
		pos = domain.CashPosition(quote, initialCapital)
		slog.Info("no stored position, starting in cash", "capital", fmt.Sprintf("$%.2f", initialCapital), "quote", quote)
	case hasTrade && (!hasPos || last.Timestamp.After(stored.UpdatedAt)):
		pos = last.PositionAfter()
		slog.Warn("stored position behind trade history, reconciled from last trade",
			"trade_id", last.ID,
			"asset", pos.Asset,
			"quantity", pos.Quantity,
		)
	default:
		slog.Info("restored position", "asset", stored.Asset, "quantity", stored.Quantity)
		return stored, nil
	}

	if err := store.SavePosition(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("cycle.Restore: %w", err)
	}
	return pos, nil
}
