package ports

import (
	"context"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// Notifier presenta o publica el resultado de cada ciclo.
type Notifier interface {
	// NotifyCycle recibe el resumen de un ciclo (incluidos los abortados).
	NotifyCycle(ctx context.Context, report domain.CycleReport) error

	// NotifyTrade recibe cada trade ejecutado o simulado.
	NotifyTrade(ctx context.Context, trade domain.TradeRecord) error
}
