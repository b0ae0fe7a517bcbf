package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/alejandrodnm/rotator/internal/ports"
)

// Multi reparte cada notificación a todos los notifiers. Un fallo no
// impide notificar al resto; los errores se devuelven juntos.
type Multi []ports.Notifier

// NotifyCycle implementa ports.Notifier.
func (m Multi) NotifyCycle(ctx context.Context, r domain.CycleReport) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyCycle(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyTrade implementa ports.Notifier.
func (m Multi) NotifyTrade(ctx context.Context, t domain.TradeRecord) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyTrade(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
