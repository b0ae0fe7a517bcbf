package ports

import (
	"context"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// MarketData obtiene series de precios y la estructura de fees del exchange.
// Cualquier fallo se reporta envuelto en domain.ErrDataUnavailable.
type MarketData interface {
	// PriceSeries devuelve las muestras de un asset que cubren la ventana.
	PriceSeries(ctx context.Context, asset string, window domain.LookbackWindow) (domain.PriceSeries, error)

	// FeeSchedule devuelve las tasas maker/taker de la cuenta para el universo configurado.
	FeeSchedule(ctx context.Context) (domain.FeeSchedule, error)
}
