package ports

import (
	"context"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// Executor es el execution adapter: live o simulado, elegido al arrancar.
// Nunca se invoca con una decisión Hold.
type Executor interface {
	// Execute intenta la rotación. Un rechazo o timeout del exchange se
	// devuelve como ExecutionResult con Status ExecRejected, no como error;
	// error queda para fallos del propio adapter.
	Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error)

	// Simulated devuelve true si el adapter no hace llamadas externas.
	Simulated() bool
}

// OrderPlacer es el colaborador de ejecución del exchange.
type OrderPlacer interface {
	// PlaceOrder vende quantity de from y compra to con lo obtenido.
	// Si from es la moneda quote, quantity es el importe en quote a gastar.
	// Devuelve errores envueltos en domain.ErrOrderRejected o domain.ErrOrderTimeout.
	PlaceOrder(ctx context.Context, from, to string, quantity float64) (domain.OrderResult, error)
}
