package domain

import "errors"

// Taxonomía de errores del bot. Los adapters los envuelven con contexto
// (fmt.Errorf("...: %w", err)) y el controller los clasifica con errors.Is.
var (
	// ErrDataUnavailable: fallo al obtener datos de mercado. Aborta el ciclo si es total.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientData: un asset no tiene al menos 2 muestras válidas en la ventana.
	// El asset se excluye del ranking ese ciclo; el ciclo continúa.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrFeeScheduleMissing: no hay fee configurado para un asset que se operaría.
	// Nunca se asume fee cero.
	ErrFeeScheduleMissing = errors.New("fee schedule missing")

	// ErrOrderRejected: el exchange rechazó la orden. La posición no cambia.
	ErrOrderRejected = errors.New("order rejected")

	// ErrOrderTimeout: la orden no se confirmó dentro del timeout.
	ErrOrderTimeout = errors.New("order timeout")

	// ErrConfiguration: configuración inválida, fatal al arrancar.
	ErrConfiguration = errors.New("configuration error")
)
