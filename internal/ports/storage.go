package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// Storage persiste el histórico de trades (append-only), la última posición
// conocida y los snapshots de cartera.
type Storage interface {
	// CommitTrade añade el trade y guarda la posición resultante en una sola transacción.
	CommitTrade(ctx context.Context, trade domain.TradeRecord, pos domain.Position) error

	// LoadPosition devuelve la última posición guardada; ok=false si no hay ninguna.
	LoadPosition(ctx context.Context) (pos domain.Position, ok bool, err error)

	// SavePosition guarda la posición sin trade asociado (posición inicial o reconciliada).
	SavePosition(ctx context.Context, pos domain.Position) error

	// LastTrade devuelve el trade más reciente; ok=false si el histórico está vacío.
	LastTrade(ctx context.Context) (trade domain.TradeRecord, ok bool, err error)

	// Trades devuelve los últimos n trades, el más reciente primero (n <= 0 = todos).
	Trades(ctx context.Context, n int) ([]domain.TradeRecord, error)

	// CountTradesSince cuenta los trades con timestamp >= since.
	CountTradesSince(ctx context.Context, since time.Time) (int, error)

	// SaveSnapshot persiste la foto de cartera de un ciclo.
	SaveSnapshot(ctx context.Context, snap domain.PortfolioSnapshot) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
