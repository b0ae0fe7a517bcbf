package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// execer lo cumplen *sql.DB y *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// LoadPosition devuelve la última posición guardada; ok=false si la DB es nueva.
func (s *SQLiteStorage) LoadPosition(ctx context.Context) (domain.Position, bool, error) {
	var pos domain.Position
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT asset, quantity, entry_price, updated_at
		FROM position WHERE id = 1`,
	).Scan(&pos.Asset, &pos.Quantity, &pos.EntryPrice, &updatedAt)
	if isNoRows(err) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("storage.LoadPosition: %w", err)
	}
	pos.UpdatedAt = parseTime(updatedAt)
	return pos, true, nil
}

// SavePosition guarda la posición sin trade asociado (posición inicial o reconciliada).
func (s *SQLiteStorage) SavePosition(ctx context.Context, pos domain.Position) error {
	if err := upsertPosition(ctx, s.db, pos); err != nil {
		return fmt.Errorf("storage.SavePosition: %w", err)
	}
	return nil
}

func upsertPosition(ctx context.Context, db execer, pos domain.Position) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO position (id, asset, quantity, entry_price, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			asset       = excluded.asset,
			quantity    = excluded.quantity,
			entry_price = excluded.entry_price,
			updated_at  = excluded.updated_at`,
		pos.Asset, pos.Quantity, pos.EntryPrice, formatTime(pos.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}
