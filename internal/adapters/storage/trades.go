package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/rotator/internal/domain"
)

const tradeColumns = `id, ts, from_asset, to_asset, from_quantity, quantity, price,
	notional, fee, expected_gain, simulated, order_ids`

// CommitTrade añade el trade al histórico y guarda la posición resultante
// en la misma transacción: o se persisten ambos o ninguno.
func (s *SQLiteStorage) CommitTrade(ctx context.Context, trade domain.TradeRecord, pos domain.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.CommitTrade: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, formatTime(trade.Timestamp), trade.FromAsset, trade.ToAsset,
		trade.FromQuantity, trade.Quantity, trade.Price, trade.Notional,
		trade.Fee, trade.ExpectedGain, boolToInt(trade.Simulated), trade.OrderIDs,
	); err != nil {
		return fmt.Errorf("storage.CommitTrade: insert trade %s: %w", trade.ID, err)
	}

	if err := upsertPosition(ctx, tx, pos); err != nil {
		return fmt.Errorf("storage.CommitTrade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.CommitTrade: commit: %w", err)
	}
	return nil
}

// LastTrade devuelve el trade más reciente.
func (s *SQLiteStorage) LastTrade(ctx context.Context) (domain.TradeRecord, bool, error) {
	trades, err := s.Trades(ctx, 1)
	if err != nil {
		return domain.TradeRecord{}, false, fmt.Errorf("storage.LastTrade: %w", err)
	}
	if len(trades) == 0 {
		return domain.TradeRecord{}, false, nil
	}
	return trades[0], true, nil
}

// Trades devuelve los últimos n trades, el más reciente primero. n <= 0 devuelve todos.
func (s *SQLiteStorage) Trades(ctx context.Context, n int) ([]domain.TradeRecord, error) {
	q := `SELECT ` + tradeColumns + ` FROM trades ORDER BY ts DESC, rowid DESC`
	var args []any
	if n > 0 {
		q += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.Trades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.Trades: scan row: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// CountTradesSince cuenta los trades con timestamp >= since (límite diario).
func (s *SQLiteStorage) CountTradesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE ts >= ?`, formatTime(since),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage.CountTradesSince: %w", err)
	}
	return n, nil
}

// TradeTotals agrega el histórico para el reporte.
type TradeTotals struct {
	Count     int
	Simulated int
	Fees      float64
}

// Totals devuelve el número de trades y el total de fees pagados.
func (s *SQLiteStorage) Totals(ctx context.Context) (TradeTotals, error) {
	var t TradeTotals
	var fees sql.NullFloat64
	var simulated sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(fee), SUM(simulated) FROM trades`,
	).Scan(&t.Count, &fees, &simulated)
	if err != nil {
		return t, fmt.Errorf("storage.Totals: %w", err)
	}
	t.Fees = fees.Float64
	t.Simulated = int(simulated.Int64)
	return t, nil
}

func scanTrade(rows *sql.Rows) (domain.TradeRecord, error) {
	var t domain.TradeRecord
	var ts string
	var simulated int
	err := rows.Scan(
		&t.ID, &ts, &t.FromAsset, &t.ToAsset, &t.FromQuantity, &t.Quantity,
		&t.Price, &t.Notional, &t.Fee, &t.ExpectedGain, &simulated, &t.OrderIDs,
	)
	if err != nil {
		return t, err
	}
	t.Timestamp = parseTime(ts)
	t.Simulated = simulated != 0
	return t, nil
}

// isNoRows distingue "tabla vacía" de un fallo real.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
