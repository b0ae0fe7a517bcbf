package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// SaveSnapshot persiste la foto de cartera de un ciclo.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snap domain.PortfolioSnapshot) error {
	prices := snap.Prices
	if prices == nil {
		prices = map[string]float64{}
	}
	raw, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshot: marshal prices: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (ts, asset, quantity, value, prices)
		VALUES (?, ?, ?, ?, ?)`,
		formatTime(snap.Timestamp), snap.Asset, snap.Quantity, snap.Value, string(raw),
	); err != nil {
		return fmt.Errorf("storage.SaveSnapshot: insert: %w", err)
	}
	return nil
}

// Snapshots devuelve los últimos n snapshots, el más reciente primero.
func (s *SQLiteStorage) Snapshots(ctx context.Context, n int) ([]domain.PortfolioSnapshot, error) {
	if n <= 0 {
		n = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, asset, quantity, value, prices
		FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("storage.Snapshots: query: %w", err)
	}
	defer rows.Close()

	var snaps []domain.PortfolioSnapshot
	for rows.Next() {
		var snap domain.PortfolioSnapshot
		var ts, raw string
		if err := rows.Scan(&ts, &snap.Asset, &snap.Quantity, &snap.Value, &raw); err != nil {
			return nil, fmt.Errorf("storage.Snapshots: scan row: %w", err)
		}
		snap.Timestamp = parseTime(ts)
		if err := json.Unmarshal([]byte(raw), &snap.Prices); err != nil {
			return nil, fmt.Errorf("storage.Snapshots: prices: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
