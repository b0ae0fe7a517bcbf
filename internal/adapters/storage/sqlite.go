package storage

// sqlite.go: persistencia del rotator.
//
// Tablas:
//   - `trades`: histórico append-only. Nunca se actualiza ni se borra una fila.
//   - `position`: una sola fila (id=1) con la última posición conocida.
//   - `snapshots`: foto de la cartera al final de cada ciclo. Prune al arrancar.
//
// Los timestamps se guardan como TEXT en UTC con ancho fijo para que las
// comparaciones lexicográficas de SQLite sean cronológicas.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id            TEXT PRIMARY KEY,
    ts            TEXT NOT NULL,
    from_asset    TEXT NOT NULL,
    to_asset      TEXT NOT NULL,
    from_quantity REAL NOT NULL DEFAULT 0,
    quantity      REAL NOT NULL DEFAULT 0,
    price         REAL NOT NULL DEFAULT 0,
    notional      REAL NOT NULL DEFAULT 0,
    fee           REAL NOT NULL DEFAULT 0,
    expected_gain REAL NOT NULL DEFAULT 0,
    simulated     INTEGER NOT NULL DEFAULT 0,
    order_ids     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS position (
    id          INTEGER PRIMARY KEY CHECK (id = 1),
    asset       TEXT NOT NULL,
    quantity    REAL NOT NULL DEFAULT 0,
    entry_price REAL NOT NULL DEFAULT 0,
    updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    ts       TEXT NOT NULL,
    asset    TEXT NOT NULL,
    quantity REAL NOT NULL DEFAULT 0,
    value    REAL NOT NULL DEFAULT 0,
    prices   TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_trades_ts    ON trades(ts DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts DESC);
`

// Columnas añadidas después del schema inicial. Fallan si ya existen; se ignora.
var migrations = []string{
	"ALTER TABLE trades ADD COLUMN order_ids TEXT NOT NULL DEFAULT ''",
}

// tsLayout tiene ancho fijo: RFC3339Nano recorta ceros y rompe el orden lexicográfico.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultSnapshotRetention es cuánto se guardan los snapshots de cartera.
const DefaultSnapshotRetention = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db        *sql.DB
	retention time.Duration
}

// Option configura SQLiteStorage.
type Option func(*SQLiteStorage)

// WithSnapshotRetention cambia la retención de snapshots (0 = sin prune).
func WithSnapshotRetention(d time.Duration) Option {
	return func(s *SQLiteStorage) { s.retention = d }
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia snapshots antiguos.
func NewSQLiteStorage(path string, opts ...Option) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	for _, stmt := range migrations {
		db.Exec(stmt) // columna ya existe
	}

	s := &SQLiteStorage{db: db, retention: DefaultSnapshotRetention}
	for _, opt := range opts {
		opt(s)
	}
	s.pruneOld(context.Background())
	return s, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina snapshots fuera de la retención. Los trades nunca se borran.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	cutoff := formatTime(time.Now().Add(-s.retention))
	s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE ts < ?`, cutoff)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
