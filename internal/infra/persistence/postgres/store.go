// Package postgres persists save slots to PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"erpsim/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SaveStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/erpsim?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const saveColumns = `id, name, enterprise_name, timestamp, reset_count, created_at, payload`

// Store keeps one row per save slot with the enterprise state as JSONB.
type Store struct {
	db *sql.DB
}

// NewStore opens a store using dsn (falls back to defaultDSN) and ensures the
// saves table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSavesTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSavesTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS saves (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		enterprise_name TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		reset_count INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure saves table: %w", err)
	}
	return nil
}

// PutSave inserts or replaces a slot inside one transaction.
func (s *Store) PutSave(ctx context.Context, save domain.SaveFile) error {
	payload, err := json.Marshal(save.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO saves (`+saveColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, enterprise_name=EXCLUDED.enterprise_name,
		timestamp=EXCLUDED.timestamp, reset_count=EXCLUDED.reset_count, created_at=EXCLUDED.created_at, payload=EXCLUDED.payload`,
		save.ID, save.Name, save.EnterpriseName, save.Timestamp, int64(save.ResetCount), save.CreatedAt, payload); err != nil {
		return fmt.Errorf("upsert save %s: %w", save.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func scanSave(rows *sql.Rows) (domain.SaveFile, error) {
	var (
		save    domain.SaveFile
		resets  int64
		payload []byte
	)
	if err := rows.Scan(&save.ID, &save.Name, &save.EnterpriseName, &save.Timestamp, &resets, &save.CreatedAt, &payload); err != nil {
		return domain.SaveFile{}, fmt.Errorf("scan save: %w", err)
	}
	save.ResetCount = int(resets)
	if err := json.Unmarshal(payload, &save.State); err != nil {
		return domain.SaveFile{}, fmt.Errorf("decode save %s: %w", save.ID, err)
	}
	return save, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]domain.SaveFile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select saves: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SaveFile
	for rows.Next() {
		save, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, save)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saves: %w", err)
	}
	return out, nil
}

// GetSave loads one slot.
func (s *Store) GetSave(ctx context.Context, id string) (domain.SaveFile, error) {
	saves, err := s.query(ctx, `SELECT `+saveColumns+` FROM saves WHERE id = $1`, id)
	if err != nil {
		return domain.SaveFile{}, err
	}
	if len(saves) == 0 {
		return domain.SaveFile{}, fmt.Errorf("%w: %s", domain.ErrSaveNotFound, id)
	}
	return saves[0], nil
}

// ListSaves returns every slot, newest first.
func (s *Store) ListSaves(ctx context.Context) ([]domain.SaveFile, error) {
	saves, err := s.query(ctx, `SELECT `+saveColumns+` FROM saves ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	domain.SortSaves(saves)
	return saves, nil
}

// DeleteSave removes a slot.
func (s *Store) DeleteSave(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete save %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete save %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSaveNotFound, id)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
