// Package sqlite persists save slots to an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"erpsim/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.SaveStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "erpsim.db"

const savesTable = `CREATE TABLE IF NOT EXISTS saves (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	enterprise_name TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	reset_count INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	payload BLOB NOT NULL
)`

const saveColumns = `id, name, enterprise_name, timestamp, reset_count, created_at, payload`

// Store keeps one row per save slot with the enterprise state as a JSON payload.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(savesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create saves table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// PutSave inserts or replaces a slot.
func (s *Store) PutSave(ctx context.Context, save domain.SaveFile) error {
	payload, err := json.Marshal(save.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO saves(`+saveColumns+`) VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, enterprise_name=excluded.enterprise_name,
		timestamp=excluded.timestamp, reset_count=excluded.reset_count, created_at=excluded.created_at, payload=excluded.payload`,
		save.ID, save.Name, save.EnterpriseName, save.Timestamp, save.ResetCount, save.CreatedAt, payload)
	if err != nil {
		return fmt.Errorf("upsert save %s: %w", save.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSave(row scanner) (domain.SaveFile, error) {
	var (
		save    domain.SaveFile
		payload []byte
	)
	if err := row.Scan(&save.ID, &save.Name, &save.EnterpriseName, &save.Timestamp, &save.ResetCount, &save.CreatedAt, &payload); err != nil {
		return domain.SaveFile{}, err
	}
	if err := json.Unmarshal(payload, &save.State); err != nil {
		return domain.SaveFile{}, fmt.Errorf("decode save %s: %w", save.ID, err)
	}
	return save, nil
}

// GetSave loads one slot.
func (s *Store) GetSave(ctx context.Context, id string) (domain.SaveFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saveColumns+` FROM saves WHERE id = ?`, id)
	save, err := scanSave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SaveFile{}, fmt.Errorf("%w: %s", domain.ErrSaveNotFound, id)
	}
	if err != nil {
		return domain.SaveFile{}, fmt.Errorf("select save %s: %w", id, err)
	}
	return save, nil
}

// ListSaves returns every slot, newest first.
func (s *Store) ListSaves(ctx context.Context) ([]domain.SaveFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+saveColumns+` FROM saves ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select saves: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SaveFile
	for rows.Next() {
		save, err := scanSave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, save)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saves: %w", err)
	}
	return out, nil
}

// DeleteSave removes a slot.
func (s *Store) DeleteSave(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete save %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSaveNotFound, id)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
