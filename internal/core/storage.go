package core

import (
	"context"
	"fmt"

	"erpsim/internal/infra/persistence/memory"
	"erpsim/internal/infra/persistence/postgres"
	"erpsim/internal/infra/persistence/sqlite"
	"erpsim/pkg/domain"
)

// StorageDriver names a save slot backend.
type StorageDriver string

// Supported save slot backends.
const (
	StorageMemory   StorageDriver = "memory"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
)

// SaveStoreConfig selects and configures a save slot backend.
type SaveStoreConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenSaveStore opens the configured save slot backend. An empty driver
// selects the in-memory store.
func OpenSaveStore(ctx context.Context, cfg SaveStoreConfig) (domain.SaveStore, error) {
	switch cfg.Driver {
	case "", StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite save store: %w", err)
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres save store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
