package core_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"erpsim/internal/core"
	"erpsim/internal/infra/persistence/memory"
	"erpsim/internal/infra/persistence/sqlite"
)

func TestOpenSaveStore(t *testing.T) {
	ctx := context.Background()

	store, err := core.OpenSaveStore(ctx, core.SaveStoreConfig{})
	if err != nil {
		t.Fatalf("default driver: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	path := filepath.Join(t.TempDir(), "erpsim.db")
	store, err = core.OpenSaveStore(ctx, core.SaveStoreConfig{Driver: core.StorageSQLite, SQLitePath: path})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer func() { _ = store.Close() }()
	if s, ok := store.(*sqlite.Store); !ok || s.Path() != path {
		t.Fatalf("expected sqlite store at %s, got %T", path, store)
	}

	if _, err := core.OpenSaveStore(ctx, core.SaveStoreConfig{Driver: "floppy"}); err == nil || !strings.Contains(err.Error(), "floppy") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}
