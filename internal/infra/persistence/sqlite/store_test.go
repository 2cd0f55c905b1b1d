package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"erpsim/pkg/domain"
)

func sampleSave(id string, ts int64) domain.SaveFile {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return domain.SaveFile{
		ID:             id,
		Name:           domain.SaveName("Acme", now, 1),
		EnterpriseName: "Acme",
		Timestamp:      ts,
		ResetCount:     1,
		State:          domain.NewEnterpriseState(domain.DefaultRulebook(), "Acme", now),
		CreatedAt:      now.Format(domain.SaveCreatedAtLayout),
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "saves.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	for i, id := range []string{"save-a", "save-b"} {
		if err := store.PutSave(ctx, sampleSave(id, int64(i+1))); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	renamed := sampleSave("save-a", 1)
	renamed.Name = "renamed"
	if err := store.PutSave(ctx, renamed); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = store.Close() }()

	got, err := store.GetSave(ctx, "save-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "renamed" || got.ResetCount != 1 || got.State.Operation.CurrentQuarter != 1 {
		t.Fatalf("unexpected save %+v", got)
	}
	if !got.State.Finance.Cash.Equal(domain.StartingCash) || len(got.State.Production.Factories) != 2 {
		t.Fatalf("state did not survive the round trip")
	}

	list, err := store.ListSaves(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "save-b" {
		t.Fatalf("expected newest first, got %+v %v", list, err)
	}

	if err := store.DeleteSave(ctx, "save-b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteSave(ctx, "save-b"); !errors.Is(err, domain.ErrSaveNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.GetSave(ctx, "save-b"); !errors.Is(err, domain.ErrSaveNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
