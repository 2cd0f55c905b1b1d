// Package memory provides an in-process save slot store for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"fmt"
	"sync"

	"erpsim/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SaveStore = (*Store)(nil)

// Store keeps deep copies of save files in a map keyed by id.
type Store struct {
	mu    sync.RWMutex
	saves map[string]domain.SaveFile
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{saves: make(map[string]domain.SaveFile)}
}

func cloneSave(save domain.SaveFile) domain.SaveFile {
	save.State = save.State.Clone()
	return save
}

// PutSave stores a copy of save, replacing any slot with the same id.
func (s *Store) PutSave(_ context.Context, save domain.SaveFile) error {
	if save.ID == "" {
		return fmt.Errorf("save id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves[save.ID] = cloneSave(save)
	return nil
}

// GetSave returns a copy of the slot with the given id.
func (s *Store) GetSave(_ context.Context, id string) (domain.SaveFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	save, ok := s.saves[id]
	if !ok {
		return domain.SaveFile{}, fmt.Errorf("%w: %s", domain.ErrSaveNotFound, id)
	}
	return cloneSave(save), nil
}

// ListSaves returns copies of every slot, newest first.
func (s *Store) ListSaves(_ context.Context) ([]domain.SaveFile, error) {
	s.mu.RLock()
	out := make([]domain.SaveFile, 0, len(s.saves))
	for _, save := range s.saves {
		out = append(out, cloneSave(save))
	}
	s.mu.RUnlock()
	domain.SortSaves(out)
	return out, nil
}

// DeleteSave removes a slot.
func (s *Store) DeleteSave(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.saves[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSaveNotFound, id)
	}
	delete(s.saves, id)
	return nil
}

// Close implements domain.SaveStore.
func (s *Store) Close() error { return nil }
