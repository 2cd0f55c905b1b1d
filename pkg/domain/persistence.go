package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// SaveFile is a named, deep snapshot of the enterprise state.
type SaveFile struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	EnterpriseName string          `json:"enterpriseName"`
	Timestamp      int64           `json:"timestamp"`
	ResetCount     int             `json:"resetCount"`
	State          EnterpriseState `json:"state"`
	CreatedAt      string          `json:"createdAt"`
}

// SaveCreatedAtLayout formats SaveFile.CreatedAt and the date part of save names.
const SaveCreatedAtLayout = "2006-01-02 15:04:05"

// Save ID prefixes.
const (
	SavePrefixManual = "save-"
	SavePrefixAuto   = "save-auto-"
)

// SaveName returns "<enterprise>-<YYYY-MM-DD HH:MM:SS>-reset<N>".
func SaveName(enterprise string, at time.Time, resetCount int) string {
	return fmt.Sprintf("%s-%s-reset%d", enterprise, at.Format(SaveCreatedAtLayout), resetCount)
}

// ErrSaveNotFound is returned by SaveStore implementations for unknown ids.
var ErrSaveNotFound = errors.New("save not found")

// SaveStore persists save slots. ListSaves returns the newest save first.
type SaveStore interface {
	PutSave(ctx context.Context, save SaveFile) error
	GetSave(ctx context.Context, id string) (SaveFile, error)
	ListSaves(ctx context.Context) ([]SaveFile, error)
	DeleteSave(ctx context.Context, id string) error
	Close() error
}

// SortSaves orders saves newest first, breaking ties by id.
func SortSaves(saves []SaveFile) {
	slices.SortFunc(saves, func(a, b SaveFile) int {
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
