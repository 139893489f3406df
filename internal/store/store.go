package store

import (
	"context"
	"errors"

	"passbook/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidFilter = errors.New("invalid saved filter")
	ErrDuplicateName = errors.New("a saved filter with this name already exists")
)

// Repository holds per-user preferences. Ledger data itself always stays
// with the upstream API.
type Repository interface {
	CreateSavedFilter(ctx context.Context, filter domain.SavedFilter) (*domain.SavedFilter, error)
	ListSavedFilters(ctx context.Context, owner string) ([]domain.SavedFilter, error)
	GetSavedFilter(ctx context.Context, owner string, id string) (*domain.SavedFilter, error)
	DeleteSavedFilter(ctx context.Context, owner string, id string) error
	GetPreference(ctx context.Context, owner string, key string) (string, error)
	PutPreference(ctx context.Context, owner string, key string, value string) error
}

// ValidateSavedFilter checks the fields every backend requires.
func ValidateSavedFilter(filter domain.SavedFilter) error {
	if filter.ID == "" || filter.Owner == "" || filter.Name == "" {
		return ErrInvalidFilter
	}
	return nil
}
