package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	filters     map[string]map[string]domain.SavedFilter
	preferences map[string]map[string]string
}

func New() *Store {
	return &Store{
		filters:     make(map[string]map[string]domain.SavedFilter),
		preferences: make(map[string]map[string]string),
	}
}

func (s *Store) CreateSavedFilter(_ context.Context, filter domain.SavedFilter) (*domain.SavedFilter, error) {
	if err := store.ValidateSavedFilter(filter); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.filters[filter.Owner]
	if owned == nil {
		owned = make(map[string]domain.SavedFilter)
		s.filters[filter.Owner] = owned
	}
	for _, existing := range owned {
		if strings.EqualFold(existing.Name, filter.Name) {
			return nil, store.ErrDuplicateName
		}
	}
	owned[filter.ID] = filter
	copied := filter
	return &copied, nil
}

func (s *Store) ListSavedFilters(_ context.Context, owner string) ([]domain.SavedFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SavedFilter, 0, len(s.filters[owner]))
	for _, f := range s.filters[owner] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetSavedFilter(_ context.Context, owner string, id string) (*domain.SavedFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.filters[owner][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

func (s *Store) DeleteSavedFilter(_ context.Context, owner string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.filters[owner][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.filters[owner], id)
	return nil
}

func (s *Store) GetPreference(_ context.Context, owner string, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.preferences[owner][key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) PutPreference(_ context.Context, owner string, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.preferences[owner] == nil {
		s.preferences[owner] = make(map[string]string)
	}
	s.preferences[owner][key] = value
	return nil
}
