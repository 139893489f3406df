package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "data", "passbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSavedFilterRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	floor := decimal.NewFromInt(100)
	filter := domain.SavedFilter{
		ID:    "flt-1",
		Owner: "kasir",
		Name:  "Card credits",
		Criteria: domain.Criteria{
			StartDate: "2024-01-01",
			EndDate:   "2024-01-31",
			Query:     "repair",
			Types:     []domain.EntryType{domain.Credit},
			Methods:   []domain.PaymentMethod{domain.MethodCard},
			MinAmount: &floor,
		},
		Sort:      domain.SortSpec{Key: "amount", Desc: true},
		CreatedAt: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
	}

	_, err := s.CreateSavedFilter(ctx, filter)
	require.NoError(t, err)

	got, err := s.GetSavedFilter(ctx, "kasir", "flt-1")
	require.NoError(t, err)
	assert.Equal(t, filter.Name, got.Name)
	assert.Equal(t, filter.Criteria.Methods, got.Criteria.Methods)
	assert.Equal(t, filter.Sort, got.Sort)
	require.NotNil(t, got.Criteria.MinAmount)
	assert.True(t, floor.Equal(*got.Criteria.MinAmount))
	assert.True(t, filter.CreatedAt.Equal(got.CreatedAt))

	list, err := s.ListSavedFilters(ctx, "kasir")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.ListSavedFilters(ctx, "manager")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSavedFilterDuplicateName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateSavedFilter(ctx, domain.SavedFilter{ID: "a", Owner: "kasir", Name: "Cards", CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = s.CreateSavedFilter(ctx, domain.SavedFilter{ID: "b", Owner: "kasir", Name: "CARDS", CreatedAt: time.Now()})
	assert.True(t, errors.Is(err, store.ErrDuplicateName), "got %v", err)

	_, err = s.CreateSavedFilter(ctx, domain.SavedFilter{ID: "c", Owner: "manager", Name: "Cards", CreatedAt: time.Now()})
	assert.NoError(t, err)
}

func TestDeleteAndPreferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateSavedFilter(ctx, domain.SavedFilter{ID: "a", Owner: "kasir", Name: "Cards", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, s.DeleteSavedFilter(ctx, "kasir", "a"))
	assert.ErrorIs(t, s.DeleteSavedFilter(ctx, "kasir", "a"), store.ErrNotFound)
	_, err = s.GetSavedFilter(ctx, "kasir", "a")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetPreference(ctx, "kasir", "passbook.sort")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.PutPreference(ctx, "kasir", "passbook.sort", "first"))
	require.NoError(t, s.PutPreference(ctx, "kasir", "passbook.sort", "second"))
	value, err := s.GetPreference(ctx, "kasir", "passbook.sort")
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "passbook.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.PutPreference(ctx, "kasir", "k", "v"))
	require.NoError(t, s.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	value, err := reopened.GetPreference(ctx, "kasir", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}
