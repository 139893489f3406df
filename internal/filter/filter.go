// Package filter reduces ledger entries and catalog items to the ones that
// match the active criteria. Every stage only removes items.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/fuzzy"
)

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

type Predicate[T any] func(T) bool

// All combines predicates with AND. With no predicates it accepts everything.
func All[T any](preds ...Predicate[T]) Predicate[T] {
	return func(item T) bool {
		for _, pred := range preds {
			if !pred(item) {
				return false
			}
		}
		return true
	}
}

// Apply returns the items accepted by pred, in input order.
func Apply[T any](items []T, pred Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Search keeps items whose projection contains query after normalization.
// When no item matches that way, it retries with the subsequence matcher.
// An empty query keeps everything.
func Search[T any](items []T, query string, project func(T) string) []T {
	needle := fuzzy.Normalize(query)
	if needle == "" {
		return items
	}
	strict := Apply(items, func(item T) bool {
		return fuzzy.Contains(project(item), needle)
	})
	if len(strict) > 0 {
		return strict
	}
	return Apply(items, func(item T) bool {
		return fuzzy.Match(project(item), needle)
	})
}

// DateRange keeps entries with start <= date <= end. Empty bounds are open;
// with both open the filter is the identity. Unknown dates never fall
// inside an active range.
func DateRange(start, end string) (Predicate[domain.LedgerEntry], error) {
	from, err := parseBound(start)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	to, err := parseBound(end)
	if err != nil {
		return nil, fmt.Errorf("end date: %w", err)
	}
	if from.IsZero() && to.IsZero() {
		return func(domain.LedgerEntry) bool { return true }, nil
	}

	return func(e domain.LedgerEntry) bool {
		date, err := time.Parse(time.DateOnly, e.Date)
		if err != nil {
			return false
		}
		if !from.IsZero() && date.Before(from) {
			return false
		}
		if !to.IsZero() && date.After(to) {
			return false
		}
		return true
	}, nil
}

func parseBound(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Projection is the searchable text of an entry.
func Projection(e domain.LedgerEntry) string {
	return e.Date + e.Time + e.Description + string(e.Type)
}

func Types(types []domain.EntryType) Predicate[domain.LedgerEntry] {
	return func(e domain.LedgerEntry) bool {
		return len(types) == 0 || slices.Contains(types, e.Type)
	}
}

func Methods(methods []domain.PaymentMethod) Predicate[domain.LedgerEntry] {
	return func(e domain.LedgerEntry) bool {
		return len(methods) == 0 || slices.Contains(methods, e.PaymentMethod)
	}
}

// Sources accepts source names as reported by domain.Source.Name, so
// "manual" selects entries without a source.
func Sources(sources []string) Predicate[domain.LedgerEntry] {
	return func(e domain.LedgerEntry) bool {
		return len(sources) == 0 || slices.Contains(sources, e.Source.Name())
	}
}

func AmountBetween(criteria domain.Criteria) Predicate[domain.LedgerEntry] {
	return func(e domain.LedgerEntry) bool {
		if criteria.MinAmount != nil && e.Amount.LessThan(*criteria.MinAmount) {
			return false
		}
		if criteria.MaxAmount != nil && e.Amount.GreaterThan(*criteria.MaxAmount) {
			return false
		}
		return true
	}
}

// Ledger applies the date range, then free-text search, then the
// categorical filters.
func Ledger(entries []domain.LedgerEntry, criteria domain.Criteria) ([]domain.LedgerEntry, error) {
	inRange, err := DateRange(criteria.StartDate, criteria.EndDate)
	if err != nil {
		return nil, err
	}
	out := Apply(entries, inRange)
	out = Search(out, criteria.Query, Projection)
	return Apply(out, All(
		Types(criteria.Types),
		Methods(criteria.Methods),
		Sources(criteria.Sources),
		AmountBetween(criteria),
	)), nil
}
