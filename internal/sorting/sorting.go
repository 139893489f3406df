// Package sorting orders ledger rows and catalog items for display. All
// sorts are stable: items with equal keys keep their input order.
package sorting

import (
	"cmp"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/record"
)

var ErrUnknownSortKey = errors.New("unknown sort key")

// Key extracts the value an item is ordered by.
type Key[T any] func(T) any

// State is the column a table is sorted by. Selecting the active column
// again flips the direction; a new column starts ascending.
type State struct {
	Key  string
	Desc bool
}

func (s State) Toggle(key string) State {
	if s.Key == key {
		return State{Key: key, Desc: !s.Desc}
	}
	return State{Key: key}
}

// Compare orders two key values. When both are numeric they compare as
// numbers, otherwise as case-insensitive strings.
func Compare(a, b any) int {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return x.Cmp(y)
		}
	}
	return strings.Compare(strings.ToLower(text(a)), strings.ToLower(text(b)))
}

func numeric(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal, int, int64, float64, string:
		return record.ToDecimal(n)
	}
	return decimal.Zero, false
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case interface{ String() string }:
		return s.String()
	case nil:
		return ""
	}
	return ""
}

// By sorts items in place by key, stable.
func By[T any](items []T, key Key[T], desc bool) {
	slices.SortStableFunc(items, func(a, b T) int {
		c := Compare(key(a), key(b))
		if desc {
			return -c
		}
		return c
	})
}

// LedgerKeys are the sortable ledger columns.
var LedgerKeys = map[string]Key[domain.LedgerEntry]{
	"date":          func(e domain.LedgerEntry) any { return e.Date + " " + e.Time },
	"time":          func(e domain.LedgerEntry) any { return e.Time },
	"description":   func(e domain.LedgerEntry) any { return e.Description },
	"type":          func(e domain.LedgerEntry) any { return string(e.Type) },
	"amount":        func(e domain.LedgerEntry) any { return e.Amount },
	"paymentMethod": func(e domain.LedgerEntry) any { return string(e.PaymentMethod) },
	"source":        func(e domain.LedgerEntry) any { return e.Source.Name() },
	"id":            func(e domain.LedgerEntry) any { return e.ID },
}

// Default orders entries ascending by calendar date, then by time.
// Entries with an Unknown date go last.
func Default(entries []domain.LedgerEntry) {
	slices.SortStableFunc(entries, compareDateTime)
}

func compareDateTime(a, b domain.LedgerEntry) int {
	da, errA := time.Parse(time.DateOnly, a.Date)
	db, errB := time.Parse(time.DateOnly, b.Date)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	if c := da.Compare(db); c != 0 {
		return c
	}
	return cmp.Compare(a.Time, b.Time)
}

// Ledger sorts entries by the requested column, or by Default when no
// column is chosen. The date column uses the calendar order of Default.
func Ledger(entries []domain.LedgerEntry, spec domain.SortSpec) error {
	if spec.Key == "" {
		Default(entries)
		return nil
	}
	if spec.Key == "date" {
		slices.SortStableFunc(entries, func(a, b domain.LedgerEntry) int {
			if spec.Desc {
				return -compareDateTime(a, b)
			}
			return compareDateTime(a, b)
		})
		return nil
	}
	key, ok := LedgerKeys[spec.Key]
	if !ok {
		return ErrUnknownSortKey
	}
	By(entries, key, spec.Desc)
	return nil
}
