// Package normalize turns heterogeneous upstream records into ledger entries.
// Each source has an adapter implementing Normalizer so new sources can be
// added without touching filtering, sorting or aggregation.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/record"
)

type View string

const (
	// ViewPassbook keeps manual bank entries plus bank-eligible derived pairs.
	ViewPassbook View = "passbook"
	// ViewDashboard keeps every derived pair regardless of method.
	ViewDashboard View = "dashboard"
)

type Options struct {
	BankOnly bool
	Location *time.Location
}

func OptionsFor(view View, loc *time.Location) Options {
	return Options{BankOnly: view == ViewPassbook, Location: loc}
}

type Normalizer interface {
	Source() domain.Source
	Normalize(rec record.Record, idx int, opts Options) []domain.LedgerEntry
}

// All normalizes every record of one source, preserving record order.
func All(n Normalizer, records []record.Record, opts Options) []domain.LedgerEntry {
	entries := make([]domain.LedgerEntry, 0, len(records))
	for idx, rec := range records {
		entries = append(entries, n.Normalize(rec, idx, opts)...)
	}
	return entries
}

// Derived returns the adapters for every derived source in aggregation order.
func Derived() []Normalizer {
	return []Normalizer{
		Repair{},
		Payment{},
		ExtraIncome{},
		Salary{},
		Maintenance{},
		Supplier{},
	}
}

// pair is one method/amount combination of a possibly split payment.
type pair struct {
	method    domain.PaymentMethod
	amount    decimal.Decimal
	hasAmount bool
}

// splitOrFallback prefers the itemized array at breakdownKey and falls back
// to a single pair built from the legacy method and total fields.
func splitOrFallback(rec record.Record, breakdownKey string) []pair {
	items := rec.Records(breakdownKey)
	pairs := make([]pair, 0, len(items))
	for _, item := range items {
		amount, ok := item.Decimal("amount", "value")
		pairs = append(pairs, pair{
			method:    method(item.String("method", "paymentMethod", "type")),
			amount:    amount,
			hasAmount: ok,
		})
	}
	if len(pairs) > 0 {
		return pairs
	}

	amount, ok := rec.Decimal("totalAmount", "total", "amount")
	return []pair{{
		method:    method(rec.String("paymentMethod", "method")),
		amount:    amount,
		hasAmount: ok,
	}}
}

// method canonicalizes a method string. Missing methods read as Cash, which
// is never bank-eligible. Unknown spellings are kept verbatim.
func method(raw string) domain.PaymentMethod {
	if raw == "" {
		return domain.MethodCash
	}
	if m, ok := domain.ParsePaymentMethod(raw); ok {
		return m
	}
	return domain.PaymentMethod(raw)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func recordID(rec record.Record, idx int) string {
	if id := rec.ID(); id != "" {
		return id
	}
	return "row" + strconv.Itoa(idx)
}

var stampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// stamp derives the entry date and wall-clock time from the first present
// timestamp field. Records without a usable timestamp get the Unknown date.
func stamp(rec record.Record, loc *time.Location, keys ...string) (string, string) {
	if loc == nil {
		loc = time.UTC
	}
	raw := rec.String(keys...)
	if raw == "" {
		return domain.UnknownDate, ""
	}

	for _, layout := range stampLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			t = t.In(loc)
			return t.Format("2006-01-02"), t.Format("15:04")
		}
	}

	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		clock := clockOf(rec.String("time"))
		if clock == "" {
			clock = "00:00"
		}
		return t.Format("2006-01-02"), clock
	}
	return domain.UnknownDate, ""
}

// clockOf normalizes "9:05", "09:05" or "09:05:33" to "09:05".
func clockOf(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}
