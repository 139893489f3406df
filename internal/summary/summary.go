// Package summary computes the scalar and bucketed aggregates shown next to
// the passbook and on the dashboard. Empty input always yields zeros.
package summary

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"passbook/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

func Totals(entries []domain.LedgerEntry) domain.Totals {
	credit, debit := decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case domain.Credit:
			credit = credit.Add(e.Amount)
		case domain.Debit:
			debit = debit.Add(e.Amount)
		}
	}
	return domain.Totals{
		TotalCredit: credit,
		TotalDebit:  debit,
		Balance:     credit.Sub(debit),
		Count:       len(entries),
		CreditShare: percent(credit, credit.Add(debit)),
	}
}

// percent returns part/whole as a percentage rounded to two places, or zero
// when whole is zero.
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, 2)
}

// Monthly groups entries by calendar month, labelled like "January 2024",
// in chronological order. Entries without a parsable date are skipped.
func Monthly(entries []domain.LedgerEntry) []domain.Bucket {
	return bucket(entries, func(t time.Time) (string, string) {
		return t.Format("2006-01"), t.Format("January 2006")
	})
}

// Daily groups entries by calendar date in chronological order.
func Daily(entries []domain.LedgerEntry) []domain.Bucket {
	return bucket(entries, func(t time.Time) (string, string) {
		return t.Format(time.DateOnly), t.Format("02 Jan 2006")
	})
}

func bucket(entries []domain.LedgerEntry, keyOf func(time.Time) (string, string)) []domain.Bucket {
	index := make(map[string]int)
	buckets := make([]domain.Bucket, 0)
	for _, e := range entries {
		date, err := time.Parse(time.DateOnly, e.Date)
		if err != nil {
			continue
		}
		key, label := keyOf(date)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, domain.Bucket{Key: key, Label: label, Credit: decimal.Zero, Debit: decimal.Zero})
		}
		b := &buckets[i]
		switch e.Type {
		case domain.Credit:
			b.Credit = b.Credit.Add(e.Amount)
		case domain.Debit:
			b.Debit = b.Debit.Add(e.Amount)
		}
		b.Count++
	}

	// Keys are zero-padded ISO prefixes, so string order is chronological.
	slices.SortFunc(buckets, func(a, b domain.Bucket) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	for i := range buckets {
		buckets[i].Balance = buckets[i].Credit.Sub(buckets[i].Debit)
	}
	return buckets
}

// ByMethod totals entries per payment method in the canonical method order,
// followed by any other methods in order of first appearance.
func ByMethod(entries []domain.LedgerEntry) []domain.MethodBucket {
	index := make(map[domain.PaymentMethod]int)
	var out []domain.MethodBucket
	for _, e := range entries {
		i, ok := index[e.PaymentMethod]
		if !ok {
			i = len(out)
			index[e.PaymentMethod] = i
			out = append(out, domain.MethodBucket{PaymentMethod: e.PaymentMethod, Credit: decimal.Zero, Debit: decimal.Zero})
		}
		if e.Type == domain.Debit {
			out[i].Debit = out[i].Debit.Add(e.Amount)
		} else {
			out[i].Credit = out[i].Credit.Add(e.Amount)
		}
		out[i].Count++
	}

	rank := func(m domain.PaymentMethod) int {
		if r := slices.Index(domain.PaymentMethods, m); r >= 0 {
			return r
		}
		return len(domain.PaymentMethods)
	}
	slices.SortStableFunc(out, func(a, b domain.MethodBucket) int {
		return rank(a.PaymentMethod) - rank(b.PaymentMethod)
	})
	return out
}

// Running attaches the cumulative balance after each entry, in the given
// order.
func Running(entries []domain.LedgerEntry) []domain.PassbookRow {
	rows := make([]domain.PassbookRow, 0, len(entries))
	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Signed())
		rows = append(rows, domain.PassbookRow{LedgerEntry: e, Balance: balance})
	}
	return rows
}
