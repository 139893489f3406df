package sorting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passbook/backend/internal/domain"
)

func row(id, date, clock, desc string, amount int64) domain.LedgerEntry {
	return domain.LedgerEntry{ID: id, Date: date, Time: clock, Description: desc, Type: domain.Credit, Amount: decimal.NewFromInt(amount)}
}

func ids(entries []domain.LedgerEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestDefaultOrdersByDateThenTime(t *testing.T) {
	entries := []domain.LedgerEntry{
		row("c", "2024-02-01", "08:00", "", 1),
		row("unknown", domain.UnknownDate, "", "", 1),
		row("b", "2024-01-05", "14:20", "", 1),
		row("a", "2024-01-05", "09:30", "", 1),
		row("a2", "2024-01-05", "09:30", "", 1),
	}
	Default(entries)
	assert.Equal(t, []string{"a", "a2", "b", "c", "unknown"}, ids(entries))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare("9", "10"), "numeric strings compare as numbers")
	assert.Equal(t, 1, Compare("b", "A"), "strings compare case-insensitively")
	assert.Equal(t, 0, Compare("Card", "card"))
	assert.Equal(t, -1, Compare(decimal.NewFromInt(5), decimal.RequireFromString("5.5")))
	assert.Equal(t, 1, Compare("abc", "10"), "mixed values fall back to strings")
}

func TestLedgerSortIsStable(t *testing.T) {
	entries := []domain.LedgerEntry{
		row("1", "2024-01-01", "10:00", "beta", 100),
		row("2", "2024-01-02", "10:00", "Alpha", 50),
		row("3", "2024-01-03", "10:00", "alpha", 100),
		row("4", "2024-01-04", "10:00", "BETA", 50),
	}

	byAmount := append([]domain.LedgerEntry(nil), entries...)
	require.NoError(t, Ledger(byAmount, domain.SortSpec{Key: "amount"}))
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(byAmount))

	byAmountDesc := append([]domain.LedgerEntry(nil), entries...)
	require.NoError(t, Ledger(byAmountDesc, domain.SortSpec{Key: "amount", Desc: true}))
	assert.Equal(t, []string{"1", "3", "2", "4"}, ids(byAmountDesc))

	byDesc := append([]domain.LedgerEntry(nil), entries...)
	require.NoError(t, Ledger(byDesc, domain.SortSpec{Key: "description"}))
	assert.Equal(t, []string{"2", "3", "1", "4"}, ids(byDesc))

	byDate := append([]domain.LedgerEntry(nil), entries...)
	require.NoError(t, Ledger(byDate, domain.SortSpec{Key: "date", Desc: true}))
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(byDate))
}

func TestLedgerRejectsUnknownKey(t *testing.T) {
	err := Ledger(nil, domain.SortSpec{Key: "colour"})
	assert.ErrorIs(t, err, ErrUnknownSortKey)
}

func TestToggle(t *testing.T) {
	state := State{}
	state = state.Toggle("amount")
	assert.Equal(t, State{Key: "amount"}, state)
	state = state.Toggle("amount")
	assert.Equal(t, State{Key: "amount", Desc: true}, state)
	state = state.Toggle("amount")
	assert.Equal(t, State{Key: "amount"}, state)
	state = state.Toggle("description")
	assert.Equal(t, State{Key: "description"}, state)
}
