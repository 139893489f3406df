package domain

import "github.com/shopspring/decimal"

type Totals struct {
	TotalCredit decimal.Decimal `json:"totalCredit"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	Balance     decimal.Decimal `json:"balance"`
	Count       int             `json:"count"`
	CreditShare decimal.Decimal `json:"creditShare"`
}

// Bucket aggregates one period of the ledger. Key is "2024-01" for months
// and "2024-01-05" for days.
type Bucket struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Credit  decimal.Decimal `json:"credit"`
	Debit   decimal.Decimal `json:"debit"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

type MethodBucket struct {
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Credit        decimal.Decimal `json:"credit"`
	Debit         decimal.Decimal `json:"debit"`
	Count         int             `json:"count"`
}

type PassbookRow struct {
	LedgerEntry
	Balance decimal.Decimal `json:"balance"`
}

// SourceStatus reports how one upstream source fared during aggregation.
type SourceStatus struct {
	Source  string `json:"source"`
	OK      bool   `json:"ok"`
	Entries int    `json:"entries"`
	Error   string `json:"error,omitempty"`
}

type PassbookPage struct {
	Rows     []PassbookRow  `json:"rows"`
	Totals   Totals         `json:"totals"`
	Monthly  []Bucket       `json:"monthly"`
	Sort     SortSpec       `json:"sort"`
	Sources  []SourceStatus `json:"sources"`
	Degraded []string       `json:"degraded,omitempty"`
	Cached   bool           `json:"cached,omitempty"`
}

type DashboardReport struct {
	Totals   Totals         `json:"totals"`
	Monthly  []Bucket       `json:"monthly"`
	Daily    []Bucket       `json:"daily"`
	ByMethod []MethodBucket `json:"byMethod"`
	Sources  []SourceStatus `json:"sources"`
	Degraded []string       `json:"degraded,omitempty"`
	Cached   bool           `json:"cached,omitempty"`
}

// ExportRow is one serialized line of a passbook export.
type ExportRow struct {
	No            int
	Date          string
	Time          string
	Description   string
	PaymentMethod string
	Type          string
	Amount        decimal.Decimal
	Source        string
}

// ExportColumns is the fixed header of every export format.
var ExportColumns = []string{"No", "Date", "Time", "Description", "Payment Method", "Type", "Amount", "Source"}
