package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Criteria is the resolved set of ledger filters. Zero values are inactive.
type Criteria struct {
	StartDate string           `json:"startDate,omitempty"`
	EndDate   string           `json:"endDate,omitempty"`
	Query     string           `json:"query,omitempty"`
	Types     []EntryType      `json:"types,omitempty"`
	Methods   []PaymentMethod  `json:"methods,omitempty"`
	Sources   []string         `json:"sources,omitempty"`
	MinAmount *decimal.Decimal `json:"minAmount,omitempty"`
	MaxAmount *decimal.Decimal `json:"maxAmount,omitempty"`
}

type SortSpec struct {
	Key  string `json:"key,omitempty"`
	Desc bool   `json:"desc,omitempty"`
}

// LedgerQuery is what a caller asks of the passbook. FilterID, when set,
// names a saved filter whose criteria replace Criteria.
type LedgerQuery struct {
	Criteria Criteria
	Sort     SortSpec
	FilterID string
}

type SavedFilter struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Criteria  Criteria  `json:"criteria"`
	Sort      SortSpec  `json:"sort"`
	CreatedAt time.Time `json:"createdAt"`
}

type SaveFilterRequest struct {
	Name     string   `json:"name" validate:"required,max=80"`
	Criteria Criteria `json:"criteria"`
	Sort     SortSpec `json:"sort"`
}

// BankTransactionRequest creates or replaces a manual bank entry upstream.
type BankTransactionRequest struct {
	Date          string          `json:"date" validate:"required,datetime=2006-01-02"`
	Time          string          `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	Description   string          `json:"description" validate:"required,max=240"`
	Type          EntryType       `json:"type" validate:"required,oneof=Credit Debit"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty" validate:"omitempty,oneof=Cash Card Bank-Transfer Bank-Check Credit Manual"`
}

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Brand    string          `json:"brand,omitempty"`
	Barcode  string          `json:"barcode,omitempty"`
	Stock    int             `json:"stock"`
	Price    decimal.Decimal `json:"price"`
}

type StockLevel string

const (
	StockAll StockLevel = ""
	StockIn  StockLevel = "in"
	StockLow StockLevel = "low"
	StockOut StockLevel = "out"
)

type ProductCriteria struct {
	Query      string     `json:"query,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	StockLevel StockLevel `json:"stockLevel,omitempty"`
	Sort       SortSpec   `json:"sort"`
}

type PaymentSplit struct {
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

type PaymentValidationRequest struct {
	Total  decimal.Decimal `json:"total"`
	Splits []PaymentSplit  `json:"splits"`
}

type PaymentOutcome struct {
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Change    decimal.Decimal `json:"change"`
	Remaining decimal.Decimal `json:"remaining"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}
