package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownDate marks an entry whose source record carried no usable date.
const UnknownDate = "Unknown"

type EntryType string

const (
	Credit EntryType = "Credit"
	Debit  EntryType = "Debit"
)

func ParseEntryType(raw string) (EntryType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "credit", "cr", "in", "income":
		return Credit, true
	case "debit", "dr", "out", "expense":
		return Debit, true
	}
	return "", false
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodCard         PaymentMethod = "Card"
	MethodBankTransfer PaymentMethod = "Bank-Transfer"
	MethodBankCheck    PaymentMethod = "Bank-Check"
	MethodCredit       PaymentMethod = "Credit"
	MethodManual       PaymentMethod = "Manual"
)

// PaymentMethods lists the methods a client may pick, in display order.
var PaymentMethods = []PaymentMethod{MethodCash, MethodCard, MethodBankTransfer, MethodBankCheck, MethodCredit}

// BankEligible reports whether the method clears through the bank account.
func (m PaymentMethod) BankEligible() bool {
	switch m {
	case MethodBankTransfer, MethodCard, MethodBankCheck:
		return true
	}
	return false
}

// ParsePaymentMethod maps the spellings used across upstream records onto a
// canonical method. Unrecognized input returns false.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	switch key {
	case "cash":
		return MethodCash, true
	case "card", "debit-card", "credit-card", "edc":
		return MethodCard, true
	case "bank-transfer", "banktransfer", "transfer", "bank", "online":
		return MethodBankTransfer, true
	case "bank-check", "bank-cheque", "check", "cheque", "bankcheck":
		return MethodBankCheck, true
	case "credit", "pay-later":
		return MethodCredit, true
	case "manual":
		return MethodManual, true
	}
	return "", false
}

type Source string

const (
	SourceBank        Source = ""
	SourceRepair      Source = "repair"
	SourcePayment     Source = "payment"
	SourceExtra       Source = "extra"
	SourceSalary      Source = "salary"
	SourceMaintenance Source = "maintenance"
	SourceSupplier    Source = "supplier"
)

// SourceManual is the filter token that selects entries without a source.
const SourceManual = "manual"

// Name is the label used in logs, reports and exports.
func (s Source) Name() string {
	if s == SourceBank {
		return SourceManual
	}
	return string(s)
}

func ParseSource(raw string) (Source, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SourceManual, "bank":
		return SourceBank, true
	case "repair":
		return SourceRepair, true
	case "payment":
		return SourcePayment, true
	case "extra":
		return SourceExtra, true
	case "salary":
		return SourceSalary, true
	case "maintenance":
		return SourceMaintenance, true
	case "supplier":
		return SourceSupplier, true
	}
	return "", false
}

// LedgerEntry is one normalized credit or debit line of the unified ledger.
// Entries with a Source are derived and read-only.
type LedgerEntry struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Description   string          `json:"description"`
	Type          EntryType       `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Source        Source          `json:"source,omitempty"`
}

func (e LedgerEntry) Editable() bool {
	return e.Source == SourceBank
}

// Signed returns the amount with the sign implied by Type.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Type == Debit {
		return e.Amount.Neg()
	}
	return e.Amount
}
