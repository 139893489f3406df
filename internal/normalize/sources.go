package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/record"
)

// Bank passes manual bank transactions through. They are the only entries
// without a source tag and the only ones a user may edit.
type Bank struct{}

func (Bank) Source() domain.Source { return domain.SourceBank }

func (Bank) Normalize(rec record.Record, idx int, opts Options) []domain.LedgerEntry {
	typ, ok := domain.ParseEntryType(rec.String("type", "transactionType"))
	if !ok {
		return nil
	}
	amount, _ := rec.Decimal("amount")

	paymentMethod := domain.MethodManual
	if raw := rec.String("paymentMethod", "method"); raw != "" {
		paymentMethod = method(raw)
	}

	date, clock := stamp(rec, opts.Location, "date", "transactionDate", "createdAt")
	if explicit := clockOf(rec.String("time")); explicit != "" && date != domain.UnknownDate {
		clock = explicit
	}

	id := rec.ID()
	if id == "" {
		id = fmt.Sprintf("bank-row%d", idx)
	}

	return []domain.LedgerEntry{{
		ID:            id,
		Date:          date,
		Time:          clock,
		Description:   rec.String("description", "note", "remarks"),
		Type:          typ,
		Amount:        amount.Abs(),
		PaymentMethod: paymentMethod,
	}}
}

type Repair struct{}

func (Repair) Source() domain.Source { return domain.SourceRepair }

func (Repair) Normalize(rec record.Record, idx int, opts Options) []domain.LedgerEntry {
	customer := rec.String("customerName")
	if customer == "" {
		customer = rec.Object("customer").String("name")
	}
	description := "Repair: " + joinNonEmpty(" - ", customer, rec.String("repairInvoice", "invoiceNumber", "invoice"))
	date, clock := stamp(rec, opts.Location, "createdAt", "date", "repairDate")
	id := recordID(rec, idx)

	var entries []domain.LedgerEntry
	for i, p := range splitOrFallback(rec, "paymentBreakdown") {
		if opts.BankOnly && !p.method.BankEligible() {
			continue
		}
		amount := p.amount
		if !p.hasAmount {
			amount = repairTotal(rec)
		}
		entries = append(entries, domain.LedgerEntry{
			ID:            fmt.Sprintf("repair-%s-%d", id, i),
			Date:          date,
			Time:          clock,
			Description:   description,
			Type:          domain.Credit,
			Amount:        nonNegative(amount),
			PaymentMethod: p.method,
			Source:        domain.SourceRepair,
		})
	}
	return entries
}

// repairTotal recomputes a repair bill from its components when no amount
// was recorded: additional services + checking charge + repair cost - discount.
func repairTotal(rec record.Record) decimal.Decimal {
	services, ok := rec.Decimal("additionalServices")
	if !ok {
		for _, svc := range rec.Records("additionalServices") {
			price, _ := svc.Decimal("price", "amount", "charge")
			services = services.Add(price)
		}
	}
	checking, _ := rec.Decimal("checkingCharge")
	cost, _ := rec.Decimal("repairCost")
	discount, _ := rec.Decimal("discount")
	return nonNegative(services.Add(checking).Add(cost).Sub(discount))
}

type Payment struct{}

func (Payment) Source() domain.Source { return domain.SourcePayment }

func (Payment) Normalize(rec record.Record, idx int, opts Options) []domain.LedgerEntry {
	if strings.EqualFold(rec.String("status"), "Refund") {
		return nil
	}
	customer := rec.String("customerName")
	if customer == "" {
		customer = rec.Object("customer").String("name")
	}
	description := "Payment: " + joinNonEmpty(" - ", customer, rec.String("invoiceNumber", "invoice"))
	date, clock := stamp(rec, opts.Location, "createdAt", "date", "paymentDate")
	id := recordID(rec, idx)

	var entries []domain.LedgerEntry
	for i, p := range splitOrFallback(rec, "paymentMethods") {
		if opts.BankOnly && !p.method.BankEligible() {
			continue
		}
		entries = append(entries, domain.LedgerEntry{
			ID:            fmt.Sprintf("payment-%s-%d", id, i),
			Date:          date,
			Time:          clock,
			Description:   description,
			Type:          domain.Credit,
			Amount:        nonNegative(p.amount),
			PaymentMethod: p.method,
			Source:        domain.SourcePayment,
		})
	}
	return entries
}

type ExtraIncome struct{}

func (ExtraIncome) Source() domain.Source { return domain.SourceExtra }

func (ExtraIncome) Normalize(rec record.Record, idx int, opts Options) []domain.LedgerEntry {
	description := "Extra Income: " + rec.String("description", "incomeType", "title", "source")
	date, clock := stamp(rec, opts.Location, "date", "createdAt")
	id := recordID(rec, idx)

	var entries []domain.LedgerEntry
	for i, p := range splitOrFallback(rec, "paymentBreakdown") {
		if opts.BankOnly && !p.method.BankEligible() {
			continue
		}
		entries = append(entries, domain.LedgerEntry{
			ID:            fmt.Sprintf("extra-%s-%d", id, i),
			Date:          date,
			Time:          clock,
			Description:   description,
			Type:          domain.Credit,
			Amount:        nonNegative(p.amount),
			PaymentMethod: p.method,
			Source:        domain.SourceExtra,
		})
	}
	return entries
}

// Salary emits one debit per salary record that paid out an advance.
// Advances always leave through a bank transfer.
type Salary struct{}

func (Salary) Source() domain.Source { return domain.SourceSalary }

func (Salary) Normalize(rec record.Record, idx int, opts Options) []domain.LedgerEntry {
	advance, _ := rec.Decimal("advance", "advanceAmount")
	if !advance.IsPositive() {
		return nil
	}
	employee := rec.String("employeeName", "name")
	if employee == "" {
		employee = rec.Object("employee").String("name")
	}
	date, clock := stamp(rec, opts.Location, "date", "paymentDate", "createdAt")

	return []domain.LedgerEntry{{
		ID:            "salary-" + recordID(rec, idx),
		Date:          date,
		Time:          clock,
		Description:   "Salary Advance: " + employee,
		Type:          domain.Debit,
		Amount:        advance,
		PaymentMethod: domain.MethodBankTransfer,
		Source:        domain.SourceSalary,
	}}
}

type Maintenance struct{}

func (Maintenance) Source() domain.Source { return domain.SourceMaintenance }

func (Maintenance) Normalize(rec record.Record, idx int, opts Options) []domain.LedgerEntry {
	price, _ := rec.Decimal("price", "amount", "cost")
	if !price.IsPositive() {
		return nil
	}
	m := method(rec.String("paymentMethod", "method"))
	if opts.BankOnly && !m.BankEligible() {
		return nil
	}
	date, clock := stamp(rec, opts.Location, "date", "createdAt")

	return []domain.LedgerEntry{{
		ID:            "maintenance-" + recordID(rec, idx),
		Date:          date,
		Time:          clock,
		Description:   "Maintenance: " + rec.String("description", "title", "item", "serviceName"),
		Type:          domain.Debit,
		Amount:        price,
		PaymentMethod: m,
		Source:        domain.SourceMaintenance,
	}}
}

// Supplier flattens each supplier's payment history into debits.
type Supplier struct{}

func (Supplier) Source() domain.Source { return domain.SourceSupplier }

func (Supplier) Normalize(rec record.Record, idx int, opts Options) []domain.LedgerEntry {
	name := rec.String("supplierName", "businessName", "name")
	id := recordID(rec, idx)

	var entries []domain.LedgerEntry
	for i, payment := range rec.Records("paymentHistory") {
		amount, _ := payment.Decimal("currentPayment")
		if !amount.IsPositive() {
			continue
		}
		m := method(payment.String("paymentMethod", "method"))
		if opts.BankOnly && !m.BankEligible() {
			continue
		}
		date, clock := stamp(payment, opts.Location, "date", "paymentDate", "createdAt")
		entries = append(entries, domain.LedgerEntry{
			ID:            fmt.Sprintf("supplier-%s-%d", id, i),
			Date:          date,
			Time:          clock,
			Description:   "Supplier Payment: " + name,
			Type:          domain.Debit,
			Amount:        amount,
			PaymentMethod: m,
			Source:        domain.SourceSupplier,
		})
	}
	return entries
}
