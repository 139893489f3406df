package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/events"
	"passbook/backend/internal/normalize"
	"passbook/backend/internal/record"
	"passbook/backend/internal/store"
	"passbook/backend/internal/upstream"
)

// CreateBankTransaction records a manual bank entry upstream and returns it
// as it will appear in the passbook.
func (s *Service) CreateBankTransaction(ctx context.Context, token string, req domain.BankTransactionRequest) (domain.LedgerEntry, error) {
	req, err := s.checkBankRequest(req)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	rec, err := s.upstream.CreateBankTransaction(ctx, token, req)
	if err != nil {
		return domain.LedgerEntry{}, upstreamErr(err)
	}
	entry := s.bankEntry(rec, req)

	s.invalidate(ctx, token)
	s.publish(ctx, events.BankTransactionCreated, entry.ID, bankEventData(entry))
	return entry, nil
}

// UpdateBankTransaction replaces a manual bank entry. Entries derived from
// repairs, payments and the other modules are read-only here.
func (s *Service) UpdateBankTransaction(ctx context.Context, token string, id string, req domain.BankTransactionRequest) (domain.LedgerEntry, error) {
	if err := requireRole(ctx, "admin", "manager"); err != nil {
		return domain.LedgerEntry{}, err
	}
	req, err := s.checkBankRequest(req)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if _, err := s.findBankEntry(ctx, token, id); err != nil {
		return domain.LedgerEntry{}, err
	}

	rec, err := s.upstream.UpdateBankTransaction(ctx, token, id, req)
	if err != nil {
		return domain.LedgerEntry{}, upstreamErr(err)
	}
	if rec.ID() == "" {
		rec["id"] = id
	}
	entry := s.bankEntry(rec, req)

	s.invalidate(ctx, token)
	s.publish(ctx, events.BankTransactionUpdated, entry.ID, bankEventData(entry))
	return entry, nil
}

func (s *Service) DeleteBankTransaction(ctx context.Context, token string, id string) error {
	if err := requireRole(ctx, "admin", "manager"); err != nil {
		return err
	}
	entry, err := s.findBankEntry(ctx, token, id)
	if err != nil {
		return err
	}
	if err := s.upstream.DeleteBankTransaction(ctx, token, id); err != nil {
		return upstreamErr(err)
	}

	s.invalidate(ctx, token)
	s.publish(ctx, events.BankTransactionDeleted, entry.ID, bankEventData(entry))
	return nil
}

func (s *Service) checkBankRequest(req domain.BankTransactionRequest) (domain.BankTransactionRequest, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.PaymentMethod != "" {
		canonical, ok := domain.ParsePaymentMethod(string(req.PaymentMethod))
		if !ok {
			return req, fmt.Errorf("%w: unknown payment method %q", ErrInvalidRequest, req.PaymentMethod)
		}
		req.PaymentMethod = canonical
	}
	if err := s.validateStruct(req); err != nil {
		return req, err
	}
	if !req.Amount.IsPositive() {
		return req, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRequest)
	}
	return req, nil
}

// findBankEntry looks id up among the manual bank entries. Ids of derived
// entries are reported as read-only rather than missing.
func (s *Service) findBankEntry(ctx context.Context, token string, id string) (domain.LedgerEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.LedgerEntry{}, store.ErrNotFound
	}
	recs, err := s.upstream.ListSource(ctx, token, domain.SourceBank)
	if err != nil {
		return domain.LedgerEntry{}, upstreamErr(err)
	}
	entries := normalize.All(normalize.Bank{}, recs, normalize.OptionsFor(normalize.ViewPassbook, s.location))
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	if derivedID(id) {
		return domain.LedgerEntry{}, ErrReadOnlyEntry
	}
	return domain.LedgerEntry{}, store.ErrNotFound
}

func derivedID(id string) bool {
	for _, n := range normalize.Derived() {
		if strings.HasPrefix(id, n.Source().Name()+"-") {
			return true
		}
	}
	return false
}

// bankEntry normalizes what the upstream echoed back, falling back to the
// request when the echo is incomplete.
func (s *Service) bankEntry(rec record.Record, req domain.BankTransactionRequest) domain.LedgerEntry {
	opts := normalize.OptionsFor(normalize.ViewPassbook, s.location)
	if entries := (normalize.Bank{}).Normalize(rec, 0, opts); len(entries) == 1 && rec.ID() != "" {
		return entries[0]
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.MethodManual
	}
	clock := req.Time
	if clock == "" {
		clock = "00:00"
	}
	return domain.LedgerEntry{
		ID:            rec.ID(),
		Date:          req.Date,
		Time:          clock,
		Description:   req.Description,
		Type:          req.Type,
		Amount:        req.Amount.Abs(),
		PaymentMethod: method,
	}
}

func bankEventData(e domain.LedgerEntry) map[string]any {
	return map[string]any{
		"date":          e.Date,
		"type":          string(e.Type),
		"amount":        e.Amount.StringFixed(2),
		"paymentMethod": string(e.PaymentMethod),
	}
}

// upstreamErr maps upstream 404 and 400 answers onto the errors handlers
// already know how to report.
func upstreamErr(err error) error {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusNotFound:
			return store.ErrNotFound
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s", ErrInvalidRequest, statusErr.Body)
		}
	}
	return err
}
