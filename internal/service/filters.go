package service

import (
	"context"
	"fmt"
	"strings"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/filter"
	"passbook/backend/internal/sorting"
	"passbook/backend/internal/xid"
)

// SaveFilter stores the criteria under a name so the caller can reapply them
// with LedgerQuery.FilterID.
func (s *Service) SaveFilter(ctx context.Context, req domain.SaveFilterRequest) (domain.SavedFilter, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return domain.SavedFilter{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateStruct(req); err != nil {
		return domain.SavedFilter{}, err
	}
	criteria, err := canonicalCriteria(req.Criteria)
	if err != nil {
		return domain.SavedFilter{}, err
	}
	if req.Sort.Key != "" {
		if _, ok := sorting.LedgerKeys[req.Sort.Key]; !ok {
			return domain.SavedFilter{}, fmt.Errorf("%w: %w", ErrInvalidRequest, sorting.ErrUnknownSortKey)
		}
	}

	created, err := s.repo.CreateSavedFilter(ctx, domain.SavedFilter{
		ID:        xid.New("flt"),
		Owner:     owner,
		Name:      req.Name,
		Criteria:  criteria,
		Sort:      req.Sort,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.SavedFilter{}, err
	}
	return *created, nil
}

func (s *Service) ListFilters(ctx context.Context) ([]domain.SavedFilter, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSavedFilters(ctx, owner)
}

func (s *Service) DeleteFilter(ctx context.Context, id string) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}
	return s.repo.DeleteSavedFilter(ctx, owner, strings.TrimSpace(id))
}

// canonicalCriteria rejects criteria the filter engine would refuse later and
// rewrites method spellings to their canonical form.
func canonicalCriteria(c domain.Criteria) (domain.Criteria, error) {
	if _, err := filter.DateRange(c.StartDate, c.EndDate); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for i, t := range c.Types {
		parsed, ok := domain.ParseEntryType(string(t))
		if !ok {
			return c, fmt.Errorf("%w: unknown entry type %q", ErrInvalidRequest, t)
		}
		c.Types[i] = parsed
	}
	for i, m := range c.Methods {
		parsed, ok := domain.ParsePaymentMethod(string(m))
		if !ok {
			return c, fmt.Errorf("%w: unknown payment method %q", ErrInvalidRequest, m)
		}
		c.Methods[i] = parsed
	}
	for i, src := range c.Sources {
		parsed, ok := domain.ParseSource(src)
		if !ok {
			return c, fmt.Errorf("%w: unknown source %q", ErrInvalidRequest, src)
		}
		c.Sources[i] = parsed.Name()
	}
	if c.MinAmount != nil && c.MaxAmount != nil && c.MinAmount.GreaterThan(*c.MaxAmount) {
		return c, fmt.Errorf("%w: minAmount is greater than maxAmount", ErrInvalidRequest)
	}
	return c, nil
}
