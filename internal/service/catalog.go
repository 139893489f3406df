package service

import (
	"context"
	"fmt"

	"passbook/backend/internal/catalog"
	"passbook/backend/internal/domain"
)

func (s *Service) SearchProducts(ctx context.Context, token string, criteria domain.ProductCriteria) ([]domain.Product, error) {
	products, err := s.products(ctx, token)
	if err != nil {
		return nil, err
	}
	found, err := s.catalog.Search(products, criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return found, nil
}

func (s *Service) ProductCategories(ctx context.Context, token string) ([]string, error) {
	products, err := s.products(ctx, token)
	if err != nil {
		return nil, err
	}
	return catalog.Categories(products), nil
}

func (s *Service) products(ctx context.Context, token string) ([]domain.Product, error) {
	recs, err := s.upstream.ListProducts(ctx, token)
	if err != nil {
		return nil, upstreamErr(err)
	}
	return catalog.FromRecords(recs), nil
}

// ValidatePayment checks a split payment against the sale total.
func (s *Service) ValidatePayment(req domain.PaymentValidationRequest) (domain.PaymentOutcome, error) {
	return s.payments.Validate(req.Total, req.Splits)
}
