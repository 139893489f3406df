package httpapi

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"passbook/backend/internal/domain"
)

// listParam collects a repeatable, comma separated query parameter.
func listParam(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func boolParam(values url.Values, key string) bool {
	switch strings.ToLower(strings.TrimSpace(values.Get(key))) {
	case "1", "true", "yes", "desc":
		return true
	}
	return false
}

func decimalParam(values url.Values, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &d, nil
}

// parseLedgerQuery reads passbook filters from the URL. Unknown types,
// methods and sources are rejected instead of silently matching nothing.
func parseLedgerQuery(values url.Values) (domain.LedgerQuery, error) {
	q := domain.LedgerQuery{
		Criteria: domain.Criteria{
			StartDate: strings.TrimSpace(values.Get("start")),
			EndDate:   strings.TrimSpace(values.Get("end")),
			Query:     values.Get("q"),
		},
		Sort:     domain.SortSpec{Key: strings.TrimSpace(values.Get("sort")), Desc: boolParam(values, "desc")},
		FilterID: strings.TrimSpace(values.Get("filter_id")),
	}

	for _, raw := range listParam(values, "type") {
		t, ok := domain.ParseEntryType(raw)
		if !ok {
			return q, fmt.Errorf("unknown type %q", raw)
		}
		q.Criteria.Types = append(q.Criteria.Types, t)
	}
	for _, raw := range listParam(values, "method") {
		m, ok := domain.ParsePaymentMethod(raw)
		if !ok {
			return q, fmt.Errorf("unknown payment method %q", raw)
		}
		q.Criteria.Methods = append(q.Criteria.Methods, m)
	}
	for _, raw := range listParam(values, "source") {
		s, ok := domain.ParseSource(raw)
		if !ok {
			return q, fmt.Errorf("unknown source %q", raw)
		}
		q.Criteria.Sources = append(q.Criteria.Sources, s.Name())
	}

	var err error
	if q.Criteria.MinAmount, err = decimalParam(values, "min"); err != nil {
		return q, err
	}
	if q.Criteria.MaxAmount, err = decimalParam(values, "max"); err != nil {
		return q, err
	}
	return q, nil
}

func parseProductCriteria(values url.Values) domain.ProductCriteria {
	return domain.ProductCriteria{
		Query:      values.Get("q"),
		Categories: listParam(values, "category"),
		StockLevel: domain.StockLevel(strings.ToLower(strings.TrimSpace(values.Get("stock")))),
		Sort:       domain.SortSpec{Key: strings.TrimSpace(values.Get("sort")), Desc: boolParam(values, "desc")},
	}
}
