// Package catalog implements product search for the POS screen: free-text
// search with fuzzy fallback, category and stock-level filters, and sorting.
package catalog

import (
	"errors"
	"slices"
	"strings"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/filter"
	"passbook/backend/internal/record"
	"passbook/backend/internal/sorting"
)

var ErrInvalidStockLevel = errors.New("stock level must be one of in, low, out")

// Searcher holds the business-tuned threshold under which stock counts as low.
type Searcher struct {
	lowStockThreshold int
}

func NewSearcher(lowStockThreshold int) *Searcher {
	if lowStockThreshold < 1 {
		lowStockThreshold = 1
	}
	return &Searcher{lowStockThreshold: lowStockThreshold}
}

func (s *Searcher) LowStockThreshold() int {
	return s.lowStockThreshold
}

// FromRecords maps upstream product records. Records without a name are
// dropped.
func FromRecords(recs []record.Record) []domain.Product {
	products := make([]domain.Product, 0, len(recs))
	for _, rec := range recs {
		name := rec.String("name", "productName", "title")
		if name == "" {
			continue
		}
		price, _ := rec.Decimal("price", "sellingPrice", "salePrice")
		products = append(products, domain.Product{
			ID:       rec.ID(),
			Name:     name,
			Category: rec.String("category", "categoryName"),
			Brand:    rec.String("brand"),
			Barcode:  rec.String("barcode", "sku"),
			Stock:    rec.Int("stock", "quantity", "qty"),
			Price:    price,
		})
	}
	return products
}

func projection(p domain.Product) string {
	return p.Name + " " + p.Category + " " + p.Brand + " " + p.Barcode
}

var productKeys = map[string]sorting.Key[domain.Product]{
	"name":     func(p domain.Product) any { return p.Name },
	"category": func(p domain.Product) any { return p.Category },
	"brand":    func(p domain.Product) any { return p.Brand },
	"stock":    func(p domain.Product) any { return p.Stock },
	"price":    func(p domain.Product) any { return p.Price },
}

// Search applies text search, then the category set, then the stock level,
// then the optional sort.
func (s *Searcher) Search(products []domain.Product, criteria domain.ProductCriteria) ([]domain.Product, error) {
	stockPred, err := s.stockLevel(criteria.StockLevel)
	if err != nil {
		return nil, err
	}

	out := filter.Search(products, criteria.Query, projection)
	out = filter.Apply(out, filter.All(categoryIn(criteria.Categories), stockPred))

	if criteria.Sort.Key != "" {
		key, ok := productKeys[criteria.Sort.Key]
		if !ok {
			return nil, sorting.ErrUnknownSortKey
		}
		out = slices.Clone(out)
		sorting.By(out, key, criteria.Sort.Desc)
	}
	return out, nil
}

func categoryIn(categories []string) filter.Predicate[domain.Product] {
	return func(p domain.Product) bool {
		if len(categories) == 0 {
			return true
		}
		return slices.ContainsFunc(categories, func(c string) bool {
			return strings.EqualFold(strings.TrimSpace(c), p.Category)
		})
	}
}

func (s *Searcher) stockLevel(level domain.StockLevel) (filter.Predicate[domain.Product], error) {
	switch level {
	case domain.StockAll:
		return func(domain.Product) bool { return true }, nil
	case domain.StockIn:
		return func(p domain.Product) bool { return p.Stock > 0 }, nil
	case domain.StockLow:
		return func(p domain.Product) bool { return p.Stock > 0 && p.Stock <= s.lowStockThreshold }, nil
	case domain.StockOut:
		return func(p domain.Product) bool { return p.Stock <= 0 }, nil
	}
	return nil, ErrInvalidStockLevel
}

// Categories returns the distinct categories, sorted case-insensitively.
func Categories(products []domain.Product) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range products {
		key := strings.ToLower(p.Category)
		if p.Category == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p.Category)
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}
