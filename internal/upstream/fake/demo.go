package fake

import (
	"passbook/backend/internal/domain"
	"passbook/backend/internal/record"
)

// Fixture is a full set of upstream collections.
type Fixture struct {
	Sources  map[domain.Source][]record.Record
	Products []record.Record
}

// Load seeds every collection of f. Repairs are served inside a
// {"records": [...]} envelope to exercise both payload shapes.
func (s *Server) Load(f Fixture, pathFor func(domain.Source) string, productsPath string) {
	for source, recs := range f.Sources {
		s.Seed(pathFor(source), recs, source == domain.SourceRepair)
	}
	s.Seed(productsPath, f.Products, false)
}

func mustDecode(body string) []record.Record {
	recs, err := record.Decode([]byte(body))
	if err != nil {
		panic(err)
	}
	return recs
}

// Demo is the data set served by the mock upstream binary and used by
// end-to-end tests.
func Demo() Fixture {
	return Fixture{
		Sources: map[domain.Source][]record.Record{
			domain.SourceBank: mustDecode(`[
				{"_id": "bt-1", "date": "2024-01-05", "time": "08:15", "description": "Opening float", "type": "Credit", "amount": 1000, "paymentMethod": "Cash"},
				{"_id": "bt-2", "date": "2024-01-20", "description": "Bank fee", "type": "Debit", "amount": 15}
			]`),
			domain.SourceRepair: mustDecode(`[
				{"_id": "rp-1", "customerName": "Ayu", "repairInvoice": "REP-0001", "createdAt": "2024-01-05T10:30:00Z",
				 "paymentBreakdown": [{"method": "Card", "amount": 500}, {"method": "Cash", "amount": 50}]},
				{"_id": "rp-2", "customerName": "Bima", "repairInvoice": "REP-0002", "createdAt": "2024-02-03T13:00:00Z",
				 "paymentMethod": "Bank-Transfer", "additionalServices": [{"name": "Screen guard", "price": 25}],
				 "checkingCharge": 10, "repairCost": 300, "discount": 35}
			]`),
			domain.SourcePayment: mustDecode(`[
				{"_id": "py-1", "invoiceNumber": "INV-1001", "customerName": "Citra", "status": "Paid", "createdAt": "2024-01-12T09:00:00Z",
				 "paymentMethods": [{"method": "Card", "amount": 1200}, {"method": "Cash", "amount": 300}]},
				{"_id": "py-2", "invoiceNumber": "INV-1002", "customerName": "Dodi", "status": "Refund", "createdAt": "2024-01-13T09:00:00Z",
				 "paymentMethod": "Card", "totalAmount": 800}
			]`),
			domain.SourceExtra: mustDecode(`[
				{"_id": "ex-1", "description": "Scrap phone sale", "date": "2024-02-14", "paymentMethod": "Bank-Check", "totalAmount": 275}
			]`),
			domain.SourceSalary: mustDecode(`[
				{"_id": "sl-1", "employeeName": "Eka", "advance": 400, "date": "2024-01-31"},
				{"_id": "sl-2", "employeeName": "Fajar", "advance": 0, "date": "2024-01-31"}
			]`),
			domain.SourceMaintenance: mustDecode(`[
				{"_id": "mt-1", "description": "AC service", "price": 150, "paymentMethod": "Card", "date": "2024-02-02"},
				{"_id": "mt-2", "description": "Cleaning supplies", "price": 40, "paymentMethod": "Cash", "date": "2024-02-02"}
			]`),
			domain.SourceSupplier: mustDecode(`[
				{"_id": "sp-1", "supplierName": "PT Sparepart Jaya", "paymentHistory": [
					{"date": "2024-01-25", "currentPayment": 700, "paymentMethod": "Bank-Transfer"},
					{"date": "2024-02-25", "currentPayment": 120, "paymentMethod": "Cash"}
				]}
			]`),
		},
		Products: mustDecode(`[
			{"_id": "pr-1", "name": "iPhone 13 Pro", "category": "Phones", "brand": "Apple", "barcode": "8990001", "stock": 2, "price": 14999000},
			{"_id": "pr-2", "name": "Galaxy S23", "category": "Phones", "brand": "Samsung", "barcode": "8990002", "stock": 8, "price": 11999000},
			{"_id": "pr-3", "name": "USB-C Cable", "category": "Accessories", "brand": "Anker", "barcode": "8990003", "stock": 0, "price": 99000},
			{"_id": "pr-4", "name": "Tempered Glass", "category": "Accessories", "brand": "Nillkin", "barcode": "8990004", "stock": 1, "price": 75000},
			{"_id": "pr-5", "name": "Battery Replacement", "category": "Services", "stock": 25, "price": 350000}
		]`),
	}
}
