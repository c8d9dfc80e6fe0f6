package reports

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Range bounds a report query. Zero values leave the bound open.
type Range struct {
	From time.Time
	To   time.Time
}

// ProductSales aggregates confirmed sales per product.
type ProductSales struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	TotalQty    int64           `json:"total_qty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// CustomerSales aggregates confirmed sales per customer.
type CustomerSales struct {
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	OrderCount   int64           `json:"order_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// MonthlySales aggregates sales per calendar month (YYYY-MM).
type MonthlySales struct {
	Month       string          `json:"month"`
	OrderCount  int64           `json:"order_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// StockLevel is the current remaining stock for a product within a batch.
type StockLevel struct {
	BatchID      uuid.UUID `json:"batch_id"`
	BatchCode    string    `json:"batch_code"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	InitialQty   int       `json:"initial_qty"`
	RemainingQty int       `json:"remaining_qty"`
}
