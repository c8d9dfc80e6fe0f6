package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput issues an invoice for an existing order.
type CreateInput struct {
	OrderID       uuid.UUID
	DueAt         *time.Time
	BankAccountID *uuid.UUID
}

// PaymentInput records one payment against an invoice.
type PaymentInput struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	PaidAt    time.Time
	Method    string
	Reference *string
}

// Filters narrows invoice listings.
type Filters struct {
	UnpaidOnly bool
	Query      string
}

// Summary is a single row in an invoice listing.
type Summary struct {
	ID          uuid.UUID       `json:"id"`
	Number      string          `json:"number"`
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber int64           `json:"order_number"`
	IssuedAt    time.Time       `json:"issued_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Outstanding returns the unpaid remainder for a listing row.
func (s Summary) Outstanding() decimal.Decimal {
	return s.TotalAmount.Sub(s.PaidAmount)
}

// List is a page of invoices plus the cursor for the next page.
type List struct {
	Invoices   []Summary `json:"invoices"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// IssuedEvent is the outbox payload for a newly issued invoice.
type IssuedEvent struct {
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Number      string          `json:"number"`
	OrderID     uuid.UUID       `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// PaidEvent is the outbox payload emitted when an invoice is settled in full.
type PaidEvent struct {
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Number     string          `json:"number"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
}
