package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is issued for an order. PaidAmount is derived from payment logs.
type Invoice struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Number        string          `gorm:"column:number;not null;uniqueIndex"`
	IssuedAt      time.Time       `gorm:"column:issued_at;not null"`
	DueAt         *time.Time      `gorm:"column:due_at"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:numeric(16,2);not null"`
	PaidAmount    decimal.Decimal `gorm:"column:paid_amount;type:numeric(16,2);not null;default:0"`
	BankAccountID *uuid.UUID      `gorm:"column:bank_account_id;type:uuid"`
	Order         *Order          `gorm:"foreignKey:OrderID"`
	BankAccount   *BankAccount    `gorm:"foreignKey:BankAccountID"`
	Payments      []PaymentLog    `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Outstanding returns the unpaid remainder.
func (i Invoice) Outstanding() decimal.Decimal {
	return i.TotalAmount.Sub(i.PaidAmount)
}

// PaymentLog records one partial payment against an invoice.
type PaymentLog struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(16,2);not null"`
	PaidAt    time.Time       `gorm:"column:paid_at;not null"`
	Method    string          `gorm:"column:method;not null;default:'transfer'"`
	Reference *string         `gorm:"column:reference"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
