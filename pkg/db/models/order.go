package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cocotrade/ops-backend/pkg/enums"
)

// Order is a customer order reserved against a single batch.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber int64             `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID  uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	BatchID     uuid.UUID         `gorm:"column:batch_id;type:uuid;not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Expedition  *string           `gorm:"column:expedition"`
	Description *string           `gorm:"column:description"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(16,2);not null"`
	Customer    *Customer         `gorm:"foreignKey:CustomerID"`
	Batch       *Batch            `gorm:"foreignKey:BatchID"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one product line within an order. The item set is replaced
// wholesale on edit; reconciliation diffs old vs new itself.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Qty       int             `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Subtotal returns qty times unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}
