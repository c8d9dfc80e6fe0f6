package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cocotrade/ops-backend/pkg/enums"
)

// ItemInput is one product line submitted on order create/update.
type ItemInput struct {
	ProductID uuid.UUID
	Qty       int
	UnitPrice decimal.Decimal
}

// CreateInput captures everything needed to place an order.
type CreateInput struct {
	CustomerID  uuid.UUID
	BatchID     uuid.UUID
	Expedition  *string
	Description *string
	Items       []ItemInput
	ActorUserID uuid.UUID
	ActorRole   string
}

// UpdateInput replaces the order header and the full item set.
type UpdateInput struct {
	OrderID     uuid.UUID
	CustomerID  uuid.UUID
	BatchID     uuid.UUID
	Expedition  *string
	Description *string
	Items       []ItemInput
	ActorUserID uuid.UUID
	ActorRole   string
}

// StatusInput moves an order between lifecycle states.
type StatusInput struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   string
}

// ShipmentInput updates the expedition metadata without touching items.
type ShipmentInput struct {
	OrderID     uuid.UUID
	Expedition  *string
	Description *string
}

// DeleteInput removes an order entirely.
type DeleteInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   string
}

// Filters describe the inputs supported by the order list.
type Filters struct {
	Status     *enums.OrderStatus
	CustomerID *uuid.UUID
	BatchID    *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
	Query      string
}

// Summary exposes the aggregated fields returned in the order list.
type Summary struct {
	ID           uuid.UUID         `json:"id"`
	OrderNumber  int64             `json:"order_number"`
	CreatedAt    time.Time         `json:"created_at"`
	CustomerName string            `json:"customer_name"`
	BatchCode    string            `json:"batch_code"`
	Status       enums.OrderStatus `json:"status"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	TotalItems   int               `json:"total_items"`
}

// List wraps the paginated orders plus the next page cursor.
type List struct {
	Orders     []Summary `json:"orders"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// CreatedEvent is emitted when an order is placed.
type CreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	BatchID     uuid.UUID         `json:"batch_id"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	ItemCount   int               `json:"item_count"`
}

// StatusChangedEvent is emitted on every lifecycle transition.
type StatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// DeletedEvent is emitted when an order is removed.
type DeletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	BatchID     uuid.UUID `json:"batch_id"`
}
