package batches

import (
	"time"

	"github.com/google/uuid"

	"github.com/cocotrade/ops-backend/pkg/enums"
)

// AllocationInput assigns product stock to a batch.
type AllocationInput struct {
	ProductID uuid.UUID
	Qty       int
}

// CreateInput holds the validated payload to open a batch.
type CreateInput struct {
	Code        string
	ReceivedAt  time.Time
	Notes       *string
	Allocations []AllocationInput
}

// UpdateInput holds optional batch header mutations. Nil fields are left
// untouched.
type UpdateInput struct {
	Code       *string
	ReceivedAt *time.Time
	Notes      *string
	Status     *enums.BatchStatus
}

// AllocationUpdate rewrites an allocation's quantities. InitialQty is
// required; RemainingQty defaults to initial minus the qty already reserved.
type AllocationUpdate struct {
	InitialQty   int
	RemainingQty *int
}

// Filters narrows batch listings.
type Filters struct {
	Status *enums.BatchStatus
	Query  string
}

// Summary is a single row in a batch listing.
type Summary struct {
	ID         uuid.UUID         `json:"id"`
	Code       string            `json:"code"`
	Status     enums.BatchStatus `json:"status"`
	ReceivedAt time.Time         `json:"received_at"`
	CreatedAt  time.Time         `json:"created_at"`
}

// List is a page of batches plus the cursor for the next page.
type List struct {
	Batches    []Summary `json:"batches"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// SoldOutEvent is the outbox payload emitted when a batch is marked sold out.
type SoldOutEvent struct {
	BatchID uuid.UUID `json:"batch_id"`
	Code    string    `json:"code"`
}
