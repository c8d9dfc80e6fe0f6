package customers

import (
	"time"

	"github.com/google/uuid"
)

// CreateInput holds the validated payload to register a customer.
type CreateInput struct {
	Name      string
	Phone     string
	Address   *string
	City      *string
	Latitude  *float64
	Longitude *float64
	Notes     *string
}

// UpdateInput holds optional mutation values. Nil fields are left untouched.
type UpdateInput struct {
	Name      *string
	Phone     *string
	Address   *string
	City      *string
	Latitude  *float64
	Longitude *float64
	Notes     *string
}

// Filters narrows customer listings.
type Filters struct {
	Query string
	City  *string
}

// Summary is a single row in a customer listing.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	City      *string   `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

// List is a page of customers plus the cursor for the next page.
type List struct {
	Customers  []Summary `json:"customers"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
