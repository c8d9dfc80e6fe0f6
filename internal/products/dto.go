package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Name         string
	Unit         string
	DefaultPrice decimal.Decimal
	Tags         []string
	IsActive     *bool
}

// UpdateInput holds optional mutation values. Nil fields are left untouched.
type UpdateInput struct {
	Name         *string
	Unit         *string
	DefaultPrice *decimal.Decimal
	Tags         *[]string
	IsActive     *bool
}

// Filters narrows product listings.
type Filters struct {
	Query      string
	ActiveOnly bool
}

// Summary is a single row in a product listing.
type Summary struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	DefaultPrice decimal.Decimal `json:"default_price"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// List is a page of products plus the cursor for the next page.
type List struct {
	Products   []Summary `json:"products"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
