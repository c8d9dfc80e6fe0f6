package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a sellable coconut commodity (copra, coconut oil, fiber, ...).
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	Unit         string          `gorm:"column:unit;not null;default:'kg'"`
	DefaultPrice decimal.Decimal `gorm:"column:default_price;type:numeric(14,2);not null"`
	Tags         pq.StringArray  `gorm:"column:tags;type:text[]"`
	IsActive     bool            `gorm:"column:is_active;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
