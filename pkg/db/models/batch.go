package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cocotrade/ops-backend/pkg/enums"
)

// Batch is a dated allocation of inventory available for sale until exhausted.
type Batch struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string            `gorm:"column:code;not null;uniqueIndex"`
	Status     enums.BatchStatus `gorm:"column:status;type:text;not null;default:'active'"`
	ReceivedAt time.Time         `gorm:"column:received_at;not null"`
	Notes      *string           `gorm:"column:notes"`
	Products   []BatchProduct    `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BatchProduct is the per-product stock ledger entry within a batch.
// InitialQty is immutable after allocation; RemainingQty is the counter the
// order reconciliation keeps in range [0, InitialQty].
type BatchProduct struct {
	BatchID      uuid.UUID `gorm:"column:batch_id;type:uuid;primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	InitialQty   int       `gorm:"column:initial_qty;not null"`
	RemainingQty int       `gorm:"column:remaining_qty;not null"`
	Product      *Product  `gorm:"foreignKey:ProductID"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
