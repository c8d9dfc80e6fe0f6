package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a buyer of coconut products. Phone doubles as the WhatsApp
// destination for outreach.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	Address   *string   `gorm:"column:address"`
	City      *string   `gorm:"column:city"`
	Latitude  *float64  `gorm:"column:latitude;type:numeric(9,6)"`
	Longitude *float64  `gorm:"column:longitude;type:numeric(9,6)"`
	Notes     *string   `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
