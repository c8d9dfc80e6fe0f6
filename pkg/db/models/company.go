package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the trading company profile rendered on invoices.
type Company struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string        `gorm:"column:name;not null"`
	Address      *string       `gorm:"column:address"`
	Phone        *string       `gorm:"column:phone"`
	Email        *string       `gorm:"column:email"`
	LogoPath     *string       `gorm:"column:logo_path"`
	BankAccounts []BankAccount `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// BankAccount belongs to a company and can be referenced by invoices.
type BankAccount struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID     uuid.UUID `gorm:"column:company_id;type:uuid;not null"`
	BankName      string    `gorm:"column:bank_name;not null"`
	AccountName   string    `gorm:"column:account_name;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
