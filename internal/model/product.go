package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry lots are received against. CurrentStock is a
// projection of the sum of available lot quantities, maintained inside the
// same transactions that move lot quantities — lot_transactions remain the
// authoritative record.
type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InternalCode string    `gorm:"uniqueIndex;not null"`
	InternalName string    `gorm:"index;not null"`
	Spec         *string
	Unit         string          `gorm:"not null;default:'ea'"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	MinimumStock decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	Active       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
