package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot statuses. A lot starts "available" and ends in exactly one of the
// terminal states; only a compensating adjustment may move a consumed lot
// back to available. "reserved" is a hold label: the quantity stays on the
// lot but consume/split are blocked until it is released.
const (
	LotStatusAvailable = "available"
	LotStatusReserved  = "reserved"
	LotStatusConsumed  = "consumed"
	LotStatusSplit     = "split"
	LotStatusExpired   = "expired"
	LotStatusScrapped  = "scrapped"
)

// Lot source types — how the lot came into existence.
const (
	LotSourcePurchase   = "purchase"
	LotSourceAdjust     = "adjust"
	LotSourceSplit      = "split"
	LotSourceProduction = "production"
)

// Lot is a discrete, traceable batch of a product. Quantity state is owned
// exclusively by the ledger service; nothing else writes CurrentQuantity.
type Lot struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LotNumber       string          `gorm:"uniqueIndex;not null"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	InitialQuantity decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	CurrentQuantity decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Unit            string
	SourceType      string     `gorm:"not null;default:'purchase'"`
	SourceLotID     *uuid.UUID `gorm:"type:uuid;index"` // lot this one was split from, at most one
	SupplierID      *uuid.UUID `gorm:"type:uuid;index"`
	Status          string     `gorm:"not null;default:'available';index"`
	Location        *string
	UnitCost        *decimal.Decimal `gorm:"type:decimal(14,2)"`
	TotalCost       *decimal.Decimal `gorm:"type:decimal(14,2)"`
	ReceivedAt      time.Time        `gorm:"not null;index"`
	ExpiryDate      *time.Time       `gorm:"index"`
	Notes           *string
	CreatedBy       *uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Product   *Product `gorm:"foreignKey:ProductID"`
	SourceLot *Lot     `gorm:"foreignKey:SourceLotID"`
	Supplier  *Company `gorm:"foreignKey:SupplierID"`
	Creator   *User    `gorm:"foreignKey:CreatedBy"`
}

// TableName overrides GORM's default pluralization (lots → inventory_lots).
func (Lot) TableName() string { return "inventory_lots" }

// Terminal reports whether the lot's status forbids consume/split.
func (l *Lot) Terminal() bool { return l.Status != LotStatusAvailable }
