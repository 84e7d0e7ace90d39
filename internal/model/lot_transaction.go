package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types. "receipt" is written once at lot creation; "adjustment"
// is the only type allowed to move quantity back up after the fact.
// "reserve"/"unreserve" are zero-delta status markers.
const (
	TxTypeReceipt      = "receipt"
	TxTypeConsumption  = "consumption"
	TxTypeSplitOut     = "split_out"
	TxTypeSplitRemnant = "split_remnant"
	TxTypeAdjustment   = "adjustment"
	TxTypeScrap        = "scrap"
	TxTypeExpiry       = "expiry"
	TxTypeReserve      = "reserve"
	TxTypeUnreserve    = "unreserve"
)

// LotTransaction is one immutable quantity-affecting event against a lot.
// Rows are append-only: never updated or deleted — they are the audit trail.
// Invariant: QuantityBefore + Quantity == QuantityAfter == the lot's
// current_quantity immediately after the enclosing transaction commits.
type LotTransaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LotID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type           string          `gorm:"not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(14,3);not null"` // signed delta
	QuantityBefore decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	QuantityAfter  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	ReferenceID    *uuid.UUID      `gorm:"type:uuid"` // production record / document, if any
	Notes          string
	CreatedBy      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time  `gorm:"index"`

	Lot     *Lot  `gorm:"foreignKey:LotID"`
	Creator *User `gorm:"foreignKey:CreatedBy"`
}

func (LotTransaction) TableName() string { return "lot_transactions" }
