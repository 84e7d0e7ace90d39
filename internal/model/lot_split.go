package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Split reasons presented in the UI; free text ends up in Notes.
const (
	SplitReasonOrder  = "order"
	SplitReasonSample = "sample"
	SplitReasonOther  = "other"
)

// LotSplit links a source lot to the two lots it was divided into: the
// output portion (carved out for an order/sample) and the leftover remnant.
// Created once, immutable thereafter.
// Invariant: SplitQuantity + remnant.InitialQuantity equals the source lot's
// current_quantity at the time of the split.
type LotSplit struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceLotID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	OutputLotID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	RemnantLotID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	SplitQuantity decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Reason        string          `gorm:"not null;default:'order'"`
	Notes         *string
	SplitBy       *uuid.UUID `gorm:"type:uuid"`
	SplitAt       time.Time  `gorm:"not null"`

	SourceLot  *Lot  `gorm:"foreignKey:SourceLotID"`
	OutputLot  *Lot  `gorm:"foreignKey:OutputLotID"`
	RemnantLot *Lot  `gorm:"foreignKey:RemnantLotID"`
	Splitter   *User `gorm:"foreignKey:SplitBy"`
}

func (LotSplit) TableName() string { return "lot_splits" }
