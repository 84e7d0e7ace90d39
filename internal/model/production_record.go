package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Production record statuses.
const (
	ProductionStatusRecorded = "recorded"
	ProductionStatusCanceled = "canceled"
)

// ProductionRecord groups the lot consumptions of one production run.
// Canceling a record never rewrites history: each consumption gets a
// compensating adjustment transaction instead.
type ProductionRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"` // good being produced
	Status    string    `gorm:"not null;default:'recorded'"`
	Notes     *string
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product                `gorm:"foreignKey:ProductID"`
	Items   []ProductionConsumption `gorm:"foreignKey:ProductionRecordID"`
}

// ProductionConsumption is one bill-of-materials line: quantity taken from
// one specific lot for the parent production record.
type ProductionConsumption struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductionRecordID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity           decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	CreatedAt          time.Time

	Lot *Lot `gorm:"foreignKey:LotID"`
}
