package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the actor recorded on every mutating ledger entry. Accounts are
// provisioned elsewhere; this service only reads them for audit joins.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"uniqueIndex;not null"`
	Role      string    `gorm:"not null;default:'staff'"` // staff | manager | admin
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
