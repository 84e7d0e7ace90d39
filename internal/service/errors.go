package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrConcurrencyConflict is returned when the optimistic quantity check kept
// failing against concurrent writers. The caller should retry with fresh
// state; nothing was written.
var ErrConcurrencyConflict = errors.New("lot was modified concurrently, retry with fresh state")

// NotFoundError — the referenced lot does not exist.
type NotFoundError struct {
	LotID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("lot %s not found", e.LotID)
}

// InvalidStateError — the lot's status forbids the attempted operation
// (e.g. splitting a consumed lot).
type InvalidStateError struct {
	LotID  uuid.UUID
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("lot %s has status %q and cannot be %s", e.LotID, e.Status, e.Op)
}

// InvalidQuantityError — the requested quantity is non-positive or out of
// bounds for the lot.
type InvalidQuantityError struct {
	LotID     uuid.UUID
	Requested decimal.Decimal
	Reason    string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %s for lot %s: %s", e.Requested, e.LotID, e.Reason)
}

// InsufficientQuantityError — the lot does not hold enough remaining
// quantity. Carries requested vs available so callers can render a
// specific message.
type InsufficientQuantityError struct {
	LotID     uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity in lot %s: requested %s, available %s",
		e.LotID, e.Requested, e.Available)
}
