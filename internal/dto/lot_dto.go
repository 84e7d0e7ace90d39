package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateLotRequest struct {
	ProductID       string          `json:"product_id"       validate:"required,uuid"`
	InitialQuantity decimal.Decimal `json:"initial_quantity" validate:"required"`
	Unit            string          `json:"unit"`
	SourceType      string          `json:"source_type"      validate:"omitempty,oneof=purchase adjust production"`
	SupplierID      *string         `json:"supplier_id"      validate:"omitempty,uuid"`
	Location        *string         `json:"location"`
	UnitCost        *decimal.Decimal `json:"unit_cost"`
	ReceivedAt      *string          `json:"received_at"` // RFC 3339; defaults to now
	ExpiryDate      *string          `json:"expiry_date"`
	Notes           *string          `json:"notes"`
}

type UpdateLotRequest struct {
	Location   *string          `json:"location"`
	UnitCost   *decimal.Decimal `json:"unit_cost"`
	ExpiryDate *string          `json:"expiry_date"`
	Notes      *string          `json:"notes"`
	Status     *string          `json:"status" validate:"omitempty,oneof=available reserved consumed split expired scrapped"`
}

type SplitLotRequest struct {
	SplitQuantity decimal.Decimal `json:"split_quantity" validate:"required"`
	Reason        string          `json:"reason"         validate:"omitempty,oneof=order sample other"`
	Notes         *string         `json:"notes"`
}

type ConsumeLotRequest struct {
	Quantity    decimal.Decimal `json:"quantity"     validate:"required"`
	ReferenceID *string         `json:"reference_id" validate:"omitempty,uuid"`
	Notes       string          `json:"notes"`
}

// AdjustLotRequest is the administrative override path: signed delta with a
// mandatory reason. It is the only way quantity can move back up.
type AdjustLotRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	Reason   string          `json:"reason"   validate:"required,min=2"`
	Notes    *string         `json:"notes"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type LotFilter struct {
	ProductID  string `form:"product_id"  validate:"omitempty,uuid"`
	Status     string `form:"status"      validate:"omitempty,oneof=all available reserved consumed split expired scrapped"`
	SourceType string `form:"source_type"`
	SupplierID string `form:"supplier_id" validate:"omitempty,uuid"`
	Location   string `form:"location"`
	Search     string `form:"search"` // matches lot_number / notes
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LotResponse struct {
	ID              string           `json:"id"`
	LotNumber       string           `json:"lot_number"`
	ProductID       string           `json:"product_id"`
	ProductCode     string           `json:"product_code,omitempty"`
	ProductName     string           `json:"product_name,omitempty"`
	InitialQuantity decimal.Decimal  `json:"initial_quantity"`
	CurrentQuantity decimal.Decimal  `json:"current_quantity"`
	Unit            string           `json:"unit"`
	SourceType      string           `json:"source_type"`
	SourceLotID     *string          `json:"source_lot_id"`
	SourceLotNumber *string          `json:"source_lot_number,omitempty"`
	SupplierID      *string          `json:"supplier_id"`
	SupplierName    *string          `json:"supplier_name,omitempty"`
	Status          string           `json:"status"`
	Location        *string          `json:"location"`
	UnitCost        *decimal.Decimal `json:"unit_cost"`
	TotalCost       *decimal.Decimal `json:"total_cost"`
	ReceivedAt      string           `json:"received_at"`
	ExpiryDate      *string          `json:"expiry_date"`
	Notes           *string          `json:"notes"`
	CreatedAt       string           `json:"created_at"`
}

type LotListResponse struct {
	Data       []LotResponse `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}

type SplitLotResponse struct {
	SplitID    string      `json:"split_id"`
	SourceLot  LotResponse `json:"source_lot"`
	OutputLot  LotResponse `json:"output_lot"`
	RemnantLot LotResponse `json:"remnant_lot"`
}

type LotTransactionResponse struct {
	ID             string          `json:"id"`
	LotID          string          `json:"lot_id"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	ReferenceID    *string         `json:"reference_id"`
	Notes          string          `json:"notes"`
	CreatedBy      *string         `json:"created_by"`
	CreatedAt      string          `json:"created_at"`
}

type LotSplitRecordResponse struct {
	ID               string          `json:"id"`
	SourceLotID      string          `json:"source_lot_id"`
	SourceLotNumber  string          `json:"source_lot_number,omitempty"`
	OutputLotID      string          `json:"output_lot_id"`
	OutputLotNumber  string          `json:"output_lot_number,omitempty"`
	RemnantLotID     string          `json:"remnant_lot_id"`
	RemnantLotNumber string          `json:"remnant_lot_number,omitempty"`
	SplitQuantity    decimal.Decimal `json:"split_quantity"`
	Reason           string          `json:"reason"`
	Notes            *string         `json:"notes"`
	SplitBy          *string         `json:"split_by"`
	SplitAt          string          `json:"split_at"`
}

// SplitHistoryResponse mirrors the two lineage directions: the splits this
// lot was the source of, and the single split (if any) that created it.
type SplitHistoryResponse struct {
	SplitFrom []LotSplitRecordResponse `json:"split_from"`
	SplitTo   *LotSplitRecordResponse  `json:"split_to"`
}
