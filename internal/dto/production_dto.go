package dto

import "github.com/shopspring/decimal"

type ProductionConsumptionItem struct {
	LotID    string          `json:"lot_id"   validate:"required,uuid"`
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
}

type RecordProductionRequest struct {
	ProductID string                      `json:"product_id" validate:"required,uuid"`
	Items     []ProductionConsumptionItem `json:"items"      validate:"required,min=1,dive"`
	Notes     *string                     `json:"notes"`
}

type CancelProductionRequest struct {
	Reason string `json:"reason" validate:"required,min=2"`
}

type ProductionItemResponse struct {
	LotID     string          `json:"lot_id"`
	LotNumber string          `json:"lot_number,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type ProductionRecordResponse struct {
	ID        string                   `json:"id"`
	ProductID string                   `json:"product_id"`
	Status    string                   `json:"status"`
	Notes     *string                  `json:"notes"`
	Items     []ProductionItemResponse `json:"items"`
	CreatedAt string                   `json:"created_at"`
}
