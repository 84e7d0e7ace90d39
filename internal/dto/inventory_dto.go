package dto

import "github.com/shopspring/decimal"

// StockAdjustRequest is the product-level manual adjustment. Increase creates
// a new adjust-source lot; decrease walks available lots oldest first.
type StockAdjustRequest struct {
	ProductID      string          `json:"product_id"      validate:"required,uuid"`
	AdjustmentType string          `json:"adjustment_type" validate:"required,oneof=increase decrease"`
	Quantity       decimal.Decimal `json:"quantity"        validate:"required"`
	Reason         string          `json:"reason"          validate:"required,min=2"`
	Notes          *string         `json:"notes"`
}

type DeductedLot struct {
	LotID     string          `json:"lot_id"`
	LotNumber string          `json:"lot_number"`
	Deducted  decimal.Decimal `json:"deducted"`
}

type StockAdjustResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	StockBefore decimal.Decimal `json:"stock_before"`
	StockAfter  decimal.Decimal `json:"stock_after"`
	// increase path
	LotID     *string `json:"lot_id,omitempty"`
	LotNumber *string `json:"lot_number,omitempty"`
	// decrease path
	DeductedLots []DeductedLot `json:"deducted_lots,omitempty"`
}

type StockSummaryResponse struct {
	ProductID         string          `json:"product_id"`
	ProductCode       string          `json:"product_code"`
	ProductName       string          `json:"product_name"`
	Unit              string          `json:"unit"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	AvailableLots     int             `json:"available_lots"`
}

// LotAlertResponse is one row of the expiring-lots report.
type LotAlertResponse struct {
	LotID           string          `json:"lot_id"`
	LotNumber       string          `json:"lot_number"`
	ProductName     string          `json:"product_name"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	Unit            string          `json:"unit"`
	ExpiryDate      string          `json:"expiry_date"`
	DaysLeft        int             `json:"days_left"`
}
