package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/model"
	"github.com/erurang/wooyangcrm-sub005/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	summaryCacheKeyFmt = "inventory:summary:%s"
	summaryCacheTTL    = 60 * time.Second
)

// InventoryService is the product-level view over the lot ledger: manual
// stock corrections, the cached availability summary and the expiry report.
type InventoryService interface {
	// AdjustStock applies a manual product-level correction. Increases
	// create a fresh adjust-source lot; decreases deduct from available
	// lots oldest received first.
	AdjustStock(ctx context.Context, actor *uuid.UUID, req dto.StockAdjustRequest) (*dto.StockAdjustResponse, error)

	Summary(ctx context.Context, productID uuid.UUID) (*dto.StockSummaryResponse, error)
	ExpiryAlerts(ctx context.Context, days int) ([]dto.LotAlertResponse, error)
}

type inventoryService struct {
	ledger   LedgerService
	lots     repository.LotRepository
	products repository.ProductRepository
	cache    *redis.Client
}

func NewInventoryService(
	ledger LedgerService,
	lots repository.LotRepository,
	products repository.ProductRepository,
	cache *redis.Client,
) InventoryService {
	return &inventoryService{ledger: ledger, lots: lots, products: products, cache: cache}
}

func (s *inventoryService) AdjustStock(ctx context.Context, actor *uuid.UUID, req dto.StockAdjustRequest) (*dto.StockAdjustResponse, error) {
	if !req.Quantity.IsPositive() {
		return nil, &InvalidQuantityError{Requested: req.Quantity, Reason: "quantity must be positive"}
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s not found", req.ProductID)
	}

	resp := &dto.StockAdjustResponse{
		ProductID:   product.ID.String(),
		ProductName: product.InternalName,
		Type:        req.AdjustmentType,
		Quantity:    req.Quantity,
		StockBefore: product.CurrentStock,
	}

	switch req.AdjustmentType {
	case "increase":
		notes := "stock adjustment: " + req.Reason
		if req.Notes != nil && *req.Notes != "" {
			notes += " | " + *req.Notes
		}
		lot, err := s.ledger.CreateLot(ctx, actor, dto.CreateLotRequest{
			ProductID:       req.ProductID,
			InitialQuantity: req.Quantity,
			SourceType:      model.LotSourceAdjust,
			Notes:           &notes,
		})
		if err != nil {
			return nil, err
		}
		resp.LotID = &lot.ID
		resp.LotNumber = &lot.LotNumber
		resp.StockAfter = product.CurrentStock.Add(req.Quantity)

	case "decrease":
		deducted, err := s.deductFIFO(ctx, actor, productID, req.Quantity, req.Reason)
		if err != nil {
			return nil, err
		}
		resp.DeductedLots = deducted
		resp.StockAfter = product.CurrentStock.Sub(req.Quantity)

	default:
		return nil, errors.New("adjustment_type must be increase or decrease")
	}

	s.invalidateSummary(ctx, productID)
	return resp, nil
}

// deductFIFO walks available lots oldest received first, draining each until
// the requested quantity is covered. The aggregate is checked up front so a
// shortfall fails before any lot is touched.
func (s *inventoryService) deductFIFO(ctx context.Context, actor *uuid.UUID, productID uuid.UUID, qty decimal.Decimal, reason string) ([]dto.DeductedLot, error) {
	lots, err := s.lots.ListAvailableFIFO(ctx, productID)
	if err != nil {
		return nil, err
	}

	available := decimal.Zero
	for i := range lots {
		available = available.Add(lots[i].CurrentQuantity)
	}
	if available.LessThan(qty) {
		return nil, &InsufficientQuantityError{Requested: qty, Available: available}
	}

	remaining := qty
	deducted := make([]dto.DeductedLot, 0, len(lots))
	for i := range lots {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, lots[i].CurrentQuantity)
		_, err := s.ledger.Adjust(ctx, actor, lots[i].ID, dto.AdjustLotRequest{
			Quantity: take.Neg(),
			Reason:   reason,
		})
		if err != nil {
			return nil, err
		}
		deducted = append(deducted, dto.DeductedLot{
			LotID:     lots[i].ID.String(),
			LotNumber: lots[i].LotNumber,
			Deducted:  take,
		})
		remaining = remaining.Sub(take)
	}
	return deducted, nil
}

func (s *inventoryService) Summary(ctx context.Context, productID uuid.UUID) (*dto.StockSummaryResponse, error) {
	key := fmt.Sprintf(summaryCacheKeyFmt, productID)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var cached dto.StockSummaryResponse
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s not found", productID)
	}
	total, count, err := s.lots.AvailableSummary(ctx, productID)
	if err != nil {
		return nil, err
	}

	resp := &dto.StockSummaryResponse{
		ProductID:         product.ID.String(),
		ProductCode:       product.InternalCode,
		ProductName:       product.InternalName,
		Unit:              product.Unit,
		AvailableQuantity: total,
		AvailableLots:     count,
	}

	if s.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, raw, summaryCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Str("product_id", productID.String()).Msg("summary cache write failed")
			}
		}
	}
	return resp, nil
}

func (s *inventoryService) ExpiryAlerts(ctx context.Context, days int) ([]dto.LotAlertResponse, error) {
	if days <= 0 {
		days = 30
	}
	lots, err := s.lots.ListExpiringWithin(ctx, days)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	alerts := make([]dto.LotAlertResponse, 0, len(lots))
	for i := range lots {
		l := &lots[i]
		if l.ExpiryDate == nil {
			continue
		}
		alert := dto.LotAlertResponse{
			LotID:           l.ID.String(),
			LotNumber:       l.LotNumber,
			CurrentQuantity: l.CurrentQuantity,
			Unit:            l.Unit,
			ExpiryDate:      l.ExpiryDate.Format("2006-01-02"),
			DaysLeft:        int(l.ExpiryDate.Sub(now).Hours() / 24),
		}
		if l.Product != nil {
			alert.ProductName = l.Product.InternalName
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func (s *inventoryService) invalidateSummary(ctx context.Context, productID uuid.UUID) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf(summaryCacheKeyFmt, productID)
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).Msg("summary cache invalidation failed")
	}
}
