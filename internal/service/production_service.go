package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/model"
	"github.com/erurang/wooyangcrm-sub005/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProductionService records material consumption for production runs. Each
// item becomes a consumption transaction on its lot; cancellation writes
// compensating adjustments instead of deleting history.
type ProductionService interface {
	RecordConsumption(ctx context.Context, actor *uuid.UUID, req dto.RecordProductionRequest) (*dto.ProductionRecordResponse, error)
	Cancel(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.CancelProductionRequest) (*dto.ProductionRecordResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductionRecordResponse, error)
}

type productionService struct {
	ledger  LedgerService
	records repository.ProductionRepository
	lots    repository.LotRepository
}

func NewProductionService(ledger LedgerService, records repository.ProductionRepository, lots repository.LotRepository) ProductionService {
	return &productionService{ledger: ledger, records: records, lots: lots}
}

func (s *productionService) RecordConsumption(ctx context.Context, actor *uuid.UUID, req dto.RecordProductionRequest) (*dto.ProductionRecordResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}

	items := make([]model.ProductionConsumption, 0, len(req.Items))
	for _, item := range req.Items {
		lotID, err := uuid.Parse(item.LotID)
		if err != nil {
			return nil, fmt.Errorf("invalid lot_id %q: %w", item.LotID, err)
		}
		if !item.Quantity.IsPositive() {
			return nil, &InvalidQuantityError{LotID: lotID, Requested: item.Quantity, Reason: "quantity must be positive"}
		}
		items = append(items, model.ProductionConsumption{LotID: lotID, Quantity: item.Quantity})
	}

	rec := &model.ProductionRecord{
		ProductID: productID,
		Status:    model.ProductionStatusRecorded,
		Notes:     req.Notes,
		CreatedBy: actor,
		Items:     items,
	}
	if err := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
		return s.records.CreateTx(tx, rec)
	}); err != nil {
		return nil, err
	}

	// Consume item by item. Each consumption commits independently, so a
	// failure part-way through is unwound with compensating adjustments
	// before the error is surfaced.
	consumed := make([]model.ProductionConsumption, 0, len(items))
	for _, item := range rec.Items {
		note := fmt.Sprintf("production run %s", rec.ID)
		_, err := s.ledger.Consume(ctx, actor, item.LotID, dto.ConsumeLotRequest{
			Quantity:    item.Quantity,
			ReferenceID: strPtr(rec.ID.String()),
			Notes:       note,
		})
		if err != nil {
			compErr := s.compensate(ctx, actor, rec.ID, consumed, "rolled back after failed consumption")
			if mErr := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
				return s.records.UpdateStatusTx(tx, rec.ID, model.ProductionStatusCanceled)
			}); mErr != nil {
				log.Error().Err(mErr).Str("record_id", rec.ID.String()).Msg("failed to mark production record canceled")
			}
			if compErr != nil {
				return nil, fmt.Errorf("consume lot %s: %w (%v)", item.LotID, err, compErr)
			}
			return nil, fmt.Errorf("consume lot %s: %w", item.LotID, err)
		}
		consumed = append(consumed, item)
	}

	return s.toResponse(ctx, rec)
}

func (s *productionService) Cancel(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.CancelProductionRequest) (*dto.ProductionRecordResponse, error) {
	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("production record %s not found", id)
		}
		return nil, err
	}
	if rec.Status == model.ProductionStatusCanceled {
		return nil, fmt.Errorf("production record %s is already canceled", id)
	}

	compErr := s.compensate(ctx, actor, rec.ID, rec.Items, req.Reason)

	if err := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
		return s.records.UpdateStatusTx(tx, rec.ID, model.ProductionStatusCanceled)
	}); err != nil {
		return nil, err
	}
	if compErr != nil {
		// The record is canceled but some lots were not restored; the caller
		// must know which ones need a manual adjustment.
		return nil, fmt.Errorf("production record %s canceled, but %w", id, compErr)
	}
	rec.Status = model.ProductionStatusCanceled
	return s.toResponse(ctx, rec)
}

func (s *productionService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductionRecordResponse, error) {
	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("production record %s not found", id)
		}
		return nil, err
	}
	return s.toResponse(ctx, rec)
}

// compensate restores the given consumptions via positive adjustments. A
// failed restoration is skipped so the remaining lots still get restored,
// then reported back with the lot ids that need manual intervention.
func (s *productionService) compensate(ctx context.Context, actor *uuid.UUID, recordID uuid.UUID, items []model.ProductionConsumption, reason string) error {
	var failed []string
	for _, item := range items {
		_, err := s.ledger.Adjust(ctx, actor, item.LotID, dto.AdjustLotRequest{
			Quantity: item.Quantity,
			Reason:   fmt.Sprintf("production run %s canceled: %s", recordID, reason),
		})
		if err != nil {
			log.Error().Err(err).
				Str("record_id", recordID.String()).
				Str("lot_id", item.LotID.String()).
				Msg("compensating adjustment failed")
			failed = append(failed, item.LotID.String())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("restoration failed for lots %s", strings.Join(failed, ", "))
	}
	return nil
}

func (s *productionService) toResponse(ctx context.Context, rec *model.ProductionRecord) (*dto.ProductionRecordResponse, error) {
	resp := &dto.ProductionRecordResponse{
		ID:        rec.ID.String(),
		ProductID: rec.ProductID.String(),
		Status:    rec.Status,
		Notes:     rec.Notes,
		Items:     make([]dto.ProductionItemResponse, 0, len(rec.Items)),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range rec.Items {
		r := dto.ProductionItemResponse{
			LotID:    item.LotID.String(),
			Quantity: item.Quantity,
		}
		if item.Lot != nil {
			r.LotNumber = item.Lot.LotNumber
		}
		resp.Items = append(resp.Items, r)
	}
	return resp, nil
}

func strPtr(s string) *string { return &s }
