package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/model"
	"github.com/erurang/wooyangcrm-sub005/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// casMaxAttempts bounds the optimistic-concurrency retry loop. Each attempt
// re-reads the lot, so a conflict always re-validates against fresh state.
const casMaxAttempts = 3

// LotNumberGenerator produces the next human-readable lot number.
type LotNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// LedgerService owns all lot quantity state. Every mutation funnels through
// applyQuantityChange (or the split transaction), which pairs the quantity
// write with its audit row in one atomic unit — a quantity change without a
// transaction entry, or vice versa, can never be observed.
type LedgerService interface {
	CreateLot(ctx context.Context, actor *uuid.UUID, req dto.CreateLotRequest) (*dto.LotResponse, error)
	GetLot(ctx context.Context, id uuid.UUID) (*dto.LotResponse, error)
	ListLots(ctx context.Context, filter dto.LotFilter) (*dto.LotListResponse, error)
	UpdateLot(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.UpdateLotRequest) (*dto.LotResponse, error)
	ScrapLot(ctx context.Context, actor *uuid.UUID, id uuid.UUID, reason string) error

	Consume(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.ConsumeLotRequest) (*dto.LotResponse, error)
	Split(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.SplitLotRequest) (*dto.SplitLotResponse, error)
	Adjust(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.AdjustLotRequest) (*dto.LotResponse, error)

	// Expire marks an available lot past its expiry date. Called by the
	// background sweep; writes a zero-delta entry so the status change is
	// still auditable.
	Expire(ctx context.Context, id uuid.UUID) error

	Transactions(ctx context.Context, lotID uuid.UUID) ([]dto.LotTransactionResponse, error)
	SplitHistory(ctx context.Context, lotID uuid.UUID) (*dto.SplitHistoryResponse, error)
}

type ledgerService struct {
	lots     repository.LotRepository
	txs      repository.LotTransactionRepository
	splits   repository.LotSplitRepository
	products repository.ProductRepository
	numbers  LotNumberGenerator
}

func NewLedgerService(
	lots repository.LotRepository,
	txs repository.LotTransactionRepository,
	splits repository.LotSplitRepository,
	products repository.ProductRepository,
	numbers LotNumberGenerator,
) LedgerService {
	return &ledgerService{
		lots:     lots,
		txs:      txs,
		splits:   splits,
		products: products,
		numbers:  numbers,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── CreateLot (receiving) ────────────────────────────────────────────────────

func (s *ledgerService) CreateLot(ctx context.Context, actor *uuid.UUID, req dto.CreateLotRequest) (*dto.LotResponse, error) {
	if !req.InitialQuantity.IsPositive() {
		return nil, &InvalidQuantityError{Requested: req.InitialQuantity, Reason: "initial quantity must be positive"}
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s not found", req.ProductID)
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = model.LotSourcePurchase
	}
	unit := req.Unit
	if unit == "" {
		unit = product.Unit
	}

	receivedAt := time.Now()
	if req.ReceivedAt != nil {
		if receivedAt, err = parseDate(*req.ReceivedAt); err != nil {
			return nil, fmt.Errorf("invalid received_at: %w", err)
		}
	}
	var expiry *time.Time
	if req.ExpiryDate != nil {
		t, err := parseDate(*req.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry_date: %w", err)
		}
		expiry = &t
	}

	var supplierID *uuid.UUID
	if req.SupplierID != nil {
		id, err := uuid.Parse(*req.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("invalid supplier_id: %w", err)
		}
		supplierID = &id
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("lot number generation: %w", err)
	}

	lot := &model.Lot{
		LotNumber:       number,
		ProductID:       productID,
		InitialQuantity: req.InitialQuantity,
		CurrentQuantity: req.InitialQuantity,
		Unit:            unit,
		SourceType:      sourceType,
		SupplierID:      supplierID,
		Status:          model.LotStatusAvailable,
		Location:        req.Location,
		UnitCost:        req.UnitCost,
		ReceivedAt:      receivedAt,
		ExpiryDate:      expiry,
		Notes:           req.Notes,
		CreatedBy:       actor,
	}
	if req.UnitCost != nil {
		total := req.UnitCost.Mul(req.InitialQuantity)
		lot.TotalCost = &total
	}

	txErr := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
		if err := s.lots.CreateTx(tx, lot); err != nil {
			return err
		}
		entry := &model.LotTransaction{
			LotID:          lot.ID,
			Type:           model.TxTypeReceipt,
			Quantity:       req.InitialQuantity,
			QuantityBefore: decimal.Zero,
			QuantityAfter:  req.InitialQuantity,
			Notes:          "lot received",
			CreatedBy:      actor,
		}
		if err := s.txs.CreateTx(tx, entry); err != nil {
			return err
		}
		return s.products.AdjustStockTx(tx, productID, req.InitialQuantity)
	})
	if txErr != nil {
		return nil, txErr
	}

	lot.Product = product
	return lotToResponse(lot), nil
}

// ── applyQuantityChange ──────────────────────────────────────────────────────
// The single mutation primitive. Reads the lot, validates the bounds
// invariant 0 <= current+delta <= initial, then commits the new quantity and
// the audit row together. The quantity write is a compare-and-swap on the
// pre-read value: when a concurrent writer got there first nothing is
// written and the loop retries against fresh state.

func (s *ledgerService) applyQuantityChange(
	ctx context.Context,
	lotID uuid.UUID,
	delta decimal.Decimal,
	actor *uuid.UUID,
	txType, notes string,
	refID *uuid.UUID,
	allowRestore bool,
) (*model.Lot, error) {
	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		lot, err := s.lots.FindByID(ctx, lotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{LotID: lotID}
			}
			return nil, err
		}

		switch txType {
		case model.TxTypeConsumption:
			if lot.Status != model.LotStatusAvailable {
				return nil, &InvalidStateError{LotID: lotID, Status: lot.Status, Op: "consumed"}
			}
		case model.TxTypeAdjustment:
			// The administrative override may also revive a consumed lot.
			if lot.Status != model.LotStatusAvailable &&
				!(allowRestore && lot.Status == model.LotStatusConsumed) {
				return nil, &InvalidStateError{LotID: lotID, Status: lot.Status, Op: "adjusted"}
			}
		case model.TxTypeScrap:
			if lot.Status != model.LotStatusAvailable && lot.Status != model.LotStatusConsumed {
				return nil, &InvalidStateError{LotID: lotID, Status: lot.Status, Op: "scrapped"}
			}
		}

		next := lot.CurrentQuantity.Add(delta)
		if next.IsNegative() {
			return nil, &InsufficientQuantityError{
				LotID:     lotID,
				Requested: delta.Neg(),
				Available: lot.CurrentQuantity,
			}
		}
		if next.GreaterThan(lot.InitialQuantity) {
			return nil, &InvalidQuantityError{
				LotID:     lotID,
				Requested: delta,
				Reason:    fmt.Sprintf("would exceed initial quantity %s", lot.InitialQuantity),
			}
		}

		status := lot.Status
		switch {
		case txType == model.TxTypeScrap:
			status = model.LotStatusScrapped
		case next.IsZero():
			status = model.LotStatusConsumed
		case lot.Status == model.LotStatusConsumed && allowRestore:
			status = model.LotStatusAvailable
		}

		swapped := false
		txErr := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
			ok, err := s.lots.CompareAndSwapQuantityTx(tx, lotID, lot.CurrentQuantity, next, status)
			if err != nil {
				return err
			}
			if !ok {
				// Concurrent writer won the race; nothing written, retry.
				return nil
			}
			swapped = true
			entry := &model.LotTransaction{
				LotID:          lotID,
				Type:           txType,
				Quantity:       delta,
				QuantityBefore: lot.CurrentQuantity,
				QuantityAfter:  next,
				ReferenceID:    refID,
				Notes:          notes,
				CreatedBy:      actor,
			}
			if err := s.txs.CreateTx(tx, entry); err != nil {
				return err
			}
			return s.products.AdjustStockTx(tx, lot.ProductID, delta)
		})
		if txErr != nil {
			return nil, txErr
		}
		if !swapped {
			continue
		}

		lot.CurrentQuantity = next
		lot.Status = status
		return lot, nil
	}
	return nil, ErrConcurrencyConflict
}

// ── Consume ──────────────────────────────────────────────────────────────────

func (s *ledgerService) Consume(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.ConsumeLotRequest) (*dto.LotResponse, error) {
	if !req.Quantity.IsPositive() {
		return nil, &InvalidQuantityError{LotID: id, Requested: req.Quantity, Reason: "quantity must be positive"}
	}
	var refID *uuid.UUID
	if req.ReferenceID != nil {
		parsed, err := uuid.Parse(*req.ReferenceID)
		if err != nil {
			return nil, fmt.Errorf("invalid reference_id: %w", err)
		}
		refID = &parsed
	}
	notes := req.Notes
	if notes == "" {
		notes = "material consumed"
	}
	lot, err := s.applyQuantityChange(ctx, id, req.Quantity.Neg(), actor, model.TxTypeConsumption, notes, refID, false)
	if err != nil {
		return nil, err
	}
	return lotToResponse(lot), nil
}

// ── Adjust ───────────────────────────────────────────────────────────────────
// Administrative override: signed delta with a mandatory reason. This is the
// only path that may move quantity back up — e.g. compensating a canceled
// production record — and the only one allowed to revive a consumed lot.

func (s *ledgerService) Adjust(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.AdjustLotRequest) (*dto.LotResponse, error) {
	if req.Quantity.IsZero() {
		return nil, &InvalidQuantityError{LotID: id, Requested: req.Quantity, Reason: "adjustment delta must be non-zero"}
	}
	if req.Reason == "" {
		return nil, errors.New("adjustment reason is required")
	}
	notes := "adjustment: " + req.Reason
	if req.Notes != nil && *req.Notes != "" {
		notes += " | " + *req.Notes
	}
	lot, err := s.applyQuantityChange(ctx, id, req.Quantity, actor, model.TxTypeAdjustment, notes, nil, true)
	if err != nil {
		return nil, err
	}
	return lotToResponse(lot), nil
}

// ── Split ────────────────────────────────────────────────────────────────────
// Divides a lot's entire remaining quantity between an output portion and a
// remnant, both new lots pointing back at the source. Conservation holds by
// construction: output.initial + remnant.initial == source.current at split.

func (s *ledgerService) Split(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.SplitLotRequest) (*dto.SplitLotResponse, error) {
	if !req.SplitQuantity.IsPositive() {
		return nil, &InvalidQuantityError{LotID: id, Requested: req.SplitQuantity, Reason: "split quantity must be positive"}
	}
	reason := req.Reason
	if reason == "" {
		reason = model.SplitReasonOrder
	}

	// Generated once after the first validation pass; a lost CAS race must
	// not burn additional sequence numbers.
	var outputNumber, remnantNumber string

	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		source, err := s.lots.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{LotID: id}
			}
			return nil, err
		}
		if source.Status != model.LotStatusAvailable {
			return nil, &InvalidStateError{LotID: id, Status: source.Status, Op: "split"}
		}
		if req.SplitQuantity.GreaterThan(source.CurrentQuantity) {
			return nil, &InvalidQuantityError{
				LotID:     id,
				Requested: req.SplitQuantity,
				Reason:    fmt.Sprintf("exceeds current quantity %s", source.CurrentQuantity),
			}
		}

		sourceQty := source.CurrentQuantity
		remnantQty := sourceQty.Sub(req.SplitQuantity)

		if outputNumber == "" {
			if outputNumber, err = s.numbers.Next(ctx); err != nil {
				return nil, fmt.Errorf("lot number generation: %w", err)
			}
			if remnantNumber, err = s.numbers.Next(ctx); err != nil {
				return nil, fmt.Errorf("lot number generation: %w", err)
			}
		}

		output := newDescendantLot(source, outputNumber, req.SplitQuantity, actor)
		remnant := newDescendantLot(source, remnantNumber, remnantQty, actor)
		if remnantQty.IsZero() {
			// Nothing left over — the remnant is born already consumed.
			remnant.Status = model.LotStatusConsumed
		}

		var split model.LotSplit
		swapped := false
		txErr := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
			ok, err := s.lots.CompareAndSwapQuantityTx(tx, source.ID, sourceQty, decimal.Zero, model.LotStatusSplit)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			swapped = true

			if err := s.lots.CreateTx(tx, output); err != nil {
				return err
			}
			if err := s.lots.CreateTx(tx, remnant); err != nil {
				return err
			}

			drain := &model.LotTransaction{
				LotID:          source.ID,
				Type:           model.TxTypeSplitOut,
				Quantity:       sourceQty.Neg(),
				QuantityBefore: sourceQty,
				QuantityAfter:  decimal.Zero,
				Notes:          fmt.Sprintf("split into %s (output) and %s (remnant)", output.LotNumber, remnant.LotNumber),
				CreatedBy:      actor,
			}
			if err := s.txs.CreateTx(tx, drain); err != nil {
				return err
			}

			outEntry := &model.LotTransaction{
				LotID:          output.ID,
				Type:           model.TxTypeSplitOut,
				Quantity:       req.SplitQuantity,
				QuantityBefore: decimal.Zero,
				QuantityAfter:  req.SplitQuantity,
				ReferenceID:    &source.ID,
				Notes:          fmt.Sprintf("split from %s", source.LotNumber),
				CreatedBy:      actor,
			}
			if err := s.txs.CreateTx(tx, outEntry); err != nil {
				return err
			}

			remEntry := &model.LotTransaction{
				LotID:          remnant.ID,
				Type:           model.TxTypeSplitRemnant,
				Quantity:       remnantQty,
				QuantityBefore: decimal.Zero,
				QuantityAfter:  remnantQty,
				ReferenceID:    &source.ID,
				Notes:          fmt.Sprintf("remnant of %s", source.LotNumber),
				CreatedBy:      actor,
			}
			if err := s.txs.CreateTx(tx, remEntry); err != nil {
				return err
			}

			split = model.LotSplit{
				SourceLotID:   source.ID,
				OutputLotID:   output.ID,
				RemnantLotID:  remnant.ID,
				SplitQuantity: req.SplitQuantity,
				Reason:        reason,
				Notes:         req.Notes,
				SplitBy:       actor,
				SplitAt:       time.Now(),
			}
			return s.splits.CreateTx(tx, &split)
			// The quantity moved out of the source equals what the two new
			// lots hold, so the product stock projection is untouched.
		})
		if txErr != nil {
			return nil, txErr
		}
		if !swapped {
			continue
		}

		source.CurrentQuantity = decimal.Zero
		source.Status = model.LotStatusSplit
		return &dto.SplitLotResponse{
			SplitID:    split.ID.String(),
			SourceLot:  *lotToResponse(source),
			OutputLot:  *lotToResponse(output),
			RemnantLot: *lotToResponse(remnant),
		}, nil
	}
	return nil, ErrConcurrencyConflict
}

// newDescendantLot carries product/cost/location metadata over from the
// source; the unit cost is unchanged and the total cost prorated.
func newDescendantLot(source *model.Lot, number string, qty decimal.Decimal, actor *uuid.UUID) *model.Lot {
	lot := &model.Lot{
		LotNumber:       number,
		ProductID:       source.ProductID,
		InitialQuantity: qty,
		CurrentQuantity: qty,
		Unit:            source.Unit,
		SourceType:      model.LotSourceSplit,
		SourceLotID:     &source.ID,
		SupplierID:      source.SupplierID,
		Status:          model.LotStatusAvailable,
		Location:        source.Location,
		UnitCost:        source.UnitCost,
		ReceivedAt:      source.ReceivedAt,
		ExpiryDate:      source.ExpiryDate,
		CreatedBy:       actor,
	}
	if source.UnitCost != nil {
		total := source.UnitCost.Mul(qty)
		lot.TotalCost = &total
	}
	return lot
}

// ── Expire ───────────────────────────────────────────────────────────────────

func (s *ledgerService) Expire(ctx context.Context, id uuid.UUID) error {
	// The status flip is guarded on the quantity read in the same attempt so
	// the audit row and the projection decrement always match what was on
	// the lot when it expired. A racing consume fails the guard and the
	// attempt re-validates against fresh state.
	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		lot, err := s.lots.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{LotID: id}
			}
			return err
		}
		if lot.Status != model.LotStatusAvailable {
			return &InvalidStateError{LotID: id, Status: lot.Status, Op: "expired"}
		}

		flipped := false
		txErr := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
			ok, err := s.lots.UpdateStatusGuardedTx(tx, lot.ID, model.LotStatusAvailable, model.LotStatusExpired, lot.CurrentQuantity)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			flipped = true
			entry := &model.LotTransaction{
				LotID:          lot.ID,
				Type:           model.TxTypeExpiry,
				Quantity:       decimal.Zero,
				QuantityBefore: lot.CurrentQuantity,
				QuantityAfter:  lot.CurrentQuantity,
				Notes:          "expired past expiry date",
			}
			if err := s.txs.CreateTx(tx, entry); err != nil {
				return err
			}
			// Quantity is untouched but no longer sellable — drop it from
			// the availability projection.
			return s.products.AdjustStockTx(tx, lot.ProductID, lot.CurrentQuantity.Neg())
		})
		if txErr != nil {
			return txErr
		}
		if flipped {
			return nil
		}
	}
	return ErrConcurrencyConflict
}

// ── ScrapLot ─────────────────────────────────────────────────────────────────

func (s *ledgerService) ScrapLot(ctx context.Context, actor *uuid.UUID, id uuid.UUID, reason string) error {
	lot, err := s.lots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{LotID: id}
		}
		return err
	}
	if lot.Status == model.LotStatusSplit {
		return &InvalidStateError{LotID: id, Status: lot.Status, Op: "scrapped"}
	}
	notes := "lot scrapped"
	if reason != "" {
		notes += ": " + reason
	}
	_, err = s.applyQuantityChange(ctx, id, lot.CurrentQuantity.Neg(), actor, model.TxTypeScrap, notes, nil, false)
	return err
}

// ── UpdateLot (metadata) ─────────────────────────────────────────────────────

func (s *ledgerService) UpdateLot(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req dto.UpdateLotRequest) (*dto.LotResponse, error) {
	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		lot, err := s.lots.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{LotID: id}
			}
			return nil, err
		}

		oldStatus := lot.Status
		newStatus := oldStatus
		if req.Status != nil && *req.Status != oldStatus {
			// Manual status edits may only move between the hold labels;
			// terminal bookkeeping states are owned by the ledger operations.
			allowed := map[string]bool{
				model.LotStatusAvailable: true,
				model.LotStatusReserved:  true,
				model.LotStatusExpired:   true,
			}
			if !allowed[oldStatus] || !allowed[*req.Status] {
				return nil, &InvalidStateError{LotID: id, Status: oldStatus, Op: "re-labeled"}
			}
			newStatus = *req.Status
		}

		if req.Location != nil {
			lot.Location = req.Location
		}
		if req.UnitCost != nil {
			lot.UnitCost = req.UnitCost
			total := req.UnitCost.Mul(lot.CurrentQuantity)
			lot.TotalCost = &total
		}
		if req.ExpiryDate != nil {
			t, err := parseDate(*req.ExpiryDate)
			if err != nil {
				return nil, fmt.Errorf("invalid expiry_date: %w", err)
			}
			lot.ExpiryDate = &t
		}
		if req.Notes != nil {
			lot.Notes = req.Notes
		}

		applied := false
		txErr := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
			if err := s.lots.UpdateMetadataTx(tx, lot); err != nil {
				return err
			}
			if newStatus == oldStatus {
				applied = true
				return nil
			}
			// The flip is guarded on the status and quantity read above so a
			// concurrent quantity change can never be relabeled with stale
			// state; a lost race retries from a fresh read.
			ok, err := s.lots.UpdateStatusGuardedTx(tx, lot.ID, oldStatus, newStatus, lot.CurrentQuantity)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			applied = true

			// Status flip is auditable even with no quantity movement.
			entry := &model.LotTransaction{
				LotID:          lot.ID,
				Type:           relabelTxType(oldStatus, newStatus),
				Quantity:       decimal.Zero,
				QuantityBefore: lot.CurrentQuantity,
				QuantityAfter:  lot.CurrentQuantity,
				Notes:          fmt.Sprintf("status change: %s -> %s", oldStatus, newStatus),
				CreatedBy:      actor,
			}
			if err := s.txs.CreateTx(tx, entry); err != nil {
				return err
			}
			// Only expiry moves quantity out of the availability projection;
			// a reserve hold keeps it on hand.
			var stockDelta decimal.Decimal
			switch {
			case newStatus == model.LotStatusExpired:
				stockDelta = lot.CurrentQuantity.Neg()
			case oldStatus == model.LotStatusExpired:
				stockDelta = lot.CurrentQuantity
			default:
				return nil
			}
			return s.products.AdjustStockTx(tx, lot.ProductID, stockDelta)
		})
		if txErr != nil {
			return nil, txErr
		}
		if applied {
			lot.Status = newStatus
			return lotToResponse(lot), nil
		}
	}
	return nil, ErrConcurrencyConflict
}

// relabelTxType maps a manual status flip to its audit entry type.
func relabelTxType(from, to string) string {
	switch {
	case to == model.LotStatusReserved:
		return model.TxTypeReserve
	case from == model.LotStatusReserved && to == model.LotStatusAvailable:
		return model.TxTypeUnreserve
	default:
		return model.TxTypeAdjustment
	}
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *ledgerService) GetLot(ctx context.Context, id uuid.UUID) (*dto.LotResponse, error) {
	lot, err := s.lots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{LotID: id}
		}
		return nil, err
	}
	return lotToResponse(lot), nil
}

func (s *ledgerService) ListLots(ctx context.Context, filter dto.LotFilter) (*dto.LotListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	lots, total, err := s.lots.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LotResponse, 0, len(lots))
	for i := range lots {
		items = append(items, *lotToResponse(&lots[i]))
	}
	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &dto.LotListResponse{
		Data:       items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

func (s *ledgerService) Transactions(ctx context.Context, lotID uuid.UUID) ([]dto.LotTransactionResponse, error) {
	if _, err := s.lots.FindByID(ctx, lotID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{LotID: lotID}
		}
		return nil, err
	}
	txs, err := s.txs.ListByLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LotTransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, *txToResponse(&txs[i]))
	}
	return out, nil
}

func (s *ledgerService) SplitHistory(ctx context.Context, lotID uuid.UUID) (*dto.SplitHistoryResponse, error) {
	if _, err := s.lots.FindByID(ctx, lotID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{LotID: lotID}
		}
		return nil, err
	}
	from, err := s.splits.ListBySource(ctx, lotID)
	if err != nil {
		return nil, err
	}
	to, err := s.splits.FindByDescendant(ctx, lotID)
	if err != nil {
		return nil, err
	}

	resp := &dto.SplitHistoryResponse{
		SplitFrom: make([]dto.LotSplitRecordResponse, 0, len(from)),
	}
	for i := range from {
		resp.SplitFrom = append(resp.SplitFrom, *splitToResponse(&from[i]))
	}
	if to != nil {
		resp.SplitTo = splitToResponse(to)
	}
	return resp, nil
}

// ── DTO mapping ──────────────────────────────────────────────────────────────

func lotToResponse(l *model.Lot) *dto.LotResponse {
	resp := &dto.LotResponse{
		ID:              l.ID.String(),
		LotNumber:       l.LotNumber,
		ProductID:       l.ProductID.String(),
		InitialQuantity: l.InitialQuantity,
		CurrentQuantity: l.CurrentQuantity,
		Unit:            l.Unit,
		SourceType:      l.SourceType,
		Status:          l.Status,
		Location:        l.Location,
		UnitCost:        l.UnitCost,
		TotalCost:       l.TotalCost,
		ReceivedAt:      l.ReceivedAt.Format(time.RFC3339),
		Notes:           l.Notes,
		CreatedAt:       l.CreatedAt.Format(time.RFC3339),
	}
	if l.Product != nil {
		resp.ProductCode = l.Product.InternalCode
		resp.ProductName = l.Product.InternalName
	}
	if l.SourceLotID != nil {
		id := l.SourceLotID.String()
		resp.SourceLotID = &id
	}
	if l.SourceLot != nil {
		resp.SourceLotNumber = &l.SourceLot.LotNumber
	}
	if l.SupplierID != nil {
		id := l.SupplierID.String()
		resp.SupplierID = &id
	}
	if l.Supplier != nil {
		resp.SupplierName = &l.Supplier.Name
	}
	if l.ExpiryDate != nil {
		d := l.ExpiryDate.Format("2006-01-02")
		resp.ExpiryDate = &d
	}
	return resp
}

func txToResponse(t *model.LotTransaction) *dto.LotTransactionResponse {
	resp := &dto.LotTransactionResponse{
		ID:             t.ID.String(),
		LotID:          t.LotID.String(),
		Type:           t.Type,
		Quantity:       t.Quantity,
		QuantityBefore: t.QuantityBefore,
		QuantityAfter:  t.QuantityAfter,
		Notes:          t.Notes,
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
	}
	if t.ReferenceID != nil {
		id := t.ReferenceID.String()
		resp.ReferenceID = &id
	}
	if t.CreatedBy != nil {
		id := t.CreatedBy.String()
		resp.CreatedBy = &id
	}
	return resp
}

func splitToResponse(s *model.LotSplit) *dto.LotSplitRecordResponse {
	resp := &dto.LotSplitRecordResponse{
		ID:            s.ID.String(),
		SourceLotID:   s.SourceLotID.String(),
		OutputLotID:   s.OutputLotID.String(),
		RemnantLotID:  s.RemnantLotID.String(),
		SplitQuantity: s.SplitQuantity,
		Reason:        s.Reason,
		Notes:         s.Notes,
		SplitAt:       s.SplitAt.Format(time.RFC3339),
	}
	if s.SourceLot != nil {
		resp.SourceLotNumber = s.SourceLot.LotNumber
	}
	if s.OutputLot != nil {
		resp.OutputLotNumber = s.OutputLot.LotNumber
	}
	if s.RemnantLot != nil {
		resp.RemnantLotNumber = s.RemnantLot.LotNumber
	}
	if s.SplitBy != nil {
		id := s.SplitBy.String()
		resp.SplitBy = &id
	}
	return resp
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
