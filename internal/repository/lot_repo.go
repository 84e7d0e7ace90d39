package repository

import (
	"context"
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LotRepository is the data access contract for inventory lots. Services
// depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
//
// Quantity writes go through CompareAndSwapQuantityTx only — the optimistic
// check is what prevents lost updates when two requests race on one lot.
type LotRepository interface {
	Create(ctx context.Context, l *model.Lot) error
	CreateTx(tx *gorm.DB, l *model.Lot) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lot, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Lot, error)
	List(ctx context.Context, filter dto.LotFilter) ([]model.Lot, int64, error)

	// ListAvailableFIFO returns available lots of a product with quantity
	// remaining, oldest received first (receipt-date FIFO).
	ListAvailableFIFO(ctx context.Context, productID uuid.UUID) ([]model.Lot, error)

	// ListExpired returns available lots whose expiry date passed before asOf.
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]model.Lot, error)

	// ListExpiringWithin returns available lots expiring in the next `days`.
	ListExpiringWithin(ctx context.Context, days int) ([]model.Lot, error)

	// UpdateMetadataTx persists non-quantity fields (location, cost, expiry,
	// notes). It never writes status or quantities; those go through the
	// guarded writes below.
	UpdateMetadataTx(tx *gorm.DB, l *model.Lot) error

	// CompareAndSwapQuantityTx atomically moves current_quantity from
	// expected to next (and sets status) iff the stored value still equals
	// expected. Returns false when a concurrent writer got there first.
	CompareAndSwapQuantityTx(tx *gorm.DB, id uuid.UUID, expected, next decimal.Decimal, status string) (bool, error)

	// UpdateStatusGuardedTx flips status from->to iff the stored row still
	// holds both the status and the quantity the caller validated against.
	// Returns false when a concurrent writer got there first.
	UpdateStatusGuardedTx(tx *gorm.DB, id uuid.UUID, from, to string, expectedQty decimal.Decimal) (bool, error)

	AvailableSummary(ctx context.Context, productID uuid.UUID) (decimal.Decimal, int, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type lotRepo struct{ db *gorm.DB }

func NewLotRepository(db *gorm.DB) LotRepository { return &lotRepo{db: db} }

func (r *lotRepo) Create(ctx context.Context, l *model.Lot) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *lotRepo) CreateTx(tx *gorm.DB, l *model.Lot) error {
	return tx.Create(l).Error
}

func (r *lotRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Lot, error) {
	var l model.Lot
	err := r.db.WithContext(ctx).
		Preload("Product").Preload("SourceLot").Preload("Supplier").
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *lotRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Lot, error) {
	var l model.Lot
	if err := tx.First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *lotRepo) List(ctx context.Context, filter dto.LotFilter) ([]model.Lot, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Lot{}).
		Preload("Product").Preload("SourceLot").Preload("Supplier")

	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SourceType != "" {
		q = q.Where("source_type = ?", filter.SourceType)
	}
	if filter.SupplierID != "" {
		q = q.Where("supplier_id = ?", filter.SupplierID)
	}
	if filter.Location != "" {
		q = q.Where("location ILIKE ?", "%"+filter.Location+"%")
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("lot_number ILIKE ? OR notes ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var lots []model.Lot
	err := q.Order("received_at DESC, created_at DESC").Offset(offset).Limit(limit).Find(&lots).Error
	return lots, total, err
}

func (r *lotRepo) ListAvailableFIFO(ctx context.Context, productID uuid.UUID) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ? AND current_quantity > 0", productID, model.LotStatusAvailable).
		Order("received_at ASC, created_at ASC").
		Find(&lots).Error
	return lots, err
}

func (r *lotRepo) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date < ?", model.LotStatusAvailable, asOf).
		Order("expiry_date ASC").
		Limit(limit).
		Find(&lots).Error
	return lots, err
}

func (r *lotRepo) ListExpiringWithin(ctx context.Context, days int) ([]model.Lot, error) {
	now := time.Now()
	until := now.AddDate(0, 0, days)
	var lots []model.Lot
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date >= ? AND expiry_date <= ?",
			model.LotStatusAvailable, now, until).
		Order("expiry_date ASC").
		Find(&lots).Error
	return lots, err
}

func (r *lotRepo) UpdateMetadataTx(tx *gorm.DB, l *model.Lot) error {
	return tx.Model(&model.Lot{}).Where("id = ?", l.ID).Updates(map[string]interface{}{
		"location":    l.Location,
		"unit_cost":   l.UnitCost,
		"total_cost":  l.TotalCost,
		"expiry_date": l.ExpiryDate,
		"notes":       l.Notes,
	}).Error
}

func (r *lotRepo) CompareAndSwapQuantityTx(tx *gorm.DB, id uuid.UUID, expected, next decimal.Decimal, status string) (bool, error) {
	res := tx.Model(&model.Lot{}).
		Where("id = ? AND current_quantity = ?", id, expected).
		Updates(map[string]interface{}{
			"current_quantity": next,
			"status":           status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *lotRepo) UpdateStatusGuardedTx(tx *gorm.DB, id uuid.UUID, from, to string, expectedQty decimal.Decimal) (bool, error) {
	res := tx.Model(&model.Lot{}).
		Where("id = ? AND status = ? AND current_quantity = ?", id, from, expectedQty).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *lotRepo) AvailableSummary(ctx context.Context, productID uuid.UUID) (decimal.Decimal, int, error) {
	type row struct {
		Total decimal.Decimal
		Lots  int
	}
	var out row
	err := r.db.WithContext(ctx).Model(&model.Lot{}).
		Select("COALESCE(SUM(current_quantity), 0) AS total, COUNT(*) AS lots").
		Where("product_id = ? AND status = ? AND current_quantity > 0", productID, model.LotStatusAvailable).
		Scan(&out).Error
	return out.Total, out.Lots, err
}

func (r *lotRepo) DB() *gorm.DB { return r.db }
