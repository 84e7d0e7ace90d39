package repository

import (
	"context"
	"errors"

	"github.com/erurang/wooyangcrm-sub005/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LotSplitRepository stores immutable split records and answers the two
// lineage questions: what was split FROM this lot, and which split (at most
// one) created it.
type LotSplitRepository interface {
	CreateTx(tx *gorm.DB, s *model.LotSplit) error
	ListBySource(ctx context.Context, sourceLotID uuid.UUID) ([]model.LotSplit, error)
	FindByDescendant(ctx context.Context, lotID uuid.UUID) (*model.LotSplit, error)
}

type lotSplitRepo struct{ db *gorm.DB }

func NewLotSplitRepository(db *gorm.DB) LotSplitRepository { return &lotSplitRepo{db: db} }

func (r *lotSplitRepo) CreateTx(tx *gorm.DB, s *model.LotSplit) error {
	return tx.Create(s).Error
}

func (r *lotSplitRepo) ListBySource(ctx context.Context, sourceLotID uuid.UUID) ([]model.LotSplit, error) {
	var splits []model.LotSplit
	err := r.db.WithContext(ctx).
		Preload("OutputLot").Preload("RemnantLot").Preload("Splitter").
		Where("source_lot_id = ?", sourceLotID).
		Order("split_at DESC").
		Find(&splits).Error
	return splits, err
}

// FindByDescendant returns nil, nil when the lot was not created by a split.
func (r *lotSplitRepo) FindByDescendant(ctx context.Context, lotID uuid.UUID) (*model.LotSplit, error) {
	var s model.LotSplit
	err := r.db.WithContext(ctx).
		Preload("SourceLot").Preload("OutputLot").Preload("RemnantLot").Preload("Splitter").
		Where("output_lot_id = ? OR remnant_lot_id = ?", lotID, lotID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
