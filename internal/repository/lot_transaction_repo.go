package repository

import (
	"context"

	"github.com/erurang/wooyangcrm-sub005/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LotTransactionRepository appends and reads audit rows. There is
// deliberately no Update or Delete: the log is immutable once written.
type LotTransactionRepository interface {
	CreateTx(tx *gorm.DB, t *model.LotTransaction) error
	ListByLot(ctx context.Context, lotID uuid.UUID) ([]model.LotTransaction, error)
}

type lotTransactionRepo struct{ db *gorm.DB }

func NewLotTransactionRepository(db *gorm.DB) LotTransactionRepository {
	return &lotTransactionRepo{db: db}
}

func (r *lotTransactionRepo) CreateTx(tx *gorm.DB, t *model.LotTransaction) error {
	return tx.Create(t).Error
}

func (r *lotTransactionRepo) ListByLot(ctx context.Context, lotID uuid.UUID) ([]model.LotTransaction, error) {
	var txs []model.LotTransaction
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Where("lot_id = ?", lotID).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	return txs, err
}
