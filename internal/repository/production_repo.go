package repository

import (
	"context"

	"github.com/erurang/wooyangcrm-sub005/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductionRepository interface {
	CreateTx(tx *gorm.DB, rec *model.ProductionRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionRecord, error)
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error
}

type productionRepo struct{ db *gorm.DB }

func NewProductionRepository(db *gorm.DB) ProductionRepository {
	return &productionRepo{db: db}
}

func (r *productionRepo) CreateTx(tx *gorm.DB, rec *model.ProductionRecord) error {
	return tx.Create(rec).Error
}

func (r *productionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionRecord, error) {
	var rec model.ProductionRecord
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Items.Lot").
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *productionRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error {
	return tx.Model(&model.ProductionRecord{}).Where("id = ?", id).
		Update("status", status).Error
}
