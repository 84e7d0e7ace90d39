package infra

import (
	"fmt"

	"github.com/erurang/wooyangcrm-sub005/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies idempotent SQL patches that GORM
// cannot express (partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates the schema. Also used by the integration
// test harness against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Company{},
		&model.Product{},
		&model.Lot{},
		&model.LotTransaction{},
		&model.LotSplit{},
		&model.ProductionRecord{},
		&model.ProductionConsumption{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement guards itself so re-running on a patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Partial index backing the FIFO walk and availability summary:
		// only available lots with quantity remaining are ever scanned.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_lots_available_fifo') THEN
		    CREATE INDEX idx_lots_available_fifo
		        ON inventory_lots (product_id, received_at)
		        WHERE status = 'available' AND current_quantity > 0;
		  END IF;
		END $$`,
		// Partial index for the expiry sweep query.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_lots_expiry_sweep') THEN
		    CREATE INDEX idx_lots_expiry_sweep
		        ON inventory_lots (expiry_date)
		        WHERE status = 'available' AND expiry_date IS NOT NULL;
		  END IF;
		END $$`,
		// Transaction history is always read in insertion order per lot.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_lot_transactions_lot_created') THEN
		    CREATE INDEX idx_lot_transactions_lot_created
		        ON lot_transactions (lot_id, created_at);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
