package service

import (
	"context"
	"testing"
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventoryFixture() (*ledgerFixture, InventoryService) {
	f := newLedgerFixture()
	return f, NewInventoryService(f.svc, f.lots, f.products, nil)
}

// receiveAt receives a lot with an explicit receipt date so FIFO order is
// deterministic.
func receiveAt(t *testing.T, f *ledgerFixture, qty, receivedAt string) *dto.LotResponse {
	t.Helper()
	resp, err := f.svc.CreateLot(context.Background(), nil, dto.CreateLotRequest{
		ProductID:       f.product.ID.String(),
		InitialQuantity: decimal.RequireFromString(qty),
		ReceivedAt:      &receivedAt,
	})
	require.NoError(t, err)
	return resp
}

func TestAdjustStock_IncreaseCreatesAdjustLot(t *testing.T) {
	f, inv := newInventoryFixture()
	ctx := context.Background()

	resp, err := inv.AdjustStock(ctx, nil, dto.StockAdjustRequest{
		ProductID:      f.product.ID.String(),
		AdjustmentType: "increase",
		Quantity:       decimal.RequireFromString("15"),
		Reason:         "found during stocktake",
	})
	require.NoError(t, err)

	require.NotNil(t, resp.LotID)
	lot, err := f.lots.FindByID(ctx, mustID(*resp.LotID))
	require.NoError(t, err)
	assert.Equal(t, model.LotSourceAdjust, lot.SourceType)
	assert.True(t, lot.CurrentQuantity.Equal(decimal.RequireFromString("15")))

	assert.True(t, resp.StockBefore.IsZero())
	assert.True(t, resp.StockAfter.Equal(decimal.RequireFromString("15")))
}

func TestAdjustStock_DecreaseWalksLotsOldestFirst(t *testing.T) {
	f, inv := newInventoryFixture()
	ctx := context.Background()

	oldest := receiveAt(t, f, "10", "2026-01-10")
	middle := receiveAt(t, f, "10", "2026-02-10")
	newest := receiveAt(t, f, "10", "2026-03-10")

	resp, err := inv.AdjustStock(ctx, nil, dto.StockAdjustRequest{
		ProductID:      f.product.ID.String(),
		AdjustmentType: "decrease",
		Quantity:       decimal.RequireFromString("14"),
		Reason:         "damaged during transport",
	})
	require.NoError(t, err)

	require.Len(t, resp.DeductedLots, 2)
	assert.Equal(t, oldest.ID, resp.DeductedLots[0].LotID)
	assert.True(t, resp.DeductedLots[0].Deducted.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, middle.ID, resp.DeductedLots[1].LotID)
	assert.True(t, resp.DeductedLots[1].Deducted.Equal(decimal.RequireFromString("4")))

	// Oldest drained, middle partially drawn down, newest untouched.
	stored, _ := f.lots.FindByID(ctx, mustID(oldest.ID))
	assert.Equal(t, model.LotStatusConsumed, stored.Status)
	stored, _ = f.lots.FindByID(ctx, mustID(middle.ID))
	assert.True(t, stored.CurrentQuantity.Equal(decimal.RequireFromString("6")))
	stored, _ = f.lots.FindByID(ctx, mustID(newest.ID))
	assert.True(t, stored.CurrentQuantity.Equal(decimal.RequireFromString("10")))

	product, _ := f.products.FindByID(ctx, f.product.ID)
	assert.True(t, product.CurrentStock.Equal(decimal.RequireFromString("16")))
}

func TestAdjustStock_DecreaseFailsBeforeTouchingLots(t *testing.T) {
	f, inv := newInventoryFixture()
	ctx := context.Background()

	lot := receiveAt(t, f, "5", "2026-01-10")

	_, err := inv.AdjustStock(ctx, nil, dto.StockAdjustRequest{
		ProductID:      f.product.ID.String(),
		AdjustmentType: "decrease",
		Quantity:       decimal.RequireFromString("9"),
		Reason:         "stocktake shortfall",
	})
	var insufficient *InsufficientQuantityError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(decimal.RequireFromString("5")))

	// Pre-flight check rejected the whole operation; nothing was deducted.
	stored, _ := f.lots.FindByID(ctx, mustID(lot.ID))
	assert.True(t, stored.CurrentQuantity.Equal(decimal.RequireFromString("5")))
}

func TestAdjustStock_RequiresPositiveQuantity(t *testing.T) {
	f, inv := newInventoryFixture()

	_, err := inv.AdjustStock(context.Background(), nil, dto.StockAdjustRequest{
		ProductID:      f.product.ID.String(),
		AdjustmentType: "decrease",
		Quantity:       decimal.Zero,
		Reason:         "noop",
	})
	var invalidQty *InvalidQuantityError
	require.ErrorAs(t, err, &invalidQty)
}

func TestSummary_CountsAvailableLotsOnly(t *testing.T) {
	f, inv := newInventoryFixture()
	ctx := context.Background()

	receiveAt(t, f, "10", "2026-01-10")
	drained := receiveAt(t, f, "10", "2026-02-10")
	_, err := f.svc.Consume(ctx, nil, mustID(drained.ID), dto.ConsumeLotRequest{
		Quantity: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)

	resp, err := inv.Summary(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, f.product.InternalCode, resp.ProductCode)
	assert.True(t, resp.AvailableQuantity.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, 1, resp.AvailableLots)
}

func TestExpiryAlerts_ReportsExpiringLots(t *testing.T) {
	f, inv := newInventoryFixture()
	ctx := context.Background()

	soon := time.Now().AddDate(0, 0, 10).Format("2006-01-02")
	far := time.Now().AddDate(0, 0, 90).Format("2006-01-02")

	expiring := receiveAt(t, f, "10", "2026-01-01")
	_, err := f.svc.UpdateLot(ctx, nil, mustID(expiring.ID), dto.UpdateLotRequest{ExpiryDate: &soon})
	require.NoError(t, err)

	distant := receiveAt(t, f, "10", "2026-01-01")
	_, err = f.svc.UpdateLot(ctx, nil, mustID(distant.ID), dto.UpdateLotRequest{ExpiryDate: &far})
	require.NoError(t, err)

	alerts, err := inv.ExpiryAlerts(ctx, 30)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, expiring.LotNumber, alerts[0].LotNumber)
	assert.LessOrEqual(t, alerts[0].DaysLeft, 10)
}
