package service

import (
	"context"
	"fmt"
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository stubs. DB() returns nil so runTx executes callbacks
// directly, letting the services run without a database.

// ── LotRepository stub ───────────────────────────────────────────────────────

type stubLotRepo struct {
	lots map[uuid.UUID]*model.Lot
	// casFailures makes the next N guarded writes report a lost race.
	casFailures int
	// afterFind runs once a read has returned its copy, letting tests commit
	// a competing write between a service's read and its guarded write.
	afterFind func(*model.Lot)
}

func newStubLotRepo() *stubLotRepo {
	return &stubLotRepo{lots: make(map[uuid.UUID]*model.Lot)}
}

func (r *stubLotRepo) put(l *model.Lot) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	r.lots[l.ID] = &cp
}

func (r *stubLotRepo) Create(_ context.Context, l *model.Lot) error {
	r.put(l)
	return nil
}

func (r *stubLotRepo) CreateTx(_ *gorm.DB, l *model.Lot) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	r.put(l)
	return nil
}

func (r *stubLotRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Lot, error) {
	l, ok := r.lots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	if r.afterFind != nil {
		r.afterFind(&cp)
	}
	return &cp, nil
}

func (r *stubLotRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Lot, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubLotRepo) List(_ context.Context, _ dto.LotFilter) ([]model.Lot, int64, error) {
	out := make([]model.Lot, 0, len(r.lots))
	for _, l := range r.lots {
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (r *stubLotRepo) ListAvailableFIFO(_ context.Context, productID uuid.UUID) ([]model.Lot, error) {
	var out []model.Lot
	for _, l := range r.lots {
		if l.ProductID == productID && l.Status == model.LotStatusAvailable && l.CurrentQuantity.IsPositive() {
			out = append(out, *l)
		}
	}
	// oldest received first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ReceivedAt.Before(out[i].ReceivedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *stubLotRepo) ListExpired(_ context.Context, asOf time.Time, limit int) ([]model.Lot, error) {
	var out []model.Lot
	for _, l := range r.lots {
		if l.Status == model.LotStatusAvailable && l.ExpiryDate != nil && l.ExpiryDate.Before(asOf) {
			out = append(out, *l)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *stubLotRepo) ListExpiringWithin(_ context.Context, days int) ([]model.Lot, error) {
	now := time.Now()
	until := now.AddDate(0, 0, days)
	var out []model.Lot
	for _, l := range r.lots {
		if l.Status == model.LotStatusAvailable && l.ExpiryDate != nil &&
			!l.ExpiryDate.Before(now) && !l.ExpiryDate.After(until) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubLotRepo) UpdateMetadataTx(_ *gorm.DB, l *model.Lot) error {
	stored, ok := r.lots[l.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Location = l.Location
	stored.UnitCost = l.UnitCost
	stored.TotalCost = l.TotalCost
	stored.ExpiryDate = l.ExpiryDate
	stored.Notes = l.Notes
	return nil
}

func (r *stubLotRepo) CompareAndSwapQuantityTx(_ *gorm.DB, id uuid.UUID, expected, next decimal.Decimal, status string) (bool, error) {
	if r.casFailures > 0 {
		r.casFailures--
		return false, nil
	}
	stored, ok := r.lots[id]
	if !ok {
		return false, nil
	}
	if !stored.CurrentQuantity.Equal(expected) {
		return false, nil
	}
	stored.CurrentQuantity = next
	stored.Status = status
	return true, nil
}

func (r *stubLotRepo) UpdateStatusGuardedTx(_ *gorm.DB, id uuid.UUID, from, to string, expectedQty decimal.Decimal) (bool, error) {
	if r.casFailures > 0 {
		r.casFailures--
		return false, nil
	}
	stored, ok := r.lots[id]
	if !ok {
		return false, nil
	}
	if stored.Status != from || !stored.CurrentQuantity.Equal(expectedQty) {
		return false, nil
	}
	stored.Status = to
	return true, nil
}

func (r *stubLotRepo) AvailableSummary(_ context.Context, productID uuid.UUID) (decimal.Decimal, int, error) {
	total := decimal.Zero
	count := 0
	for _, l := range r.lots {
		if l.ProductID == productID && l.Status == model.LotStatusAvailable && l.CurrentQuantity.IsPositive() {
			total = total.Add(l.CurrentQuantity)
			count++
		}
	}
	return total, count, nil
}

func (r *stubLotRepo) DB() *gorm.DB { return nil }

// ── LotTransactionRepository stub ────────────────────────────────────────────

type stubTxRepo struct {
	entries []model.LotTransaction
}

func (r *stubTxRepo) CreateTx(_ *gorm.DB, t *model.LotTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *t)
	return nil
}

func (r *stubTxRepo) ListByLot(_ context.Context, lotID uuid.UUID) ([]model.LotTransaction, error) {
	var out []model.LotTransaction
	for _, e := range r.entries {
		if e.LotID == lotID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ── LotSplitRepository stub ──────────────────────────────────────────────────

type stubSplitRepo struct {
	splits []model.LotSplit
}

func (r *stubSplitRepo) CreateTx(_ *gorm.DB, s *model.LotSplit) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.splits = append(r.splits, *s)
	return nil
}

func (r *stubSplitRepo) ListBySource(_ context.Context, sourceLotID uuid.UUID) ([]model.LotSplit, error) {
	var out []model.LotSplit
	for _, s := range r.splits {
		if s.SourceLotID == sourceLotID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubSplitRepo) FindByDescendant(_ context.Context, lotID uuid.UUID) (*model.LotSplit, error) {
	for _, s := range r.splits {
		if s.OutputLotID == lotID || s.RemnantLotID == lotID {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

// ── ProductRepository stub ───────────────────────────────────────────────────

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) AdjustStockTx(_ *gorm.DB, id uuid.UUID, delta decimal.Decimal) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.CurrentStock = p.CurrentStock.Add(delta)
	return nil
}

// ── LotNumberGenerator stub ──────────────────────────────────────────────────

type stubSequencer struct{ n int }

func (s *stubSequencer) Next(_ context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("LOT-20260831-%04d", s.n), nil
}

// ── ProductionRepository stub ────────────────────────────────────────────────

type stubProductionRepo struct {
	records map[uuid.UUID]*model.ProductionRecord
}

func newStubProductionRepo() *stubProductionRepo {
	return &stubProductionRepo{records: make(map[uuid.UUID]*model.ProductionRecord)}
}

func (r *stubProductionRepo) CreateTx(_ *gorm.DB, rec *model.ProductionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	for i := range rec.Items {
		if rec.Items[i].ID == uuid.Nil {
			rec.Items[i].ID = uuid.New()
		}
		rec.Items[i].ProductionRecordID = rec.ID
	}
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *stubProductionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductionRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *stubProductionRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status string) error {
	rec, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rec.Status = status
	return nil
}

// ── Test fixture ─────────────────────────────────────────────────────────────

type ledgerFixture struct {
	lots     *stubLotRepo
	txs      *stubTxRepo
	splits   *stubSplitRepo
	products *stubProductRepo
	seq      *stubSequencer
	svc      LedgerService
	product  *model.Product
}

func newLedgerFixture() *ledgerFixture {
	lots := newStubLotRepo()
	txs := &stubTxRepo{}
	splits := &stubSplitRepo{}
	products := newStubProductRepo()
	seq := &stubSequencer{}

	product := &model.Product{
		InternalCode: "RM-0001",
		InternalName: "Test Material",
		Unit:         "kg",
	}
	_ = products.Create(context.Background(), product)

	return &ledgerFixture{
		lots:     lots,
		txs:      txs,
		splits:   splits,
		products: products,
		seq:      seq,
		svc:      NewLedgerService(lots, txs, splits, products, seq),
		product:  product,
	}
}

// createLot is a shorthand for receiving a fresh lot of the given quantity.
func (f *ledgerFixture) createLot(qty string) *dto.LotResponse {
	resp, err := f.svc.CreateLot(context.Background(), nil, dto.CreateLotRequest{
		ProductID:       f.product.ID.String(),
		InitialQuantity: decimal.RequireFromString(qty),
	})
	if err != nil {
		panic(err)
	}
	return resp
}

func mustID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}
