//go:build integration

package e2e

// e2e_test.go
// End-to-end integration tests using real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   - receive lot → consume → audit trail replay
//   - split → lineage + conservation over HTTP
//   - product-level FIFO decrease
//   - scrap leaves the lot queryable

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/config"
	"github.com/erurang/wooyangcrm-sub005/internal/infra"
	"github.com/erurang/wooyangcrm-sub005/internal/middleware"
	"github.com/erurang/wooyangcrm-sub005/internal/model"
	"github.com/erurang/wooyangcrm-sub005/internal/router"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const testJWTSecret = "test-secret-key"

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server    *httptest.Server
	token     string // admin JWT
	productID string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("lotledger_test"),
		tcPostgres.WithUsername("ledger"),
		tcPostgres.WithPassword("ledger"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:            8000,
		Env:             "test",
		JWTSecret:       testJWTSecret,
		DatabaseURL:     pgURL,
		RedisURL:        rdURL,
		WorkerPoolSize:  1,
		LotNumberPrefix: "LOT",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Seed actor and product.
	admin := model.User{Name: "E2E Admin", Email: "admin@e2e.test", Role: "admin", Active: true}
	require.NoError(t, db.Create(&admin).Error)

	product := model.Product{InternalCode: "RM-E2E", InternalName: "E2E Material", Unit: "kg"}
	require.NoError(t, db.Create(&product).Error)

	r := router.New(cfg, db, rdb, router.BuildDeps(cfg, db, rdb))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{
		server:    srv,
		token:     mintToken(t, admin.ID, "admin"),
		productID: product.ID.String(),
	}
}

func mintToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	claims := &middleware.JWTClaims{
		UserID:   userID.String(),
		Username: "e2e",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

type lotPayload struct {
	ID              string          `json:"id"`
	LotNumber       string          `json:"lot_number"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	Status          string          `json:"status"`
	SourceLotID     *string         `json:"source_lot_id"`
}

func (e *testEnv) receiveLot(t *testing.T, qty string) lotPayload {
	t.Helper()
	resp := do(t, e.server, "POST", "/v1/lots",
		jsonBody(t, map[string]any{
			"product_id":       e.productID,
			"initial_quantity": qty,
		}), e.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var lot lotPayload
	decodeJSON(t, resp, &lot)
	return lot
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_ReceiveConsumeAndReplay(t *testing.T) {
	env := setupTestEnv(t)

	lot := env.receiveLot(t, "100")
	assert.Equal(t, "available", lot.Status)
	assert.NotEmpty(t, lot.LotNumber)

	// Consume twice.
	resp := do(t, env.server, "POST", "/v1/lots/"+lot.ID+"/consume",
		jsonBody(t, map[string]any{"quantity": "30"}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", "/v1/lots/"+lot.ID+"/consume",
		jsonBody(t, map[string]any{"quantity": "70"}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var drained lotPayload
	decodeJSON(t, resp, &drained)
	assert.Equal(t, "consumed", drained.Status)
	assert.True(t, drained.CurrentQuantity.IsZero())

	// Over-consumption is rejected cleanly.
	resp = do(t, env.server, "POST", "/v1/lots/"+lot.ID+"/consume",
		jsonBody(t, map[string]any{"quantity": "1"}), env.token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Replay the trail: receipt + 2 consumptions, chaining to zero.
	resp = do(t, env.server, "GET", "/v1/lots/"+lot.ID+"/transactions", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []struct {
		Type           string          `json:"type"`
		Quantity       decimal.Decimal `json:"quantity"`
		QuantityBefore decimal.Decimal `json:"quantity_before"`
		QuantityAfter  decimal.Decimal `json:"quantity_after"`
	}
	decodeJSON(t, resp, &entries)
	require.Len(t, entries, 3)
	assert.Equal(t, "receipt", entries[0].Type)

	replayed := decimal.Zero
	for _, e := range entries {
		assert.True(t, e.QuantityBefore.Equal(replayed))
		replayed = replayed.Add(e.Quantity)
		assert.True(t, e.QuantityAfter.Equal(replayed))
	}
	assert.True(t, replayed.IsZero())
}

func TestE2E_SplitLineageAndConservation(t *testing.T) {
	env := setupTestEnv(t)

	source := env.receiveLot(t, "50")

	resp := do(t, env.server, "POST", "/v1/lots/"+source.ID+"/split",
		jsonBody(t, map[string]any{"split_quantity": "20", "reason": "order"}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var split struct {
		SourceLot  lotPayload `json:"source_lot"`
		OutputLot  lotPayload `json:"output_lot"`
		RemnantLot lotPayload `json:"remnant_lot"`
	}
	decodeJSON(t, resp, &split)

	assert.Equal(t, "split", split.SourceLot.Status)
	assert.True(t, split.SourceLot.CurrentQuantity.IsZero())
	sum := split.OutputLot.InitialQuantity.Add(split.RemnantLot.InitialQuantity)
	assert.True(t, sum.Equal(decimal.RequireFromString("50")))
	require.NotNil(t, split.OutputLot.SourceLotID)
	assert.Equal(t, source.ID, *split.OutputLot.SourceLotID)

	// A split lot refuses further operations.
	resp = do(t, env.server, "POST", "/v1/lots/"+source.ID+"/consume",
		jsonBody(t, map[string]any{"quantity": "1"}), env.token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Lineage is visible from the child.
	resp = do(t, env.server, "GET", "/v1/lots/"+split.OutputLot.ID+"/splits", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		SplitTo *struct {
			SourceLotID string `json:"source_lot_id"`
		} `json:"split_to"`
	}
	decodeJSON(t, resp, &history)
	require.NotNil(t, history.SplitTo)
	assert.Equal(t, source.ID, history.SplitTo.SourceLotID)
}

func TestE2E_ProductLevelFIFODecrease(t *testing.T) {
	env := setupTestEnv(t)

	first := env.receiveLot(t, "10")
	env.receiveLot(t, "10")

	resp := do(t, env.server, "POST", "/v1/inventory/adjust",
		jsonBody(t, map[string]any{
			"product_id":      env.productID,
			"adjustment_type": "decrease",
			"quantity":        "12",
			"reason":          "stocktake shortfall",
		}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var adjust struct {
		DeductedLots []struct {
			LotID    string          `json:"lot_id"`
			Deducted decimal.Decimal `json:"deducted"`
		} `json:"deducted_lots"`
	}
	decodeJSON(t, resp, &adjust)
	require.Len(t, adjust.DeductedLots, 2)
	assert.Equal(t, first.ID, adjust.DeductedLots[0].LotID)
	assert.True(t, adjust.DeductedLots[0].Deducted.Equal(decimal.RequireFromString("10")))
	assert.True(t, adjust.DeductedLots[1].Deducted.Equal(decimal.RequireFromString("2")))

	// Summary reflects the remaining availability.
	resp = do(t, env.server, "GET", "/v1/inventory/"+env.productID+"/summary", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		AvailableQuantity decimal.Decimal `json:"available_quantity"`
		AvailableLots     int             `json:"available_lots"`
	}
	decodeJSON(t, resp, &summary)
	assert.True(t, summary.AvailableQuantity.Equal(decimal.RequireFromString("8")))
	assert.Equal(t, 1, summary.AvailableLots)
}

func TestE2E_ScrapKeepsLotQueryable(t *testing.T) {
	env := setupTestEnv(t)

	lot := env.receiveLot(t, "5")

	resp := do(t, env.server, "DELETE", "/v1/lots/"+lot.ID+"?reason=damaged", nil, env.token)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/v1/lots/"+lot.ID, nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var scrapped lotPayload
	decodeJSON(t, resp, &scrapped)
	assert.Equal(t, "scrapped", scrapped.Status)
	assert.True(t, scrapped.CurrentQuantity.IsZero())
}
