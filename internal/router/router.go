package router

import (
	"time"

	"github.com/erurang/wooyangcrm-sub005/internal/config"
	"github.com/erurang/wooyangcrm-sub005/internal/handler"
	"github.com/erurang/wooyangcrm-sub005/internal/infra"
	"github.com/erurang/wooyangcrm-sub005/internal/middleware"
	"github.com/erurang/wooyangcrm-sub005/internal/repository"
	"github.com/erurang/wooyangcrm-sub005/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the shared service instances behind the HTTP layer. The
// composition root builds them once so background workers operate on the
// same instances as the request path.
type Deps struct {
	Ledger     service.LedgerService
	Inventory  service.InventoryService
	Production service.ProductionService
	Lots       repository.LotRepository
}

// BuildDeps constructs the repository and service graph.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func BuildDeps(cfg *config.Config, db *gorm.DB, rdb *redis.Client) Deps {
	lotRepo := repository.NewLotRepository(db)
	txRepo := repository.NewLotTransactionRepository(db)
	splitRepo := repository.NewLotSplitRepository(db)
	productRepo := repository.NewProductRepository(db)
	productionRepo := repository.NewProductionRepository(db)

	sequencer := infra.NewLotNumberSequencer(rdb, cfg.LotNumberPrefix)
	ledgerSvc := service.NewLedgerService(lotRepo, txRepo, splitRepo, productRepo, sequencer)

	return Deps{
		Ledger:     ledgerSvc,
		Inventory:  service.NewInventoryService(ledgerSvc, lotRepo, productRepo, rdb),
		Production: service.NewProductionService(ledgerSvc, productionRepo, lotRepo),
		Lots:       lotRepo,
	}
}

// New wires the middleware chain and routes over the shared dependencies.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	lotsH := handler.NewLotsHandler(deps.Ledger, deps.Lots)
	inventoryH := handler.NewInventoryHandler(deps.Inventory)
	productionH := handler.NewProductionHandler(deps.Production)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: staff, manager, admin — declared per-endpoint
		anyRole := middleware.RequireRole("staff", "manager", "admin")
		elevated := middleware.RequireRole("manager", "admin")

		lots := v1.Group("/lots")
		{
			lots.POST("", anyRole, lotsH.Create)
			lots.GET("", anyRole, lotsH.List)
			lots.GET("/:id", anyRole, lotsH.Get)
			lots.PATCH("/:id", elevated, lotsH.Update)
			lots.DELETE("/:id", elevated, lotsH.Scrap)

			lots.POST("/:id/consume", anyRole, lotsH.Consume)
			lots.POST("/:id/split", anyRole, lotsH.Split)
			lots.POST("/:id/adjust", elevated, lotsH.Adjust)

			lots.GET("/:id/transactions", anyRole, lotsH.Transactions)
			lots.GET("/:id/splits", anyRole, lotsH.SplitHistory)
			lots.GET("/:id/label", anyRole, lotsH.Label)
		}

		inv := v1.Group("/inventory")
		{
			inv.POST("/adjust", elevated, inventoryH.AdjustStock)
			inv.GET("/alerts", anyRole, inventoryH.Alerts)
			inv.GET("/:product_id/summary", anyRole, inventoryH.Summary)
		}

		prod := v1.Group("/production")
		{
			prod.POST("", anyRole, productionH.Record)
			prod.GET("/:id", anyRole, productionH.Get)
			prod.POST("/:id/cancel", elevated, productionH.Cancel)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
