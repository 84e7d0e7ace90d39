package handler

import (
	"fmt"
	"net/http"

	"github.com/erurang/wooyangcrm-sub005/internal/apierror"
	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/infra"
	"github.com/erurang/wooyangcrm-sub005/internal/middleware"
	"github.com/erurang/wooyangcrm-sub005/internal/repository"
	"github.com/erurang/wooyangcrm-sub005/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LotsHandler struct {
	svc  service.LedgerService
	lots repository.LotRepository
}

func NewLotsHandler(svc service.LedgerService, lots repository.LotRepository) *LotsHandler {
	return &LotsHandler{svc: svc, lots: lots}
}

// Create handles POST /v1/lots — receiving new stock.
func (h *LotsHandler) Create(c *gin.Context) {
	var req dto.CreateLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateLot(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/lots with filtering and pagination.
func (h *LotsHandler) List(c *gin.Context) {
	var filter dto.LotFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query parameters: "+err.Error()))
		return
	}
	resp, err := h.svc.ListLots(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /v1/lots/:id.
func (h *LotsHandler) Get(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetLot(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update handles PATCH /v1/lots/:id — metadata only, quantities are
// untouchable here.
func (h *LotsHandler) Update(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	var req dto.UpdateLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateLot(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Scrap handles DELETE /v1/lots/:id. The lot is never removed — it is
// drained and marked scrapped so the audit trail stays complete.
func (h *LotsHandler) Scrap(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	reason := c.Query("reason")
	if err := h.svc.ScrapLot(c.Request.Context(), middleware.ActorID(c), id, reason); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Consume handles POST /v1/lots/:id/consume.
func (h *LotsHandler) Consume(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	var req dto.ConsumeLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Consume(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Split handles POST /v1/lots/:id/split.
func (h *LotsHandler) Split(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	var req dto.SplitLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Split(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Adjust handles POST /v1/lots/:id/adjust — manager and admin only.
func (h *LotsHandler) Adjust(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	var req dto.AdjustLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Adjust(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Transactions handles GET /v1/lots/:id/transactions — the full audit trail
// in chronological order.
func (h *LotsHandler) Transactions(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Transactions(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SplitHistory handles GET /v1/lots/:id/splits — lineage in both directions.
func (h *LotsHandler) SplitHistory(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	resp, err := h.svc.SplitHistory(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Label handles GET /v1/lots/:id/label — streams a printable PDF label.
func (h *LotsHandler) Label(c *gin.Context) {
	id, ok := parseLotID(c)
	if !ok {
		return
	}
	lot, err := h.lots.FindByID(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, &service.NotFoundError{LotID: id})
		return
	}
	pdf, err := infra.GenerateLotLabelPDF(lot)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("failed to render label"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, lot.LotNumber))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func parseLotID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid lot id"))
		return uuid.Nil, false
	}
	return id, true
}
