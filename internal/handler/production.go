package handler

import (
	"net/http"

	"github.com/erurang/wooyangcrm-sub005/internal/apierror"
	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/middleware"
	"github.com/erurang/wooyangcrm-sub005/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProductionHandler struct{ svc service.ProductionService }

func NewProductionHandler(svc service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// Record handles POST /v1/production — consumes materials for one run.
func (h *ProductionHandler) Record(c *gin.Context) {
	var req dto.RecordProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordConsumption(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /v1/production/:id.
func (h *ProductionHandler) Get(c *gin.Context) {
	id, ok := parseProductionID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel handles POST /v1/production/:id/cancel — writes compensating
// adjustments, never deletes history.
func (h *ProductionHandler) Cancel(c *gin.Context) {
	id, ok := parseProductionID(c)
	if !ok {
		return
	}
	var req dto.CancelProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseProductionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid production record id"))
		return uuid.Nil, false
	}
	return id, true
}
