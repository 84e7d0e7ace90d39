package handler

import (
	"net/http"
	"strconv"

	"github.com/erurang/wooyangcrm-sub005/internal/apierror"
	"github.com/erurang/wooyangcrm-sub005/internal/dto"
	"github.com/erurang/wooyangcrm-sub005/internal/middleware"
	"github.com/erurang/wooyangcrm-sub005/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// AdjustStock handles POST /v1/inventory/adjust — product-level manual
// corrections, manager and admin only.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req dto.StockAdjustRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Summary handles GET /v1/inventory/:product_id/summary.
func (h *InventoryHandler) Summary(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return
	}
	resp, err := h.svc.Summary(c.Request.Context(), productID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Alerts handles GET /v1/inventory/alerts?days=30.
func (h *InventoryHandler) Alerts(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	resp, err := h.svc.ExpiryAlerts(c.Request.Context(), days)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
