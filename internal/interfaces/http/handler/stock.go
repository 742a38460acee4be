package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstock "github.com/retailops/backend/internal/application/stock"
	"github.com/retailops/backend/internal/interfaces/http/dto"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
)

// StockHandler handles stock ledger and alert HTTP requests
type StockHandler struct {
	BaseHandler
	service *appstock.StockService
}

// NewStockHandler creates a new stock handler
func NewStockHandler(service *appstock.StockService) *StockHandler {
	return &StockHandler{service: service}
}

// RegisterRoutes registers the stock routes on the given group
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/stock")
	g.POST("/adjustments", h.Adjust)
	g.POST("/transfers", h.Transfer)
	g.POST("/movements", h.RecordMovement)
	g.GET("/movements", h.History)
	g.GET("/valuation", h.Valuation)
	g.GET("/alerts", h.ListAlerts)
	g.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)
	g.POST("/alerts/:id/resolve", h.ResolveAlert)
}

// Adjust handles POST /stock/adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var req appstock.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	product, err := h.service.Adjust(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, product)
}

// Transfer handles POST /stock/transfers
func (h *StockHandler) Transfer(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var req appstock.TransferStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.Transfer(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RecordMovement handles POST /stock/movements
func (h *StockHandler) RecordMovement(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var req appstock.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	movement, err := h.service.RecordMovement(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, movement)
}

// History handles GET /stock/movements
func (h *StockHandler) History(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter appstock.MovementHistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.History(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Valuation handles GET /stock/valuation
func (h *StockHandler) Valuation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var storeID *uuid.UUID
	if raw := c.Query("store_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid store_id")
			return
		}
		storeID = &id
	}

	valuation, err := h.service.Valuation(c.Request.Context(), tenantID, storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, valuation)
}

// ListAlerts handles GET /stock/alerts
func (h *StockHandler) ListAlerts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter appstock.AlertListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.ActiveAlerts(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// AcknowledgeAlert handles POST /stock/alerts/:id/acknowledge
func (h *StockHandler) AcknowledgeAlert(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}
	alertID := uuid.MustParse(uri.ID)

	alert, err := h.service.Acknowledge(c.Request.Context(), tenantID, alertID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, alert)
}

// ResolveAlert handles POST /stock/alerts/:id/resolve
func (h *StockHandler) ResolveAlert(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return
	}
	alertID := uuid.MustParse(uri.ID)

	alert, err := h.service.ResolveAlert(c.Request.Context(), tenantID, alertID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, alert)
}
