package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/domain/refunds"
	"pharmapos/internal/domain/sales"
	"pharmapos/internal/infrastructure/http/v1/dto"
	"pharmapos/internal/infrastructure/http/v1/middleware"
)

// SalesHandler handles sale posting and queries.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
	refunds *refunds.Service
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(base *BaseHandler, service *sales.Service, refundsService *refunds.Service) *SalesHandler {
	return &SalesHandler{
		BaseHandler: base,
		service:     service,
		refunds:     refundsService,
	}
}

// RegisterRoutes mounts the handler.
func (h *SalesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sales", h.Create)
	rg.GET("/sales", h.List)
	rg.GET("/sales/:id", h.Get)
	rg.GET("/sales/:id/refunds", h.ListRefunds)
}

// Create handles POST /sales.
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	sale, err := h.service.CreateSale(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	middleware.CountSalePosted()
	h.Created(c, dto.FromSale(sale))
}

// Get handles GET /sales/:id.
func (h *SalesHandler) Get(c *gin.Context) {
	saleID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	sale, err := h.service.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSale(sale))
}

// List handles GET /sales.
func (h *SalesHandler) List(c *gin.Context) {
	branchID, err := h.BranchID(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	filter := sales.ListFilter{
		BranchID: branchID,
		Limit:    h.ParseIntQuery(c, "limit", 50),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("status"); raw != "" {
		status := sales.Status(raw)
		filter.Status = &status
	}
	if raw := c.Query("dateFrom"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateFrom").WithDetail("dateFrom", raw))
			return
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("dateTo"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateTo").WithDetail("dateTo", raw))
			return
		}
		filter.DateTo = &t
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.ListResponse[dto.SaleResponse]{
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, sale := range result.Items {
		resp.Items = append(resp.Items, dto.FromSale(sale))
	}

	h.OK(c, resp)
}

// ListRefunds handles GET /sales/:id/refunds.
func (h *SalesHandler) ListRefunds(c *gin.Context) {
	saleID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	items, err := h.refunds.ListBySale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := make([]dto.RefundResponse, 0, len(items))
	for _, refund := range items {
		resp = append(resp, dto.FromRefund(refund))
	}

	h.OK(c, resp)
}
