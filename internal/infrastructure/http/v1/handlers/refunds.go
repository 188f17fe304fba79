package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/domain/refunds"
	"pharmapos/internal/infrastructure/http/v1/dto"
	"pharmapos/internal/infrastructure/http/v1/middleware"
)

// RefundsHandler handles refund posting and queries.
type RefundsHandler struct {
	*BaseHandler
	service *refunds.Service
}

// NewRefundsHandler creates a new refunds handler.
func NewRefundsHandler(base *BaseHandler, service *refunds.Service) *RefundsHandler {
	return &RefundsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RegisterRoutes mounts the handler.
func (h *RefundsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/refunds", h.Create)
	rg.GET("/refunds/:id", h.Get)
}

// Create handles POST /refunds.
func (h *RefundsHandler) Create(c *gin.Context) {
	var req dto.CreateRefundRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	refund, err := h.service.CreateRefund(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	middleware.CountRefundPosted()
	h.Created(c, dto.FromRefund(refund))
}

// Get handles GET /refunds/:id.
func (h *RefundsHandler) Get(c *gin.Context) {
	refundID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	refund, err := h.service.Get(c.Request.Context(), refundID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRefund(refund))
}
