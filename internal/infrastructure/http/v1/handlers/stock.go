package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/infrastructure/cache"
	"pharmapos/internal/infrastructure/http/v1/dto"
	"pharmapos/pkg/logger"
)

// StockHandler handles batch receiving, adjustments, the movement trail,
// and availability queries.
type StockHandler struct {
	*BaseHandler
	inventory    *inventory.Service
	ledger       *ledger.Service
	availability *cache.AvailabilityCache
}

// NewStockHandler creates a new stock handler. The availability cache is
// optional; without it every availability read hits the database.
func NewStockHandler(
	base *BaseHandler,
	inventoryService *inventory.Service,
	ledgerService *ledger.Service,
	availability *cache.AvailabilityCache,
) *StockHandler {
	return &StockHandler{
		BaseHandler:  base,
		inventory:    inventoryService,
		ledger:       ledgerService,
		availability: availability,
	}
}

// RegisterRoutes mounts the handler.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock")
	{
		stock.GET("/movements", h.ListMovements)
		stock.GET("/batches", h.ListBatches)
		stock.GET("/availability/:productId", h.Availability)
		stock.POST("/receipts", h.Receive)
		stock.POST("/adjustments", h.Adjust)
	}
}

// ListMovements handles GET /stock/movements.
func (h *StockHandler) ListMovements(c *gin.Context) {
	branchID, err := h.BranchID(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	filter := ledger.Filter{
		BranchID: branchID,
		Limit:    h.ParseIntQuery(c, "limit", 100),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("productId"); raw != "" {
		productID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("productId", raw))
			return
		}
		filter.ProductID = &productID
	}
	if raw := c.Query("batchId"); raw != "" {
		batchID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid batch id").WithDetail("batchId", raw))
			return
		}
		filter.BatchID = &batchID
	}
	if raw := c.Query("type"); raw != "" {
		movType := ledger.MovementType(raw)
		if !movType.IsValid() {
			h.Error(c, apperror.NewValidation("unknown movement type").WithDetail("type", raw))
			return
		}
		filter.Type = &movType
	}
	if raw := c.Query("dateFrom"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateFrom").WithDetail("dateFrom", raw))
			return
		}
		filter.FromDate = &t
	}
	if raw := c.Query("dateTo"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateTo").WithDetail("dateTo", raw))
			return
		}
		filter.ToDate = &t
	}

	movements, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		resp = append(resp, dto.FromMovement(m))
	}

	h.OK(c, resp)
}

// ListBatches handles GET /stock/batches.
func (h *StockHandler) ListBatches(c *gin.Context) {
	branchID, err := h.BranchID(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	// Expired and empty batches are excluded unless asked for explicitly.
	filter := inventory.BatchFilter{
		BranchID:       branchID,
		ExcludeExpired: c.DefaultQuery("excludeExpired", "true") == "true",
		ExcludeEmpty:   c.DefaultQuery("excludeEmpty", "true") == "true",
		Limit:          h.ParseIntQuery(c, "limit", 100),
		Offset:         h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("productId"); raw != "" {
		productID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("productId", raw))
			return
		}
		filter.ProductID = &productID
	}

	batches, err := h.inventory.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := make([]dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		resp = append(resp, dto.FromBatch(b))
	}

	h.OK(c, resp)
}

// Availability handles GET /stock/availability/:productId.
func (h *StockHandler) Availability(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	branchID, err := h.BranchID(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.availability != nil {
		if qty, hit, err := h.availability.Get(ctx, productID, branchID); err == nil && hit {
			h.OK(c, dto.AvailabilityResponse{
				ProductID: productID.String(),
				BranchID:  branchID.String(),
				Quantity:  qty,
			})
			return
		} else if err != nil {
			logger.Warn(ctx, "availability cache read failed", "error", err)
		}
	}

	qty, err := h.inventory.Availability(ctx, productID, branchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.availability != nil {
		if err := h.availability.Set(ctx, productID, branchID, qty); err != nil {
			logger.Warn(ctx, "availability cache write failed", "error", err)
		}
	}

	h.OK(c, dto.AvailabilityResponse{
		ProductID: productID.String(),
		BranchID:  branchID.String(),
		Quantity:  qty,
	})
}

// Receive handles POST /stock/receipts.
func (h *StockHandler) Receive(c *gin.Context) {
	var req dto.ReceiveBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	batch, err := h.inventory.ReceiveBatch(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.invalidateAvailability(c, in.ProductID, in.BranchID)
	h.Created(c, dto.FromBatch(*batch))
}

// Adjust handles POST /stock/adjustments.
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.inventory.AdjustStock(c.Request.Context(), in); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *StockHandler) invalidateAvailability(c *gin.Context, productID, branchID id.ID) {
	if h.availability == nil {
		return
	}
	if err := h.availability.Invalidate(c.Request.Context(), productID, branchID); err != nil {
		logger.Warn(c.Request.Context(), "availability cache invalidation failed", "error", err)
	}
}
