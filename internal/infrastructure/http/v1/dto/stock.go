package dto

import (
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
)

// MovementResponse is one ledger entry on the wire.
type MovementResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProductID   string    `json:"productId"`
	BatchID     string    `json:"batchId"`
	Quantity    int64     `json:"quantity"`
	ReferenceID string    `json:"referenceId"`
	Actor       string    `json:"actor"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// FromMovement maps a stock movement to its response shape.
func FromMovement(m ledger.Movement) MovementResponse {
	return MovementResponse{
		ID:          m.ID.String(),
		Type:        string(m.Type),
		ProductID:   m.ProductID.String(),
		BatchID:     m.BatchID.String(),
		Quantity:    m.Quantity,
		ReferenceID: m.ReferenceID.String(),
		Actor:       m.Actor,
		Reason:      m.Reason,
		Timestamp:   m.CreatedAt,
	}
}

// BatchResponse is one batch on the wire.
type BatchResponse struct {
	ID           string           `json:"id"`
	ProductID    string           `json:"productId"`
	BranchID     string           `json:"branchId"`
	BatchNo      string           `json:"batchNo"`
	Quantity     int64            `json:"quantity"`
	SellingPrice types.MinorUnits `json:"sellingPrice"`
	ExpireDate   *time.Time       `json:"expireDate,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// FromBatch maps a batch to its response shape.
func FromBatch(b inventory.Batch) BatchResponse {
	return BatchResponse{
		ID:           b.ID.String(),
		ProductID:    b.ProductID.String(),
		BranchID:     b.BranchID.String(),
		BatchNo:      b.BatchNo,
		Quantity:     b.Quantity,
		SellingPrice: b.SellingPrice,
		ExpireDate:   b.ExpireDate,
		CreatedAt:    b.CreatedAt,
	}
}

// AvailabilityResponse reports total sellable stock of a product.
type AvailabilityResponse struct {
	ProductID string `json:"productId"`
	BranchID  string `json:"branchId"`
	Quantity  int64  `json:"quantity"`
}

// ReceiveBatchRequest registers incoming stock as a new batch.
type ReceiveBatchRequest struct {
	BranchID     string     `json:"branchId" binding:"required"`
	ProductID    string     `json:"productId" binding:"required"`
	BatchNo      string     `json:"batchNo" binding:"required"`
	Quantity     int64      `json:"quantity" binding:"required"`
	SellingPrice float64    `json:"sellingPrice" binding:"required"`
	ExpireDate   *time.Time `json:"expireDate"`
}

// ToInput converts the request to a service input.
func (r *ReceiveBatchRequest) ToInput() (inventory.ReceiveBatchInput, error) {
	branchID, err := id.Parse(r.BranchID)
	if err != nil {
		return inventory.ReceiveBatchInput{}, apperror.NewValidation("invalid branch id").
			WithDetail("branchId", r.BranchID)
	}
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return inventory.ReceiveBatchInput{}, apperror.NewValidation("invalid product id").
			WithDetail("productId", r.ProductID)
	}

	return inventory.ReceiveBatchInput{
		BranchID:     branchID,
		ProductID:    productID,
		BatchNo:      r.BatchNo,
		Quantity:     r.Quantity,
		SellingPrice: types.NewMinorUnitsFromFloat64(r.SellingPrice),
		ExpireDate:   r.ExpireDate,
	}, nil
}

// AdjustStockRequest applies a manual signed correction to one batch.
type AdjustStockRequest struct {
	BatchID string `json:"batchId" binding:"required"`
	Delta   int64  `json:"delta" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

// ToInput converts the request to a service input.
func (r *AdjustStockRequest) ToInput() (inventory.AdjustStockInput, error) {
	batchID, err := id.Parse(r.BatchID)
	if err != nil {
		return inventory.AdjustStockInput{}, apperror.NewValidation("invalid batch id").
			WithDetail("batchId", r.BatchID)
	}

	return inventory.AdjustStockInput{
		BatchID: batchID,
		Delta:   r.Delta,
		Reason:  r.Reason,
	}, nil
}
