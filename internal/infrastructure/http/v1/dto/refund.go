package dto

import (
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/refunds"
)

// CreateRefundRequest posts a refund against a sale.
type CreateRefundRequest struct {
	OriginalSaleID string                    `json:"originalSaleId" binding:"required"`
	Lines          []CreateRefundLineRequest `json:"lines" binding:"required"`
	RefundReason   string                    `json:"refundReason"`
}

// CreateRefundLineRequest requests a refund quantity. SaleLineID pins the
// refund to one sale line when the sale drew the product from several
// batches; otherwise matching runs in sale line order.
type CreateRefundLineRequest struct {
	SaleLineID *string `json:"saleLineId"`
	ProductID  string  `json:"productId"`
	Quantity   int64   `json:"quantity" binding:"required"`
	Reason     string  `json:"reason"`
}

// ToInput converts the request to a service input.
func (r *CreateRefundRequest) ToInput() (refunds.CreateRefundInput, error) {
	saleID, err := id.Parse(r.OriginalSaleID)
	if err != nil {
		return refunds.CreateRefundInput{}, apperror.NewValidation("invalid sale id").
			WithDetail("originalSaleId", r.OriginalSaleID)
	}

	in := refunds.CreateRefundInput{
		SaleID: saleID,
		Reason: r.RefundReason,
	}

	for _, line := range r.Lines {
		var saleLineID *id.ID
		if line.SaleLineID != nil && *line.SaleLineID != "" {
			parsed, err := id.Parse(*line.SaleLineID)
			if err != nil {
				return refunds.CreateRefundInput{}, apperror.NewValidation("invalid sale line id").
					WithDetail("saleLineId", *line.SaleLineID)
			}
			saleLineID = &parsed
		}

		var productID id.ID
		if line.ProductID != "" {
			productID, err = id.Parse(line.ProductID)
			if err != nil {
				return refunds.CreateRefundInput{}, apperror.NewValidation("invalid product id").
					WithDetail("productId", line.ProductID)
			}
		}

		in.Lines = append(in.Lines, refunds.LineInput{
			SaleLineID: saleLineID,
			ProductID:  productID,
			Quantity:   line.Quantity,
			Reason:     line.Reason,
		})
	}

	return in, nil
}

// RefundLineResponse is one refund line on the wire.
type RefundLineResponse struct {
	ID         string           `json:"id"`
	SaleLineID string           `json:"saleLineId"`
	ProductID  string           `json:"productId"`
	BatchID    string           `json:"batchId"`
	Quantity   int64            `json:"quantity"`
	UnitPrice  types.MinorUnits `json:"unitPrice"`
	Amount     types.MinorUnits `json:"amount"`
	Reason     string           `json:"reason,omitempty"`
}

// RefundResponse is the posted refund on the wire.
type RefundResponse struct {
	RefundID      string               `json:"refundId"`
	SaleID        string               `json:"saleId"`
	BranchID      string               `json:"branchId"`
	TotalRefunded types.MinorUnits     `json:"totalRefunded"`
	Reason        string               `json:"reason,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	Lines         []RefundLineResponse `json:"lines"`
}

// FromRefund maps a refund to its response shape.
func FromRefund(refund *refunds.Refund) RefundResponse {
	resp := RefundResponse{
		RefundID:      refund.ID.String(),
		SaleID:        refund.SaleID.String(),
		BranchID:      refund.BranchID.String(),
		TotalRefunded: refund.TotalRefunded,
		Reason:        refund.Reason,
		CreatedAt:     refund.CreatedAt,
	}

	for _, line := range refund.Lines {
		resp.Lines = append(resp.Lines, RefundLineResponse{
			ID:         line.ID.String(),
			SaleLineID: line.SaleLineID.String(),
			ProductID:  line.ProductID.String(),
			BatchID:    line.BatchID.String(),
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Amount:     line.Amount,
			Reason:     line.Reason,
		})
	}

	return resp
}
