package dto

import (
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/sales"
)

// CreateSaleRequest posts a sale.
type CreateSaleRequest struct {
	BranchID             string                  `json:"branchId" binding:"required"`
	Lines                []CreateSaleLineRequest `json:"lines" binding:"required"`
	PaymentMethod        string                  `json:"paymentMethod" binding:"required"`
	PaymentStatus        string                  `json:"paymentStatus"`
	OrderDiscountPercent *float64                `json:"orderDiscountPercent"`
}

// CreateSaleLineRequest is one requested line. BatchID overrides automatic
// batch selection.
type CreateSaleLineRequest struct {
	ProductID           string   `json:"productId" binding:"required"`
	BatchID             *string  `json:"batchId"`
	Quantity            int64    `json:"quantity" binding:"required"`
	LineDiscountPercent *float64 `json:"lineDiscountPercent"`
}

// ToInput converts the request to a service input, validating ids and
// discount ranges.
func (r *CreateSaleRequest) ToInput() (sales.CreateSaleInput, error) {
	branchID, err := id.Parse(r.BranchID)
	if err != nil {
		return sales.CreateSaleInput{}, apperror.NewValidation("invalid branch id").
			WithDetail("branchId", r.BranchID)
	}

	orderDiscount := types.ZeroPercent()
	if r.OrderDiscountPercent != nil {
		orderDiscount, err = types.ParsePercent(*r.OrderDiscountPercent)
		if err != nil {
			return sales.CreateSaleInput{}, apperror.NewInvalidDiscount(*r.OrderDiscountPercent)
		}
	}

	paymentStatus := sales.PaymentStatus(r.PaymentStatus)
	if r.PaymentStatus == "" {
		paymentStatus = sales.PaymentPaid
	}

	in := sales.CreateSaleInput{
		BranchID:        branchID,
		PaymentMethod:   r.PaymentMethod,
		PaymentStatus:   paymentStatus,
		DiscountPercent: orderDiscount,
	}

	for _, line := range r.Lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			return sales.CreateSaleInput{}, apperror.NewValidation("invalid product id").
				WithDetail("productId", line.ProductID)
		}

		var batchID *id.ID
		if line.BatchID != nil && *line.BatchID != "" {
			parsed, err := id.Parse(*line.BatchID)
			if err != nil {
				return sales.CreateSaleInput{}, apperror.NewValidation("invalid batch id").
					WithDetail("batchId", *line.BatchID)
			}
			batchID = &parsed
		}

		lineDiscount := types.ZeroPercent()
		if line.LineDiscountPercent != nil {
			lineDiscount, err = types.ParsePercent(*line.LineDiscountPercent)
			if err != nil {
				return sales.CreateSaleInput{}, apperror.NewInvalidDiscount(*line.LineDiscountPercent)
			}
		}

		in.Lines = append(in.Lines, sales.LineInput{
			ProductID:       productID,
			BatchID:         batchID,
			Quantity:        line.Quantity,
			DiscountPercent: lineDiscount,
		})
	}

	return in, nil
}

// SaleLineResponse is one persisted sale line on the wire.
type SaleLineResponse struct {
	ID              string           `json:"id"`
	LineNo          int              `json:"lineNo"`
	ProductID       string           `json:"productId"`
	BatchID         string           `json:"batchId"`
	Quantity        int64            `json:"quantity"`
	UnitPrice       types.MinorUnits `json:"unitPrice"`
	DiscountPercent float64          `json:"discountPercent"`
	DiscountAmount  types.MinorUnits `json:"discountAmount"`
	Total           types.MinorUnits `json:"total"`
}

// SaleResponse is the posted sale on the wire.
type SaleResponse struct {
	SaleID          string             `json:"saleId"`
	BranchID        string             `json:"branchId"`
	Subtotal        types.MinorUnits   `json:"subtotal"`
	DiscountPercent float64            `json:"discountPercent"`
	DiscountAmount  types.MinorUnits   `json:"discountAmount"`
	Total           types.MinorUnits   `json:"total"`
	PaymentMethod   string             `json:"paymentMethod"`
	PaymentStatus   string             `json:"paymentStatus"`
	Status          string             `json:"status"`
	CreatedAt       time.Time          `json:"createdAt"`
	Lines           []SaleLineResponse `json:"lines"`
}

// FromSale maps a sale to its response shape.
func FromSale(sale *sales.Sale) SaleResponse {
	resp := SaleResponse{
		SaleID:          sale.ID.String(),
		BranchID:        sale.BranchID.String(),
		Subtotal:        sale.Subtotal,
		DiscountPercent: sale.DiscountPercent,
		DiscountAmount:  sale.DiscountAmount,
		Total:           sale.Total,
		PaymentMethod:   sale.PaymentMethod,
		PaymentStatus:   string(sale.PaymentStatus),
		Status:          string(sale.Status),
		CreatedAt:       sale.CreatedAt,
	}

	for _, line := range sale.Lines {
		resp.Lines = append(resp.Lines, SaleLineResponse{
			ID:              line.ID.String(),
			LineNo:          line.LineNo,
			ProductID:       line.ProductID.String(),
			BatchID:         line.BatchID.String(),
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			DiscountAmount:  line.DiscountAmount,
			Total:           line.Total,
		})
	}

	return resp
}
