package refunds

import (
	"context"

	"pharmapos/internal/core/id"
)

type Repository interface {
	Create(ctx context.Context, refund *Refund) error
	SaveLines(ctx context.Context, lines []RefundLine) error
	GetByID(ctx context.Context, refundID id.ID) (*Refund, error)
	GetLines(ctx context.Context, refundID id.ID) ([]RefundLine, error)
	ListBySale(ctx context.Context, saleID id.ID) ([]*Refund, error)

	// RefundedQuantities returns the already refunded quantity per sale
	// line across all prior refunds of the sale.
	RefundedQuantities(ctx context.Context, saleID id.ID) (map[id.ID]int64, error)
}
