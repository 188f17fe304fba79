// Package refunds provides the refund transaction manager.
package refunds

import (
	"time"

	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
)

// Refund reverses part or all of a completed sale. Refunded stock is
// restored to the exact batches the sale drew from.
type Refund struct {
	ID       id.ID `db:"id" json:"id"`
	SaleID   id.ID `db:"sale_id" json:"saleId"`
	BranchID id.ID `db:"branch_id" json:"branchId"`

	Reason        string           `db:"reason" json:"reason,omitempty"`
	TotalRefunded types.MinorUnits `db:"total_refunded" json:"totalRefunded"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`

	Lines []RefundLine `db:"-" json:"lines"`
}

// RefundLine reverses quantity from one sale line. UnitPrice is copied from
// the sale line; current batch prices never affect refund amounts.
type RefundLine struct {
	ID         id.ID `db:"id" json:"id"`
	RefundID   id.ID `db:"refund_id" json:"refundId"`
	SaleLineID id.ID `db:"sale_line_id" json:"saleLineId"`

	ProductID id.ID `db:"product_id" json:"productId"`
	BatchID   id.ID `db:"batch_id" json:"batchId"`

	Quantity  int64            `db:"quantity" json:"quantity"`
	UnitPrice types.MinorUnits `db:"unit_price" json:"unitPrice"`
	Amount    types.MinorUnits `db:"amount" json:"amount"`
	Reason    string           `db:"reason" json:"reason,omitempty"`
}
