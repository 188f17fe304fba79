// Package sales provides the sale transaction manager.
package sales

import (
	"time"

	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
)

// PaymentStatus tracks payment settlement, which is independent from stock
// deduction: an unpaid sale still deducts stock immediately.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// IsValid reports whether the payment status is known.
func (p PaymentStatus) IsValid() bool {
	return p == PaymentPending || p == PaymentPaid
}

// Status is the sale lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// Sale is a branch-scoped transaction header with an ordered list of lines.
// Financial fields are immutable once the sale is COMPLETED.
type Sale struct {
	ID       id.ID `db:"id" json:"id"`
	BranchID id.ID `db:"branch_id" json:"branchId"`

	Subtotal        types.MinorUnits `db:"subtotal" json:"subtotal"`
	DiscountPercent float64          `db:"discount_percent" json:"discountPercent"`
	DiscountAmount  types.MinorUnits `db:"discount_amount" json:"discountAmount"`
	Total           types.MinorUnits `db:"total" json:"total"`

	PaymentMethod string        `db:"payment_method" json:"paymentMethod"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`
	Status        Status        `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`

	Lines []SaleLine `db:"-" json:"lines"`
}

// SaleLine records one allocation of stock to the sale. The batch reference
// is permanent once persisted; refunds restore stock to the same batch.
type SaleLine struct {
	ID     id.ID `db:"id" json:"id"`
	SaleID id.ID `db:"sale_id" json:"saleId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`
	BatchID   id.ID `db:"batch_id" json:"batchId"`

	Quantity        int64            `db:"quantity" json:"quantity"`
	UnitPrice       types.MinorUnits `db:"unit_price" json:"unitPrice"`
	DiscountPercent float64          `db:"discount_percent" json:"discountPercent"`
	DiscountAmount  types.MinorUnits `db:"discount_amount" json:"discountAmount"`
	Total           types.MinorUnits `db:"total" json:"total"`
}
