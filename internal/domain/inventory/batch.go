// Package inventory provides the batch store and the FEFO allocation engine.
package inventory

import (
	"time"

	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
)

// Batch is a discrete lot of a product with its own quantity, price, and expiry.
// A batch with quantity zero is retained for audit but excluded from selection.
type Batch struct {
	ID        id.ID  `db:"id" json:"id"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	BranchID  id.ID  `db:"branch_id" json:"branchId"`
	BatchNo   string `db:"batch_no" json:"batchNo"`

	Quantity     int64            `db:"quantity" json:"quantity"`
	SellingPrice types.MinorUnits `db:"selling_price" json:"sellingPrice"`

	// ExpireDate is optional; batches without expiry sort after all dated
	// batches in FEFO selection.
	ExpireDate *time.Time `db:"expire_date" json:"expireDate,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBatch creates a batch with a generated time-ordered id.
func NewBatch(productID, branchID id.ID, batchNo string, quantity int64, sellingPrice types.MinorUnits, expireDate *time.Time) Batch {
	now := time.Now().UTC()
	return Batch{
		ID:           id.New(),
		ProductID:    productID,
		BranchID:     branchID,
		BatchNo:      batchNo,
		Quantity:     quantity,
		SellingPrice: sellingPrice,
		ExpireDate:   expireDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsExpired reports whether the batch expiry has passed at the given time.
// Batches without an expiry never expire.
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpireDate != nil && b.ExpireDate.Before(now)
}

// Available reports whether the batch can supply stock at the given time.
func (b *Batch) Available(now time.Time) bool {
	return b.Quantity > 0 && !b.IsExpired(now)
}
