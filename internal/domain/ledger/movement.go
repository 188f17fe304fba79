// Package ledger provides the append-only stock movement trail.
// Every quantity change on a batch produces exactly one movement; movements
// are never updated or deleted.
package ledger

import (
	"time"

	"pharmapos/internal/core/id"
)

// MovementType classifies the cause of a quantity change.
type MovementType string

const (
	// MovementIn records stock received into a batch.
	MovementIn MovementType = "IN"
	// MovementOut records stock consumed by a sale.
	MovementOut MovementType = "OUT"
	// MovementReturn records stock restored by a refund.
	MovementReturn MovementType = "RETURN"
	// MovementAdjustment records a manual correction (signed quantity).
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// IsValid reports whether the movement type is known.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementIn, MovementOut, MovementReturn, MovementAdjustment:
		return true
	}
	return false
}

// Movement is an immutable audit record of a single quantity change.
type Movement struct {
	ID        id.ID        `db:"id" json:"id"`
	Type      MovementType `db:"type" json:"type"`
	BranchID  id.ID        `db:"branch_id" json:"branchId"`
	ProductID id.ID        `db:"product_id" json:"productId"`
	BatchID   id.ID        `db:"batch_id" json:"batchId"`

	// Quantity is positive for IN/OUT/RETURN (direction is carried by the
	// type) and signed for ADJUSTMENT.
	Quantity int64 `db:"quantity" json:"quantity"`

	// ReferenceID points at the sale, refund, or receipt that caused the change.
	ReferenceID id.ID  `db:"reference_id" json:"referenceId"`
	Actor       string `db:"actor" json:"actor"`
	Reason      string `db:"reason" json:"reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// NewMovement creates a movement with a generated time-ordered id.
func NewMovement(
	movType MovementType,
	branchID, productID, batchID id.ID,
	quantity int64,
	referenceID id.ID,
	actor, reason string,
) Movement {
	return Movement{
		ID:          id.New(),
		Type:        movType,
		BranchID:    branchID,
		ProductID:   productID,
		BatchID:     batchID,
		Quantity:    quantity,
		ReferenceID: referenceID,
		Actor:       actor,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}
}

// SignedQuantity returns the effect of the movement on batch stock.
// IN and RETURN increase, OUT decreases, ADJUSTMENT carries its own sign.
func (m *Movement) SignedQuantity() int64 {
	switch m.Type {
	case MovementOut:
		return -m.Quantity
	default:
		return m.Quantity
	}
}
