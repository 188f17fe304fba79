package ledger

import (
	"context"
	"time"

	"pharmapos/internal/core/id"
)

// Repository defines operations on the movement trail.
// There is deliberately no update or delete: the trail is append-only.
type Repository interface {
	// Append batch inserts movements (used during posting, inside the
	// caller's transaction).
	Append(ctx context.Context, movements []Movement) error

	// List retrieves movements for audit reads.
	List(ctx context.Context, filter Filter) ([]Movement, error)

	// ListByReference retrieves all movements recorded for one sale/refund/receipt.
	ListByReference(ctx context.Context, referenceID id.ID) ([]Movement, error)
}

// Filter narrows audit reads.
type Filter struct {
	BranchID  id.ID
	ProductID *id.ID
	BatchID   *id.ID
	Type      *MovementType
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}
