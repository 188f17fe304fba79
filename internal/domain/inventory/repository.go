package inventory

import (
	"context"

	"pharmapos/internal/core/id"
)

// Repository defines batch store operations.
type Repository interface {
	Create(ctx context.Context, batch *Batch) error
	GetByID(ctx context.Context, batchID id.ID) (Batch, error)

	// ListForAllocation returns all batches with positive quantity for a
	// product in a branch, locking the rows for the duration of the
	// caller's transaction (SELECT ... FOR UPDATE).
	ListForAllocation(ctx context.Context, productID, branchID id.ID) ([]Batch, error)

	// List returns batches for collaborator queries.
	List(ctx context.Context, filter BatchFilter) ([]Batch, error)

	// AdjustQuantity applies a signed delta to a batch's quantity.
	// Negative deltas are guarded in the UPDATE predicate (quantity >=
	// -delta); a guarded update touching zero rows returns a batch
	// conflict so the enclosing transaction rolls back.
	AdjustQuantity(ctx context.Context, batchID id.ID, delta int64) error

	// Availability returns total sellable quantity for a product in a branch.
	Availability(ctx context.Context, productID, branchID id.ID) (int64, error)
}

// BatchFilter narrows batch queries.
type BatchFilter struct {
	ProductID      *id.ID
	BranchID       id.ID
	ExcludeExpired bool
	ExcludeEmpty   bool
	Limit          int
	Offset         int
}
