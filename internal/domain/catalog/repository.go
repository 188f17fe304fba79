package catalog

import (
	"context"

	"pharmapos/internal/core/id"
)

// Repository defines catalog lookups.
// Writes exist only for seeding; the catalog is otherwise read-only here.
type Repository interface {
	GetProduct(ctx context.Context, productID id.ID) (Product, error)
	GetBranch(ctx context.Context, branchID id.ID) (Branch, error)

	CreateProduct(ctx context.Context, product Product) error
	CreateBranch(ctx context.Context, branch Branch) error
}
