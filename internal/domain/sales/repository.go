package sales

import (
	"context"
	"time"

	"pharmapos/internal/core/id"
)

// ListFilter narrows sale listings. BranchID is mandatory.
type ListFilter struct {
	BranchID id.ID
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// ListResult is a paginated page of sales.
type ListResult struct {
	Items      []*Sale `json:"items"`
	TotalCount int64   `json:"totalCount"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

type Repository interface {
	Create(ctx context.Context, sale *Sale) error
	SaveLines(ctx context.Context, lines []SaleLine) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	// GetForUpdate locks the sale row for the duration of the transaction.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)
	GetLines(ctx context.Context, saleID id.ID) ([]SaleLine, error)
	UpdateStatus(ctx context.Context, saleID id.ID, status Status) error
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
}
