package ledger

import (
	"context"
	"fmt"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/pkg/logger"
)

// Service provides validated access to the movement trail.
type Service struct {
	repo Repository
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends movements. Called during posting within a transaction.
func (s *Service) Record(ctx context.Context, movements []Movement) error {
	if len(movements) == 0 {
		return nil
	}

	for i, m := range movements {
		if !m.Type.IsValid() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: unknown type %q", i, m.Type))
		}
		if m.Type != MovementAdjustment && m.Quantity <= 0 {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity must be positive", i))
		}
		if m.Type == MovementAdjustment && m.Quantity == 0 {
			return apperror.NewValidation(fmt.Sprintf("movement %d: adjustment quantity must be non-zero", i))
		}
		if id.IsNil(m.ReferenceID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: reference id is required", i))
		}
	}

	if err := s.repo.Append(ctx, movements); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}

	logger.Info(ctx, "recorded stock movements",
		"count", len(movements),
		"reference_id", movements[0].ReferenceID,
	)

	return nil
}

// List returns movements for a branch, optionally narrowed by product,
// batch, type, and date range.
func (s *Service) List(ctx context.Context, filter Filter) ([]Movement, error) {
	if id.IsNil(filter.BranchID) {
		return nil, apperror.NewBranchRequired()
	}
	return s.repo.List(ctx, filter)
}

// ListByReference returns the movement trail of one sale, refund, or receipt.
func (s *Service) ListByReference(ctx context.Context, referenceID id.ID) ([]Movement, error) {
	return s.repo.ListByReference(ctx, referenceID)
}
