package inventory

import (
	"context"
	"fmt"
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/appctx"
	"pharmapos/internal/core/id"
	"pharmapos/internal/core/tx"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/audit"
	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/events"
	"pharmapos/internal/domain/ledger"
	"pharmapos/pkg/logger"
)

// Service provides stock receiving, manual adjustments, and batch queries.
// Sale and refund flows have their own transaction managers; this service
// covers the remaining writers of batch state.
type Service struct {
	batches   Repository
	catalog   catalog.Repository
	ledger    *ledger.Service
	txManager tx.Manager
	publisher events.Publisher
	auditor   audit.Recorder
}

// NewService creates a new inventory service.
func NewService(
	batches Repository,
	catalogRepo catalog.Repository,
	ledgerService *ledger.Service,
	txManager tx.Manager,
	publisher events.Publisher,
	auditor audit.Recorder,
) *Service {
	return &Service{
		batches:   batches,
		catalog:   catalogRepo,
		ledger:    ledgerService,
		txManager: txManager,
		publisher: publisher,
		auditor:   auditor,
	}
}

// ReceiveBatchInput describes incoming stock.
type ReceiveBatchInput struct {
	BranchID     id.ID
	ProductID    id.ID
	BatchNo      string
	Quantity     int64
	SellingPrice types.MinorUnits
	ExpireDate   *time.Time
}

// ReceiveBatch creates a batch and records the IN movement atomically.
func (s *Service) ReceiveBatch(ctx context.Context, in ReceiveBatchInput) (*Batch, error) {
	if id.IsNil(in.BranchID) {
		return nil, apperror.NewBranchRequired()
	}
	if in.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if in.SellingPrice.IsNegative() {
		return nil, apperror.NewValidation("selling price must not be negative").
			WithDetail("field", "sellingPrice")
	}
	if in.BatchNo == "" {
		return nil, apperror.NewValidation("batch number is required").
			WithDetail("field", "batchNo")
	}

	if _, err := s.catalog.GetProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}

	batch := NewBatch(in.ProductID, in.BranchID, in.BatchNo, in.Quantity, in.SellingPrice, in.ExpireDate)
	actor := appctx.ActorID(ctx)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.batches.Create(ctx, &batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		movement := ledger.NewMovement(
			ledger.MovementIn,
			in.BranchID, in.ProductID, batch.ID,
			in.Quantity,
			batch.ID,
			actor,
			"stock received",
		)
		if err := s.ledger.Record(ctx, []ledger.Movement{movement}); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "Batch",
			AggregateID:   batch.ID,
			Type:          events.TypeStockReceived,
			Payload: map[string]any{
				"batchId":   batch.ID,
				"productId": in.ProductID,
				"branchId":  in.BranchID,
				"quantity":  in.Quantity,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		_ = s.auditor.Record(ctx, audit.Entry{
			EntityType: "Batch",
			EntityID:   batch.ID,
			Action:     audit.ActionReceive,
			Actor:      actor,
			Changes:    batch,
		})
	}

	logger.Info(ctx, "batch received", "batch_id", batch.ID, "batch_no", batch.BatchNo, "quantity", batch.Quantity)
	return &batch, nil
}

// AdjustStockInput describes a manual quantity correction.
type AdjustStockInput struct {
	BatchID id.ID
	Delta   int64
	Reason  string
}

// AdjustStock applies a signed correction to a batch and records the
// ADJUSTMENT movement atomically. Negative deltas must not take the batch
// below zero; the guarded update rejects them.
func (s *Service) AdjustStock(ctx context.Context, in AdjustStockInput) error {
	if in.Delta == 0 {
		return apperror.NewValidation("delta must be non-zero").
			WithDetail("field", "delta")
	}
	if in.Reason == "" {
		return apperror.NewValidation("reason is required for adjustments").
			WithDetail("field", "reason")
	}

	actor := appctx.ActorID(ctx)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.batches.GetByID(ctx, in.BatchID)
		if err != nil {
			return err
		}

		if err := s.batches.AdjustQuantity(ctx, in.BatchID, in.Delta); err != nil {
			return err
		}

		movement := ledger.NewMovement(
			ledger.MovementAdjustment,
			batch.BranchID, batch.ProductID, batch.ID,
			in.Delta,
			batch.ID,
			actor,
			in.Reason,
		)
		if err := s.ledger.Record(ctx, []ledger.Movement{movement}); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "Batch",
			AggregateID:   batch.ID,
			Type:          events.TypeStockAdjusted,
			Payload: map[string]any{
				"batchId":   batch.ID,
				"productId": batch.ProductID,
				"branchId":  batch.BranchID,
				"delta":     in.Delta,
				"reason":    in.Reason,
			},
		})
	})
	if err != nil {
		return err
	}

	if s.auditor != nil {
		_ = s.auditor.Record(ctx, audit.Entry{
			EntityType: "Batch",
			EntityID:   in.BatchID,
			Action:     audit.ActionAdjust,
			Actor:      actor,
			Changes:    in,
		})
	}

	logger.Info(ctx, "stock adjusted", "batch_id", in.BatchID, "delta", in.Delta, "reason", in.Reason)
	return nil
}

// ListBatches returns batches for a product in a branch.
func (s *Service) ListBatches(ctx context.Context, filter BatchFilter) ([]Batch, error) {
	if id.IsNil(filter.BranchID) {
		return nil, apperror.NewBranchRequired()
	}
	return s.batches.List(ctx, filter)
}

// Availability returns total sellable quantity for a product in a branch.
func (s *Service) Availability(ctx context.Context, productID, branchID id.ID) (int64, error) {
	if id.IsNil(branchID) {
		return 0, apperror.NewBranchRequired()
	}
	return s.batches.Availability(ctx, productID, branchID)
}
