package refunds

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
	"pharmapos/internal/domain/events"
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/sales"
	"pharmapos/pkg/logger"
)

// Service is the refund transaction manager.
type Service struct {
	refunds   Repository
	sales     sales.Repository
	batches   inventory.Repository
	ledger    *ledger.Service
	txManager tx.Manager
	publisher events.Publisher
	auditor   audit.Recorder
	now       func() time.Time
}

// NewService creates a new refunds service.
func NewService(
	refunds Repository,
	salesRepo sales.Repository,
	batches inventory.Repository,
	ledgerService *ledger.Service,
	txManager tx.Manager,
	publisher events.Publisher,
	auditor audit.Recorder,
) *Service {
	return &Service{
		refunds:   refunds,
		sales:     salesRepo,
		batches:   batches,
		ledger:    ledgerService,
		txManager: txManager,
		publisher: publisher,
		auditor:   auditor,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// LineInput requests a refund of quantity from the original sale.
// SaleLineID pins the refund to one sale line; when absent, the quantity is
// matched against the sale's lines for the product in line order.
type LineInput struct {
	SaleLineID *id.ID
	ProductID  id.ID
	Quantity   int64
	Reason     string
}

// CreateRefundInput describes a refund to post.
type CreateRefundInput struct {
	SaleID id.ID
	Lines  []LineInput
	Reason string
}

// CreateRefund posts a refund atomically: the original sale is locked,
// remaining refundable quantities are validated, stock is restored to the
// batches the sale drew from, and one RETURN movement is recorded per line.
// Refund amounts derive from the sale's recorded prices.
func (s *Service) CreateRefund(ctx context.Context, in CreateRefundInput) (*Refund, error) {
	if id.IsNil(in.SaleID) {
		return nil, apperror.NewValidation("sale id is required").
			WithDetail("field", "originalSaleId")
	}
	if len(in.Lines) == 0 {
		return nil, apperror.NewValidation("refund requires at least one line").
			WithDetail("field", "lines")
	}
	for i, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, apperror.NewValidation(fmt.Sprintf("line %d: quantity must be a positive integer", i)).
				WithDetail("quantity", line.Quantity)
		}
		if line.SaleLineID == nil && id.IsNil(line.ProductID) {
			return nil, apperror.NewValidation(fmt.Sprintf("line %d: product id is required", i))
		}
	}

	actor := appctx.ActorID(ctx)

	refund := &Refund{
		ID:        id.New(),
		SaleID:    in.SaleID,
		Reason:    in.Reason,
		CreatedAt: s.now(),
		CreatedBy: actor,
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.sales.GetForUpdate(ctx, in.SaleID)
		if err != nil {
			return err
		}
		if sale.Status == sales.StatusRefunded {
			return apperror.NewSaleAlreadyRefunded(sale.ID.String())
		}
		if sale.Status != sales.StatusCompleted {
			return apperror.NewBusinessRule("SALE_NOT_REFUNDABLE",
				fmt.Sprintf("sale in status %s cannot be refunded", sale.Status)).
				WithDetail("saleId", sale.ID)
		}
		refund.BranchID = sale.BranchID

		saleLines, err := s.sales.GetLines(ctx, sale.ID)
		if err != nil {
			return err
		}
		refunded, err := s.refunds.RefundedQuantities(ctx, sale.ID)
		if err != nil {
			return fmt.Errorf("load refunded quantities: %w", err)
		}

		lines, err := s.resolveLines(refund.ID, in, saleLines, refunded)
		if err != nil {
			return err
		}

		movements := make([]ledger.Movement, 0, len(lines))
		for _, line := range lines {
			if err := s.batches.AdjustQuantity(ctx, line.BatchID, line.Quantity); err != nil {
				return err
			}
			refund.TotalRefunded = refund.TotalRefunded.Add(line.Amount)

			reason := line.Reason
			if reason == "" {
				reason = in.Reason
			}
			movements = append(movements, ledger.NewMovement(
				ledger.MovementReturn,
				sale.BranchID, line.ProductID, line.BatchID,
				line.Quantity,
				refund.ID,
				actor,
				reason,
			))
		}
		refund.Lines = lines

		if err := s.refunds.Create(ctx, refund); err != nil {
			return fmt.Errorf("create refund: %w", err)
		}
		if err := s.refunds.SaveLines(ctx, lines); err != nil {
			return fmt.Errorf("save refund lines: %w", err)
		}
		if err := s.ledger.Record(ctx, movements); err != nil {
			return err
		}

		if fullyRefunded(saleLines, refunded, lines) {
			if err := s.sales.UpdateStatus(ctx, sale.ID, sales.StatusRefunded); err != nil {
				return fmt.Errorf("mark sale refunded: %w", err)
			}
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "Refund",
			AggregateID:   refund.ID,
			Type:          events.TypeRefundCreated,
			Payload: map[string]any{
				"refundId":      refund.ID,
				"saleId":        sale.ID,
				"branchId":      sale.BranchID,
				"totalRefunded": refund.TotalRefunded,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		_ = s.auditor.Record(ctx, audit.Entry{
			EntityType: "refund",
			EntityID:   refund.ID,
			Action:     audit.ActionRefund,
			Actor:      actor,
			Changes:    refund,
		})
	}

	logger.Info(ctx, "refund created",
		"refund_id", refund.ID,
		"sale_id", refund.SaleID,
		"total_refunded", refund.TotalRefunded,
	)

	return refund, nil
}

// resolveLines maps refund requests onto sale lines, enforcing per-line
// remaining quantities. Amounts are cumulative pro-rata shares of the sale
// line total, so refunding a line in parts sums to exactly its total.
func (s *Service) resolveLines(
	refundID id.ID,
	in CreateRefundInput,
	saleLines []sales.SaleLine,
	refunded map[id.ID]int64,
) ([]RefundLine, error) {
	// Track consumption locally so one request cannot use the same
	// remaining quantity twice.
	consumed := make(map[id.ID]int64, len(saleLines))
	for lineID, qty := range refunded {
		consumed[lineID] = qty
	}

	byID := make(map[id.ID]*sales.SaleLine, len(saleLines))
	for i := range saleLines {
		byID[saleLines[i].ID] = &saleLines[i]
	}

	var out []RefundLine

	take := func(sl *sales.SaleLine, qty int64, reason string) {
		already := consumed[sl.ID]
		amount := proRataShare(sl, already, qty)
		consumed[sl.ID] = already + qty
		out = append(out, RefundLine{
			ID:         id.New(),
			RefundID:   refundID,
			SaleLineID: sl.ID,
			ProductID:  sl.ProductID,
			BatchID:    sl.BatchID,
			Quantity:   qty,
			UnitPrice:  sl.UnitPrice,
			Amount:     amount,
			Reason:     reason,
		})
	}

	for _, req := range in.Lines {
		if req.SaleLineID != nil {
			sl, ok := byID[*req.SaleLineID]
			if !ok {
				return nil, apperror.NewNotFound("sale line", req.SaleLineID.String())
			}
			remaining := sl.Quantity - consumed[sl.ID]
			if req.Quantity > remaining {
				return nil, apperror.NewOverRefund(sl.ID.String(), req.Quantity, remaining)
			}
			take(sl, req.Quantity, req.Reason)
			continue
		}

		// Match by product across sale lines in line order, splitting
		// the requested quantity over lines as needed.
		left := req.Quantity
		var lastLineID id.ID
		for i := range saleLines {
			sl := &saleLines[i]
			if sl.ProductID != req.ProductID {
				continue
			}
			lastLineID = sl.ID
			remaining := sl.Quantity - consumed[sl.ID]
			if remaining <= 0 {
				continue
			}
			qty := left
			if qty > remaining {
				qty = remaining
			}
			take(sl, qty, req.Reason)
			left -= qty
			if left == 0 {
				break
			}
		}
		if left > 0 {
			if id.IsNil(lastLineID) {
				return nil, apperror.NewNotFound("sale line for product", req.ProductID.String())
			}
			return nil, apperror.NewOverRefund(lastLineID.String(), req.Quantity, req.Quantity-left)
		}
	}

	return out, nil
}

// proRataShare returns the monetary share of refunding qty units after
// already units were refunded. Computed as a difference of cumulative
// shares so partial refunds of one line never gain or lose a cent overall.
func proRataShare(sl *sales.SaleLine, already, qty int64) types.MinorUnits {
	before := sl.Total.ProRata(already, sl.Quantity)
	after := sl.Total.ProRata(already+qty, sl.Quantity)
	return after.Sub(before)
}

// fullyRefunded reports whether every sale line's quantity is exhausted by
// prior refunds plus the lines of this refund.
func fullyRefunded(saleLines []sales.SaleLine, prior map[id.ID]int64, current []RefundLine) bool {
	total := make(map[id.ID]int64, len(saleLines))
	for lineID, qty := range prior {
		total[lineID] = qty
	}
	for _, rl := range current {
		total[rl.SaleLineID] += rl.Quantity
	}
	for _, sl := range saleLines {
		if total[sl.ID] < sl.Quantity {
			return false
		}
	}
	return true
}

// Get returns a refund with its lines.
func (s *Service) Get(ctx context.Context, refundID id.ID) (*Refund, error) {
	refund, err := s.refunds.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}

	lines, err := s.refunds.GetLines(ctx, refundID)
	if err != nil {
		return nil, err
	}
	refund.Lines = lines

	return refund, nil
}

// ListBySale returns the refund history of a sale.
func (s *Service) ListBySale(ctx context.Context, saleID id.ID) ([]*Refund, error) {
	return s.refunds.ListBySale(ctx, saleID)
}
