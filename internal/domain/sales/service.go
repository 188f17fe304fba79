package sales

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
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/pricing"
	"pharmapos/pkg/logger"
)

// Service is the sale transaction manager. It coordinates batch selection,
// pricing, stock deduction, and movement recording in a single transaction.
type Service struct {
	sales     Repository
	batches   inventory.Repository
	catalog   catalog.Repository
	ledger    *ledger.Service
	txManager tx.Manager
	publisher events.Publisher
	auditor   audit.Recorder
	now       func() time.Time
}

// NewService creates a new sales service.
func NewService(
	sales Repository,
	batches inventory.Repository,
	catalogRepo catalog.Repository,
	ledgerService *ledger.Service,
	txManager tx.Manager,
	publisher events.Publisher,
	auditor audit.Recorder,
) *Service {
	return &Service{
		sales:     sales,
		batches:   batches,
		catalog:   catalogRepo,
		ledger:    ledgerService,
		txManager: txManager,
		publisher: publisher,
		auditor:   auditor,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// LineInput is one requested product line. BatchID, when set, overrides
// automatic batch selection for the full requested quantity.
type LineInput struct {
	ProductID       id.ID
	BatchID         *id.ID
	Quantity        int64
	DiscountPercent types.Percent
}

// CreateSaleInput describes a sale to post.
type CreateSaleInput struct {
	BranchID        id.ID
	Lines           []LineInput
	PaymentMethod   string
	PaymentStatus   PaymentStatus
	DiscountPercent types.Percent
}

// allocatedLine pairs an input line with its resolved batch allocations.
type allocatedLine struct {
	input       LineInput
	allocations []inventory.Allocation
}

// CreateSale posts a sale atomically: batches are selected and locked,
// stock is re-validated and decremented, lines are priced from batch unit
// prices, and one OUT movement is recorded per allocation. Any failure
// rolls the whole sale back; stock is never partially deducted.
//
// A requested quantity larger than the first batch in expiry order is
// split across batches, producing one sale line per batch drawn from.
func (s *Service) CreateSale(ctx context.Context, in CreateSaleInput) (*Sale, error) {
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}

	actor := appctx.ActorID(ctx)
	now := s.now()

	sale := &Sale{
		ID:              id.New(),
		BranchID:        in.BranchID,
		DiscountPercent: in.DiscountPercent.Float64(),
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   in.PaymentStatus,
		Status:          StatusCompleted,
		CreatedAt:       now,
		CreatedBy:       actor,
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		allocated, err := s.allocateAll(ctx, in, now)
		if err != nil {
			return err
		}

		lines, lineTotals, err := s.priceAll(sale.ID, allocated)
		if err != nil {
			return err
		}

		totals := pricing.ComputeTotals(lineTotals, in.DiscountPercent)
		sale.Subtotal = totals.Subtotal
		sale.DiscountAmount = totals.DiscountAmount
		sale.Total = totals.Total
		sale.Lines = lines

		movements := make([]ledger.Movement, 0, len(lines))
		for _, line := range lines {
			if err := s.batches.AdjustQuantity(ctx, line.BatchID, -line.Quantity); err != nil {
				return err
			}
			movements = append(movements, ledger.NewMovement(
				ledger.MovementOut,
				sale.BranchID, line.ProductID, line.BatchID,
				line.Quantity,
				sale.ID,
				actor,
				"sale",
			))
		}

		if err := s.sales.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.sales.SaveLines(ctx, lines); err != nil {
			return fmt.Errorf("save sale lines: %w", err)
		}
		if err := s.ledger.Record(ctx, movements); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "Sale",
			AggregateID:   sale.ID,
			Type:          events.TypeSaleCompleted,
			Payload: map[string]any{
				"saleId":   sale.ID,
				"branchId": sale.BranchID,
				"total":    sale.Total,
				"lines":    len(sale.Lines),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		_ = s.auditor.Record(ctx, audit.Entry{
			EntityType: "sale",
			EntityID:   sale.ID,
			Action:     audit.ActionCreate,
			Actor:      actor,
			Changes:    sale,
		})
	}

	logger.Info(ctx, "sale completed",
		"sale_id", sale.ID,
		"branch_id", sale.BranchID,
		"lines", len(sale.Lines),
		"total", sale.Total,
	)

	return sale, nil
}

func (s *Service) validateInput(ctx context.Context, in CreateSaleInput) error {
	if id.IsNil(in.BranchID) {
		return apperror.NewBranchRequired()
	}
	if len(in.Lines) == 0 {
		return apperror.NewValidation("sale requires at least one line").
			WithDetail("field", "lines")
	}
	if in.PaymentMethod == "" {
		return apperror.NewValidation("payment method is required").
			WithDetail("field", "paymentMethod")
	}
	if !in.PaymentStatus.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("unknown payment status %q", in.PaymentStatus)).
			WithDetail("field", "paymentStatus")
	}

	seen := make(map[id.ID]struct{})
	for i, line := range in.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: product id is required", i))
		}
		if line.Quantity <= 0 {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be a positive integer", i)).
				WithDetail("quantity", line.Quantity)
		}
		if _, ok := seen[line.ProductID]; !ok {
			seen[line.ProductID] = struct{}{}
			if _, err := s.catalog.GetProduct(ctx, line.ProductID); err != nil {
				return err
			}
		}
	}

	if _, err := s.catalog.GetBranch(ctx, in.BranchID); err != nil {
		return err
	}

	return nil
}

// allocateAll resolves a batch allocation for every input line before any
// stock is touched. Batch rows are read FOR UPDATE once per product; the
// in-memory snapshot is decremented between lines so multiple lines of the
// same product cannot allocate the same units twice.
func (s *Service) allocateAll(ctx context.Context, in CreateSaleInput, now time.Time) ([]allocatedLine, error) {
	snapshots := make(map[id.ID][]inventory.Batch)

	load := func(productID id.ID) ([]inventory.Batch, error) {
		if cached, ok := snapshots[productID]; ok {
			return cached, nil
		}
		batches, err := s.batches.ListForAllocation(ctx, productID, in.BranchID)
		if err != nil {
			return nil, fmt.Errorf("list batches for allocation: %w", err)
		}
		snapshots[productID] = batches
		return batches, nil
	}

	allocated := make([]allocatedLine, 0, len(in.Lines))
	for _, line := range in.Lines {
		batches, err := load(line.ProductID)
		if err != nil {
			return nil, err
		}

		result := s.allocateLine(batches, line, now)
		if !result.FullyAllocated() {
			available := int64(0)
			for _, b := range inventory.RankFEFO(batches, now) {
				available += b.Quantity
			}
			return nil, apperror.NewInsufficientStock(line.ProductID.String(), line.Quantity, available)
		}

		snapshots[line.ProductID] = deductSnapshot(batches, result.Allocations)
		allocated = append(allocated, allocatedLine{input: line, allocations: result.Allocations})
	}

	return allocated, nil
}

func (s *Service) allocateLine(batches []inventory.Batch, line LineInput, now time.Time) inventory.AllocationResult {
	if line.BatchID != nil {
		if result, ok := inventory.AllocateFromBatch(batches, *line.BatchID, line.Quantity, now); ok {
			return result
		}
		// Override batch missing, expired, or short: fall back to automatic
		// first-expired-first-out selection.
	}
	return inventory.Allocate(batches, line.Quantity, now)
}

// deductSnapshot returns the batch snapshot with allocated quantities removed.
func deductSnapshot(batches []inventory.Batch, allocations []inventory.Allocation) []inventory.Batch {
	taken := make(map[id.ID]int64, len(allocations))
	for _, a := range allocations {
		taken[a.Batch.ID] += a.Quantity
	}

	out := make([]inventory.Batch, 0, len(batches))
	for _, b := range batches {
		b.Quantity -= taken[b.ID]
		if b.Quantity > 0 {
			out = append(out, b)
		}
	}
	return out
}

// priceAll turns allocations into persisted sale lines, one per batch drawn
// from, priced at each batch's unit price.
func (s *Service) priceAll(saleID id.ID, allocated []allocatedLine) ([]SaleLine, []types.MinorUnits, error) {
	var (
		lines      []SaleLine
		lineTotals []types.MinorUnits
		lineNo     int
	)

	for _, al := range allocated {
		for _, alloc := range al.allocations {
			priced, err := pricing.PriceLine(alloc.Batch.SellingPrice, alloc.Quantity, al.input.DiscountPercent)
			if err != nil {
				return nil, nil, err
			}

			lineNo++
			lines = append(lines, SaleLine{
				ID:              id.New(),
				SaleID:          saleID,
				LineNo:          lineNo,
				ProductID:       al.input.ProductID,
				BatchID:         alloc.Batch.ID,
				Quantity:        alloc.Quantity,
				UnitPrice:       priced.UnitPrice,
				DiscountPercent: priced.DiscountPercent.Float64(),
				DiscountAmount:  priced.DiscountAmount,
				Total:           priced.Total,
			})
			lineTotals = append(lineTotals, priced.Total)
		}
	}

	return lines, lineTotals, nil
}

// Get returns a sale with its lines.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	lines, err := s.sales.GetLines(ctx, saleID)
	if err != nil {
		return nil, err
	}
	sale.Lines = lines

	return sale, nil
}

// List returns sales for a branch.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if id.IsNil(filter.BranchID) {
		return nil, apperror.NewBranchRequired()
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.sales.List(ctx, filter)
}
