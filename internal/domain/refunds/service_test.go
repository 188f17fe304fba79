package refunds

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/audit"
	"pharmapos/internal/domain/events"
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/sales"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeBatchRepo struct {
	quantities map[id.ID]int64
	adjusted   []id.ID
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{quantities: make(map[id.ID]int64)}
}

func (r *fakeBatchRepo) Create(_ context.Context, batch *inventory.Batch) error {
	r.quantities[batch.ID] = batch.Quantity
	return nil
}

func (r *fakeBatchRepo) GetByID(_ context.Context, batchID id.ID) (inventory.Batch, error) {
	if q, ok := r.quantities[batchID]; ok {
		return inventory.Batch{ID: batchID, Quantity: q}, nil
	}
	return inventory.Batch{}, apperror.NewNotFound("batch", batchID)
}

func (r *fakeBatchRepo) ListForAllocation(_ context.Context, _, _ id.ID) ([]inventory.Batch, error) {
	return nil, nil
}

func (r *fakeBatchRepo) List(_ context.Context, _ inventory.BatchFilter) ([]inventory.Batch, error) {
	return nil, nil
}

func (r *fakeBatchRepo) AdjustQuantity(_ context.Context, batchID id.ID, delta int64) error {
	r.quantities[batchID] += delta
	r.adjusted = append(r.adjusted, batchID)
	return nil
}

func (r *fakeBatchRepo) Availability(_ context.Context, _, _ id.ID) (int64, error) {
	return 0, nil
}

type fakeMovementRepo struct {
	movements []ledger.Movement
}

func (r *fakeMovementRepo) Append(_ context.Context, movements []ledger.Movement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *fakeMovementRepo) List(_ context.Context, _ ledger.Filter) ([]ledger.Movement, error) {
	return r.movements, nil
}

func (r *fakeMovementRepo) ListByReference(_ context.Context, referenceID id.ID) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for _, m := range r.movements {
		if m.ReferenceID == referenceID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeSaleRepo struct {
	sale  *sales.Sale
	lines []sales.SaleLine
}

func (r *fakeSaleRepo) Create(_ context.Context, _ *sales.Sale) error { return nil }

func (r *fakeSaleRepo) SaveLines(_ context.Context, _ []sales.SaleLine) error { return nil }

func (r *fakeSaleRepo) GetByID(_ context.Context, saleID id.ID) (*sales.Sale, error) {
	if r.sale == nil || r.sale.ID != saleID {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	copied := *r.sale
	return &copied, nil
}

func (r *fakeSaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *fakeSaleRepo) GetLines(_ context.Context, _ id.ID) ([]sales.SaleLine, error) {
	return r.lines, nil
}

func (r *fakeSaleRepo) UpdateStatus(_ context.Context, saleID id.ID, status sales.Status) error {
	if r.sale == nil || r.sale.ID != saleID {
		return apperror.NewNotFound("sale", saleID)
	}
	r.sale.Status = status
	return nil
}

func (r *fakeSaleRepo) List(_ context.Context, _ sales.ListFilter) (*sales.ListResult, error) {
	return &sales.ListResult{}, nil
}

type fakeRefundRepo struct {
	refunds map[id.ID]*Refund
	lines   map[id.ID][]RefundLine
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{
		refunds: make(map[id.ID]*Refund),
		lines:   make(map[id.ID][]RefundLine),
	}
}

func (r *fakeRefundRepo) Create(_ context.Context, refund *Refund) error {
	copied := *refund
	copied.Lines = nil
	r.refunds[refund.ID] = &copied
	return nil
}

func (r *fakeRefundRepo) SaveLines(_ context.Context, lines []RefundLine) error {
	for _, l := range lines {
		r.lines[l.RefundID] = append(r.lines[l.RefundID], l)
	}
	return nil
}

func (r *fakeRefundRepo) GetByID(_ context.Context, refundID id.ID) (*Refund, error) {
	if rf, ok := r.refunds[refundID]; ok {
		copied := *rf
		return &copied, nil
	}
	return nil, apperror.NewNotFound("refund", refundID)
}

func (r *fakeRefundRepo) GetLines(_ context.Context, refundID id.ID) ([]RefundLine, error) {
	return r.lines[refundID], nil
}

func (r *fakeRefundRepo) ListBySale(_ context.Context, saleID id.ID) ([]*Refund, error) {
	var out []*Refund
	for _, rf := range r.refunds {
		if rf.SaleID == saleID {
			out = append(out, rf)
		}
	}
	return out, nil
}

func (r *fakeRefundRepo) RefundedQuantities(_ context.Context, saleID id.ID) (map[id.ID]int64, error) {
	totals := make(map[id.ID]int64)
	for refundID, rf := range r.refunds {
		if rf.SaleID != saleID {
			continue
		}
		for _, l := range r.lines[refundID] {
			totals[l.SaleLineID] += l.Quantity
		}
	}
	return totals, nil
}

// --- fixture ---

type fixture struct {
	service    *Service
	refundRepo *fakeRefundRepo
	saleRepo   *fakeSaleRepo
	batches    *fakeBatchRepo
	movements  *fakeMovementRepo

	sale *sales.Sale
}

// newFixture builds a completed sale with one line of 5 units at 90.00
// (line total 450.00) drawn from a single batch that now holds 10 units.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	saleID := id.New()
	lineID := id.New()
	batchID := id.New()
	branchID := id.New()
	productID := id.New()

	sale := &sales.Sale{
		ID:            saleID,
		BranchID:      branchID,
		Subtotal:      types.MinorUnits(45000),
		Total:         types.MinorUnits(45000),
		PaymentMethod: "cash",
		PaymentStatus: sales.PaymentPaid,
		Status:        sales.StatusCompleted,
		CreatedAt:     time.Now().UTC(),
	}
	line := sales.SaleLine{
		ID:        lineID,
		SaleID:    saleID,
		LineNo:    1,
		ProductID: productID,
		BatchID:   batchID,
		Quantity:  5,
		UnitPrice: types.MinorUnits(9000),
		Total:     types.MinorUnits(45000),
	}

	saleRepo := &fakeSaleRepo{sale: sale, lines: []sales.SaleLine{line}}
	refundRepo := newFakeRefundRepo()
	batches := newFakeBatchRepo()
	batches.quantities[batchID] = 10
	movements := &fakeMovementRepo{}

	service := NewService(
		refundRepo, saleRepo, batches,
		ledger.NewService(movements),
		fakeTxManager{},
		events.NopPublisher{},
		audit.NopRecorder{},
	)

	return &fixture{
		service:    service,
		refundRepo: refundRepo,
		saleRepo:   saleRepo,
		batches:    batches,
		movements:  movements,
		sale:       sale,
	}
}

func (f *fixture) saleLine() sales.SaleLine { return f.saleRepo.lines[0] }

func (f *fixture) refund(t *testing.T, lines ...LineInput) *Refund {
	t.Helper()
	refund, err := f.service.CreateRefund(context.Background(), CreateRefundInput{
		SaleID: f.sale.ID,
		Lines:  lines,
		Reason: "customer return",
	})
	require.NoError(t, err)
	return refund
}

// --- tests ---

func TestCreateRefund_PartialRestoresBatch(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	refund := f.refund(t, LineInput{ProductID: sl.ProductID, Quantity: 2})

	require.Len(t, refund.Lines, 1)
	rl := refund.Lines[0]
	assert.Equal(t, sl.ID, rl.SaleLineID)
	assert.Equal(t, sl.BatchID, rl.BatchID)
	assert.Equal(t, int64(2), rl.Quantity)

	// 2/5 of 450.00.
	assert.Equal(t, "180.00", rl.Amount.String())
	assert.Equal(t, "180.00", refund.TotalRefunded.String())

	// Stock goes back to the batch the sale drew from.
	assert.Equal(t, int64(12), f.batches.quantities[sl.BatchID])

	// One RETURN movement referencing the refund.
	require.Len(t, f.movements.movements, 1)
	m := f.movements.movements[0]
	assert.Equal(t, ledger.MovementReturn, m.Type)
	assert.Equal(t, int64(2), m.Quantity)
	assert.Equal(t, refund.ID, m.ReferenceID)

	// Partial refund leaves the sale completed.
	assert.Equal(t, sales.StatusCompleted, f.sale.Status)
}

func TestCreateRefund_PartsSumExactlyToLineTotal(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	// 5 units of 90.00 refunded one at a time must sum to 450.00 even
	// though a naive per-unit share would drift on rounding.
	var total types.MinorUnits
	for i := 0; i < 5; i++ {
		refund := f.refund(t, LineInput{ProductID: sl.ProductID, Quantity: 1})
		total = total.Add(refund.TotalRefunded)
	}

	assert.Equal(t, sl.Total, total)
	assert.Equal(t, sales.StatusRefunded, f.sale.Status)
}

func TestCreateRefund_FullFlipsSaleStatus(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	refund := f.refund(t, LineInput{ProductID: sl.ProductID, Quantity: 5})

	assert.Equal(t, "450.00", refund.TotalRefunded.String())
	assert.Equal(t, sales.StatusRefunded, f.sale.Status)
}

func TestCreateRefund_OverRefundRejected(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	f.refund(t, LineInput{ProductID: sl.ProductID, Quantity: 4})

	_, err := f.service.CreateRefund(context.Background(), CreateRefundInput{
		SaleID: f.sale.ID,
		Lines:  []LineInput{{ProductID: sl.ProductID, Quantity: 2}},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOverRefund))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, int64(2), appErr.Details["requested"])
	assert.Equal(t, int64(1), appErr.Details["refundable"])

	// The failed request must not touch stock.
	assert.Equal(t, int64(14), f.batches.quantities[sl.BatchID])
}

func TestCreateRefund_AlreadyRefundedSale(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	f.refund(t, LineInput{ProductID: sl.ProductID, Quantity: 5})

	_, err := f.service.CreateRefund(context.Background(), CreateRefundInput{
		SaleID: f.sale.ID,
		Lines:  []LineInput{{ProductID: sl.ProductID, Quantity: 1}},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeSaleAlreadyRefunded))
}

func TestCreateRefund_PendingSaleNotRefundable(t *testing.T) {
	f := newFixture(t)
	f.sale.Status = sales.StatusPending
	sl := f.saleLine()

	_, err := f.service.CreateRefund(context.Background(), CreateRefundInput{
		SaleID: f.sale.ID,
		Lines:  []LineInput{{ProductID: sl.ProductID, Quantity: 1}},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, "SALE_NOT_REFUNDABLE"))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
}

func TestCreateRefund_PinnedSaleLine(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	refund := f.refund(t, LineInput{SaleLineID: &sl.ID, ProductID: sl.ProductID, Quantity: 3})

	require.Len(t, refund.Lines, 1)
	assert.Equal(t, sl.ID, refund.Lines[0].SaleLineID)
	assert.Equal(t, "270.00", refund.TotalRefunded.String())
}

func TestCreateRefund_PinnedUnknownLine(t *testing.T) {
	f := newFixture(t)
	unknown := id.New()

	_, err := f.service.CreateRefund(context.Background(), CreateRefundInput{
		SaleID: f.sale.ID,
		Lines:  []LineInput{{SaleLineID: &unknown, Quantity: 1}},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestCreateRefund_ProductMatchSpansSplitLines(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	// A second sale line for the same product from another batch, as a
	// split allocation produces. 3 units at 80.00.
	secondBatch := id.New()
	f.batches.quantities[secondBatch] = 4
	second := sales.SaleLine{
		ID:        id.New(),
		SaleID:    f.sale.ID,
		LineNo:    2,
		ProductID: sl.ProductID,
		BatchID:   secondBatch,
		Quantity:  3,
		UnitPrice: types.MinorUnits(8000),
		Total:     types.MinorUnits(24000),
	}
	f.saleRepo.lines = append(f.saleRepo.lines, second)

	// 7 units refunds all 5 of the first line and 2 of the second, each
	// valued at its own line's prices.
	refund := f.refund(t, LineInput{ProductID: sl.ProductID, Quantity: 7})

	require.Len(t, refund.Lines, 2)
	assert.Equal(t, sl.ID, refund.Lines[0].SaleLineID)
	assert.Equal(t, int64(5), refund.Lines[0].Quantity)
	assert.Equal(t, second.ID, refund.Lines[1].SaleLineID)
	assert.Equal(t, int64(2), refund.Lines[1].Quantity)

	// 450.00 + 160.00.
	assert.Equal(t, "610.00", refund.TotalRefunded.String())

	// Each batch restored separately.
	assert.Equal(t, int64(15), f.batches.quantities[sl.BatchID])
	assert.Equal(t, int64(6), f.batches.quantities[secondBatch])

	// One line still has a unit left.
	assert.Equal(t, sales.StatusCompleted, f.sale.Status)
}

func TestCreateRefund_ProductQuantityBeyondSale(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	_, err := f.service.CreateRefund(context.Background(), CreateRefundInput{
		SaleID: f.sale.ID,
		Lines:  []LineInput{{ProductID: sl.ProductID, Quantity: 6}},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOverRefund))
}

func TestCreateRefund_Validation(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	cases := []struct {
		name string
		in   CreateRefundInput
	}{
		{name: "missing sale id", in: CreateRefundInput{
			Lines: []LineInput{{ProductID: sl.ProductID, Quantity: 1}},
		}},
		{name: "no lines", in: CreateRefundInput{SaleID: f.sale.ID}},
		{name: "zero quantity", in: CreateRefundInput{
			SaleID: f.sale.ID,
			Lines:  []LineInput{{ProductID: sl.ProductID, Quantity: 0}},
		}},
		{name: "no product or line id", in: CreateRefundInput{
			SaleID: f.sale.ID,
			Lines:  []LineInput{{Quantity: 1}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.CreateRefund(context.Background(), tc.in)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}
}

func TestListBySale(t *testing.T) {
	f := newFixture(t)
	sl := f.saleLine()

	first := f.refund(t, LineInput{ProductID: sl.ProductID, Quantity: 2})
	second := f.refund(t, LineInput{ProductID: sl.ProductID, Quantity: 1})

	listed, err := f.service.ListBySale(context.Background(), f.sale.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	ids := []id.ID{listed[0].ID, listed[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}
