package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/audit"
	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/events"
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeBatchRepo struct {
	batches map[id.ID]*inventory.Batch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[id.ID]*inventory.Batch)}
}

func (r *fakeBatchRepo) add(b inventory.Batch) inventory.Batch {
	copied := b
	r.batches[b.ID] = &copied
	return copied
}

func (r *fakeBatchRepo) Create(_ context.Context, batch *inventory.Batch) error {
	r.add(*batch)
	return nil
}

func (r *fakeBatchRepo) GetByID(_ context.Context, batchID id.ID) (inventory.Batch, error) {
	if b, ok := r.batches[batchID]; ok {
		return *b, nil
	}
	return inventory.Batch{}, apperror.NewNotFound("batch", batchID)
}

func (r *fakeBatchRepo) ListForAllocation(_ context.Context, productID, branchID id.ID) ([]inventory.Batch, error) {
	var out []inventory.Batch
	for _, b := range r.batches {
		if b.ProductID == productID && b.BranchID == branchID && b.Quantity > 0 {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) List(_ context.Context, filter inventory.BatchFilter) ([]inventory.Batch, error) {
	var out []inventory.Batch
	for _, b := range r.batches {
		if b.BranchID == filter.BranchID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) AdjustQuantity(_ context.Context, batchID id.ID, delta int64) error {
	b, ok := r.batches[batchID]
	if !ok {
		return apperror.NewBatchConflict(batchID.String())
	}
	if delta < 0 && b.Quantity < -delta {
		return apperror.NewBatchConflict(batchID.String())
	}
	b.Quantity += delta
	return nil
}

func (r *fakeBatchRepo) Availability(_ context.Context, productID, branchID id.ID) (int64, error) {
	var total int64
	for _, b := range r.batches {
		if b.ProductID == productID && b.BranchID == branchID && b.Quantity > 0 {
			total += b.Quantity
		}
	}
	return total, nil
}

type fakeCatalogRepo struct {
	products map[id.ID]catalog.Product
	branches map[id.ID]catalog.Branch
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products: make(map[id.ID]catalog.Product),
		branches: make(map[id.ID]catalog.Branch),
	}
}

func (r *fakeCatalogRepo) GetProduct(_ context.Context, productID id.ID) (catalog.Product, error) {
	if p, ok := r.products[productID]; ok {
		return p, nil
	}
	return catalog.Product{}, apperror.NewNotFound("product", productID)
}

func (r *fakeCatalogRepo) GetBranch(_ context.Context, branchID id.ID) (catalog.Branch, error) {
	if b, ok := r.branches[branchID]; ok {
		return b, nil
	}
	return catalog.Branch{}, apperror.NewNotFound("branch", branchID)
}

func (r *fakeCatalogRepo) CreateProduct(_ context.Context, product catalog.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *fakeCatalogRepo) CreateBranch(_ context.Context, branch catalog.Branch) error {
	r.branches[branch.ID] = branch
	return nil
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
	sales map[id.ID]*Sale
	lines map[id.ID][]SaleLine
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{
		sales: make(map[id.ID]*Sale),
		lines: make(map[id.ID][]SaleLine),
	}
}

func (r *fakeSaleRepo) Create(_ context.Context, sale *Sale) error {
	copied := *sale
	copied.Lines = nil
	r.sales[sale.ID] = &copied
	return nil
}

func (r *fakeSaleRepo) SaveLines(_ context.Context, lines []SaleLine) error {
	for _, l := range lines {
		r.lines[l.SaleID] = append(r.lines[l.SaleID], l)
	}
	return nil
}

func (r *fakeSaleRepo) GetByID(_ context.Context, saleID id.ID) (*Sale, error) {
	if s, ok := r.sales[saleID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, apperror.NewNotFound("sale", saleID)
}

func (r *fakeSaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *fakeSaleRepo) GetLines(_ context.Context, saleID id.ID) ([]SaleLine, error) {
	return r.lines[saleID], nil
}

func (r *fakeSaleRepo) UpdateStatus(_ context.Context, saleID id.ID, status Status) error {
	s, ok := r.sales[saleID]
	if !ok {
		return apperror.NewNotFound("sale", saleID)
	}
	s.Status = status
	return nil
}

func (r *fakeSaleRepo) List(_ context.Context, filter ListFilter) (*ListResult, error) {
	result := &ListResult{Limit: filter.Limit, Offset: filter.Offset}
	for _, s := range r.sales {
		if s.BranchID == filter.BranchID {
			result.Items = append(result.Items, s)
			result.TotalCount++
		}
	}
	return result, nil
}

// --- fixture ---

type fixture struct {
	service   *Service
	saleRepo  *fakeSaleRepo
	batches   *fakeBatchRepo
	catalog   *fakeCatalogRepo
	movements *fakeMovementRepo

	branchID  id.ID
	productID id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	saleRepo := newFakeSaleRepo()
	batches := newFakeBatchRepo()
	catalogRepo := newFakeCatalogRepo()
	movements := &fakeMovementRepo{}

	branchID := id.New()
	productID := id.New()
	catalogRepo.branches[branchID] = catalog.Branch{ID: branchID, Name: "Main"}
	catalogRepo.products[productID] = catalog.Product{ID: productID, Name: "Paracetamol", BranchID: branchID}

	service := NewService(
		saleRepo, batches, catalogRepo,
		ledger.NewService(movements),
		fakeTxManager{},
		events.NopPublisher{},
		audit.NopRecorder{},
	)

	return &fixture{
		service:   service,
		saleRepo:  saleRepo,
		batches:   batches,
		catalog:   catalogRepo,
		movements: movements,
		branchID:  branchID,
		productID: productID,
	}
}

func (f *fixture) addBatch(t *testing.T, quantity int64, price types.MinorUnits, expiryDays int) inventory.Batch {
	t.Helper()
	var expiry *time.Time
	if expiryDays != 0 {
		e := time.Now().UTC().AddDate(0, 0, expiryDays)
		expiry = &e
	}
	b := inventory.NewBatch(f.productID, f.branchID, "B", quantity, price, expiry)
	return f.batches.add(b)
}

func mustPercent(t *testing.T, v float64) types.Percent {
	t.Helper()
	p, err := types.ParsePercent(v)
	require.NoError(t, err)
	return p
}

// --- tests ---

func TestCreateSale_FEFOSingleBatch(t *testing.T) {
	f := newFixture(t)
	b := f.addBatch(t, 10, types.MinorUnits(500), 30)

	sale, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:      f.branchID,
		PaymentMethod: "cash",
		PaymentStatus: PaymentPaid,
		Lines: []LineInput{
			{ProductID: f.productID, Quantity: 4},
		},
	})
	require.NoError(t, err)

	require.Len(t, sale.Lines, 1)
	assert.Equal(t, b.ID, sale.Lines[0].BatchID)
	assert.Equal(t, int64(4), sale.Lines[0].Quantity)
	assert.Equal(t, types.MinorUnits(2000), sale.Total)
	assert.Equal(t, StatusCompleted, sale.Status)

	// Stock decremented.
	assert.Equal(t, int64(6), f.batches.batches[b.ID].Quantity)

	// One OUT movement referencing the sale.
	require.Len(t, f.movements.movements, 1)
	m := f.movements.movements[0]
	assert.Equal(t, ledger.MovementOut, m.Type)
	assert.Equal(t, int64(4), m.Quantity)
	assert.Equal(t, sale.ID, m.ReferenceID)
}

func TestCreateSale_SplitsAcrossBatchesInExpiryOrder(t *testing.T) {
	f := newFixture(t)
	early := f.addBatch(t, 3, types.MinorUnits(500), 10)
	late := f.addBatch(t, 10, types.MinorUnits(600), 90)

	sale, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:      f.branchID,
		PaymentMethod: "cash",
		PaymentStatus: PaymentPaid,
		Lines: []LineInput{
			{ProductID: f.productID, Quantity: 7},
		},
	})
	require.NoError(t, err)

	require.Len(t, sale.Lines, 2)
	assert.Equal(t, early.ID, sale.Lines[0].BatchID)
	assert.Equal(t, int64(3), sale.Lines[0].Quantity)
	assert.Equal(t, types.MinorUnits(500), sale.Lines[0].UnitPrice)
	assert.Equal(t, late.ID, sale.Lines[1].BatchID)
	assert.Equal(t, int64(4), sale.Lines[1].Quantity)
	assert.Equal(t, types.MinorUnits(600), sale.Lines[1].UnitPrice)

	// Each line priced at its own batch price: 3*5.00 + 4*6.00 = 39.00.
	assert.Equal(t, types.MinorUnits(3900), sale.Total)

	assert.Equal(t, int64(0), f.batches.batches[early.ID].Quantity)
	assert.Equal(t, int64(6), f.batches.batches[late.ID].Quantity)
	assert.Len(t, f.movements.movements, 2)
}

func TestCreateSale_InsufficientStockLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	b := f.addBatch(t, 3, types.MinorUnits(500), 30)

	_, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:      f.branchID,
		PaymentMethod: "cash",
		PaymentStatus: PaymentPaid,
		Lines: []LineInput{
			{ProductID: f.productID, Quantity: 5},
		},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, int64(5), appErr.Details["requested"])
	assert.Equal(t, int64(3), appErr.Details["available"])

	// No partial effects.
	assert.Equal(t, int64(3), f.batches.batches[b.ID].Quantity)
	assert.Empty(t, f.movements.movements)
	assert.Empty(t, f.saleRepo.sales)
}

func TestCreateSale_BatchOverride(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, 10, types.MinorUnits(500), 10)
	late := f.addBatch(t, 10, types.MinorUnits(600), 90)

	sale, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:      f.branchID,
		PaymentMethod: "cash",
		PaymentStatus: PaymentPaid,
		Lines: []LineInput{
			{ProductID: f.productID, BatchID: &late.ID, Quantity: 5},
		},
	})
	require.NoError(t, err)

	require.Len(t, sale.Lines, 1)
	assert.Equal(t, late.ID, sale.Lines[0].BatchID)
	assert.Equal(t, int64(5), f.batches.batches[late.ID].Quantity)
}

func TestCreateSale_ShortOverrideFallsBackToFEFO(t *testing.T) {
	f := newFixture(t)
	short := f.addBatch(t, 2, types.MinorUnits(500), 90)
	early := f.addBatch(t, 10, types.MinorUnits(500), 10)

	sale, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:      f.branchID,
		PaymentMethod: "cash",
		PaymentStatus: PaymentPaid,
		Lines: []LineInput{
			{ProductID: f.productID, BatchID: &short.ID, Quantity: 5},
		},
	})
	require.NoError(t, err)

	// Override cannot cover 5 units, so FEFO picks the earliest batch.
	require.Len(t, sale.Lines, 1)
	assert.Equal(t, early.ID, sale.Lines[0].BatchID)
	assert.Equal(t, int64(2), f.batches.batches[short.ID].Quantity)
}

func TestCreateSale_SameProductTwiceCannotOversell(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, 6, types.MinorUnits(500), 30)

	_, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:      f.branchID,
		PaymentMethod: "cash",
		PaymentStatus: PaymentPaid,
		Lines: []LineInput{
			{ProductID: f.productID, Quantity: 4},
			{ProductID: f.productID, Quantity: 4},
		},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
}

func TestCreateSale_DiscountComposition(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, 10, types.MinorUnits(10000), 30)

	sale, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:        f.branchID,
		PaymentMethod:   "card",
		PaymentStatus:   PaymentPaid,
		DiscountPercent: mustPercent(t, 5),
		Lines: []LineInput{
			{ProductID: f.productID, Quantity: 5, DiscountPercent: mustPercent(t, 10)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "450.00", sale.Subtotal.String())
	assert.Equal(t, "22.50", sale.DiscountAmount.String())
	assert.Equal(t, "427.50", sale.Total.String())
}

func TestCreateSale_Validation(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, 10, types.MinorUnits(500), 30)

	cases := []struct {
		name string
		in   CreateSaleInput
		code string
	}{
		{
			name: "missing branch",
			in: CreateSaleInput{
				PaymentMethod: "cash",
				PaymentStatus: PaymentPaid,
				Lines:         []LineInput{{ProductID: f.productID, Quantity: 1}},
			},
			code: apperror.CodeBranchRequired,
		},
		{
			name: "no lines",
			in: CreateSaleInput{
				BranchID:      f.branchID,
				PaymentMethod: "cash",
				PaymentStatus: PaymentPaid,
			},
			code: apperror.CodeValidation,
		},
		{
			name: "zero quantity",
			in: CreateSaleInput{
				BranchID:      f.branchID,
				PaymentMethod: "cash",
				PaymentStatus: PaymentPaid,
				Lines:         []LineInput{{ProductID: f.productID, Quantity: 0}},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "unknown payment status",
			in: CreateSaleInput{
				BranchID:      f.branchID,
				PaymentMethod: "cash",
				PaymentStatus: PaymentStatus("MAYBE"),
				Lines:         []LineInput{{ProductID: f.productID, Quantity: 1}},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "unknown product",
			in: CreateSaleInput{
				BranchID:      f.branchID,
				PaymentMethod: "cash",
				PaymentStatus: PaymentPaid,
				Lines:         []LineInput{{ProductID: id.New(), Quantity: 1}},
			},
			code: apperror.CodeNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.CreateSale(context.Background(), tc.in)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, tc.code), "expected %s, got %v", tc.code, err)
		})
	}
}

func TestCreateSale_ExpiredBatchSkipped(t *testing.T) {
	f := newFixture(t)
	expired := f.addBatch(t, 100, types.MinorUnits(500), -1)
	good := f.addBatch(t, 5, types.MinorUnits(500), 30)

	sale, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:      f.branchID,
		PaymentMethod: "cash",
		PaymentStatus: PaymentPaid,
		Lines: []LineInput{
			{ProductID: f.productID, Quantity: 5},
		},
	})
	require.NoError(t, err)

	require.Len(t, sale.Lines, 1)
	assert.Equal(t, good.ID, sale.Lines[0].BatchID)
	assert.Equal(t, int64(100), f.batches.batches[expired.ID].Quantity)
}

func TestGetSale_IncludesLines(t *testing.T) {
	f := newFixture(t)
	f.addBatch(t, 10, types.MinorUnits(500), 30)

	created, err := f.service.CreateSale(context.Background(), CreateSaleInput{
		BranchID:      f.branchID,
		PaymentMethod: "cash",
		PaymentStatus: PaymentPaid,
		Lines:         []LineInput{{ProductID: f.productID, Quantity: 2}},
	})
	require.NoError(t, err)

	got, err := f.service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(2), got.Lines[0].Quantity)
}

func TestListSales_RequiresBranch(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.List(context.Background(), ListFilter{})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeBranchRequired))
}

func TestListSales_LimitNormalization(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default", limit: 0, want: 50},
		{name: "kept", limit: 20, want: 20},
		{name: "clamped to cap", limit: 500, want: 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := f.service.List(context.Background(), ListFilter{
				BranchID: f.branchID,
				Limit:    tc.limit,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Limit)
		})
	}
}
