package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/domain/audit"
	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/events"
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// capturingBatchRepo records the filter the handler builds from the query.
type capturingBatchRepo struct {
	lastFilter inventory.BatchFilter
}

func (r *capturingBatchRepo) Create(_ context.Context, _ *inventory.Batch) error { return nil }

func (r *capturingBatchRepo) GetByID(_ context.Context, batchID id.ID) (inventory.Batch, error) {
	return inventory.Batch{}, apperror.NewNotFound("batch", batchID)
}

func (r *capturingBatchRepo) ListForAllocation(_ context.Context, _, _ id.ID) ([]inventory.Batch, error) {
	return nil, nil
}

func (r *capturingBatchRepo) List(_ context.Context, filter inventory.BatchFilter) ([]inventory.Batch, error) {
	r.lastFilter = filter
	return nil, nil
}

func (r *capturingBatchRepo) AdjustQuantity(_ context.Context, _ id.ID, _ int64) error { return nil }

func (r *capturingBatchRepo) Availability(_ context.Context, _, _ id.ID) (int64, error) {
	return 0, nil
}

type stubCatalogRepo struct{}

func (stubCatalogRepo) GetProduct(_ context.Context, productID id.ID) (catalog.Product, error) {
	return catalog.Product{ID: productID}, nil
}

func (stubCatalogRepo) GetBranch(_ context.Context, branchID id.ID) (catalog.Branch, error) {
	return catalog.Branch{ID: branchID}, nil
}

func (stubCatalogRepo) CreateProduct(_ context.Context, _ catalog.Product) error { return nil }

func (stubCatalogRepo) CreateBranch(_ context.Context, _ catalog.Branch) error { return nil }

type stubMovementRepo struct{}

func (stubMovementRepo) Append(_ context.Context, _ []ledger.Movement) error { return nil }

func (stubMovementRepo) List(_ context.Context, _ ledger.Filter) ([]ledger.Movement, error) {
	return nil, nil
}

func (stubMovementRepo) ListByReference(_ context.Context, _ id.ID) ([]ledger.Movement, error) {
	return nil, nil
}

func newStockRouter(repo inventory.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)

	ledgerService := ledger.NewService(stubMovementRepo{})
	inventoryService := inventory.NewService(
		repo, stubCatalogRepo{}, ledgerService,
		fakeTxManager{}, events.NopPublisher{}, audit.NopRecorder{},
	)

	router := gin.New()
	handler := NewStockHandler(NewBaseHandler(), inventoryService, ledgerService, nil)
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestListBatches_QueryFlags(t *testing.T) {
	branchID := id.New()

	cases := []struct {
		name        string
		query       string
		wantExpired bool
		wantEmpty   bool
	}{
		{
			name:        "defaults exclude expired and empty",
			query:       "",
			wantExpired: true,
			wantEmpty:   true,
		},
		{
			name:        "excludeExpired=false includes expired",
			query:       "&excludeExpired=false",
			wantExpired: false,
			wantEmpty:   true,
		},
		{
			name:        "excludeEmpty=false includes empty",
			query:       "&excludeEmpty=false",
			wantExpired: true,
			wantEmpty:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &capturingBatchRepo{}
			router := newStockRouter(repo)

			url := "/api/v1/stock/batches?branchId=" + branchID.String() + tc.query
			req := httptest.NewRequest(http.MethodGet, url, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, branchID, repo.lastFilter.BranchID)
			assert.Equal(t, tc.wantExpired, repo.lastFilter.ExcludeExpired)
			assert.Equal(t, tc.wantEmpty, repo.lastFilter.ExcludeEmpty)
		})
	}
}
