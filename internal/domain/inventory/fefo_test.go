package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testBatch(t *testing.T, quantity int64, expiry *time.Time, createdAt time.Time) Batch {
	t.Helper()
	return Batch{
		ID:           id.New(),
		ProductID:    id.New(),
		BranchID:     id.New(),
		BatchNo:      "B",
		Quantity:     quantity,
		SellingPrice: types.MinorUnits(1000),
		ExpireDate:   expiry,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func expiryAt(days int) *time.Time {
	t := testNow.AddDate(0, 0, days)
	return &t
}

func TestRankFEFO_EarliestExpiryFirst(t *testing.T) {
	late := testBatch(t, 10, expiryAt(90), testNow.Add(-time.Hour))
	early := testBatch(t, 10, expiryAt(30), testNow.Add(-time.Minute))

	ranked := RankFEFO([]Batch{late, early}, testNow)

	require.Len(t, ranked, 2)
	assert.Equal(t, early.ID, ranked[0].ID)
	assert.Equal(t, late.ID, ranked[1].ID)
}

func TestRankFEFO_NilExpiryLast(t *testing.T) {
	noExpiry := testBatch(t, 10, nil, testNow.Add(-time.Hour))
	dated := testBatch(t, 10, expiryAt(365), testNow)

	ranked := RankFEFO([]Batch{noExpiry, dated}, testNow)

	require.Len(t, ranked, 2)
	assert.Equal(t, dated.ID, ranked[0].ID)
	assert.Equal(t, noExpiry.ID, ranked[1].ID)
}

func TestRankFEFO_TieBreakByCreation(t *testing.T) {
	expiry := expiryAt(30)
	older := testBatch(t, 10, expiry, testNow.Add(-2*time.Hour))
	newer := testBatch(t, 10, expiry, testNow.Add(-time.Hour))

	ranked := RankFEFO([]Batch{newer, older}, testNow)

	require.Len(t, ranked, 2)
	assert.Equal(t, older.ID, ranked[0].ID)
	assert.Equal(t, newer.ID, ranked[1].ID)
}

func TestRankFEFO_Deterministic(t *testing.T) {
	batches := []Batch{
		testBatch(t, 5, expiryAt(10), testNow.Add(-time.Hour)),
		testBatch(t, 5, expiryAt(10), testNow.Add(-time.Hour)),
		testBatch(t, 5, nil, testNow),
		testBatch(t, 5, expiryAt(1), testNow),
	}

	first := RankFEFO(batches, testNow)
	second := RankFEFO(batches, testNow)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestRankFEFO_SkipsExpiredAndEmpty(t *testing.T) {
	expired := testBatch(t, 10, expiryAt(-1), testNow.Add(-time.Hour))
	empty := testBatch(t, 0, expiryAt(30), testNow.Add(-time.Hour))
	good := testBatch(t, 10, expiryAt(30), testNow)

	ranked := RankFEFO([]Batch{expired, empty, good}, testNow)

	require.Len(t, ranked, 1)
	assert.Equal(t, good.ID, ranked[0].ID)
}

func TestAllocate_SingleBatch(t *testing.T) {
	b := testBatch(t, 10, expiryAt(30), testNow)

	result := Allocate([]Batch{b}, 4, testNow)

	require.True(t, result.FullyAllocated())
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, int64(4), result.Allocations[0].Quantity)
	assert.Equal(t, b.ID, result.Allocations[0].Batch.ID)
}

func TestAllocate_SplitsAcrossBatches(t *testing.T) {
	first := testBatch(t, 3, expiryAt(10), testNow.Add(-time.Hour))
	second := testBatch(t, 10, expiryAt(60), testNow)

	result := Allocate([]Batch{second, first}, 7, testNow)

	require.True(t, result.FullyAllocated())
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, first.ID, result.Allocations[0].Batch.ID)
	assert.Equal(t, int64(3), result.Allocations[0].Quantity)
	assert.Equal(t, second.ID, result.Allocations[1].Batch.ID)
	assert.Equal(t, int64(4), result.Allocations[1].Quantity)
}

func TestAllocate_Shortfall(t *testing.T) {
	b := testBatch(t, 3, expiryAt(10), testNow)

	result := Allocate([]Batch{b}, 5, testNow)

	assert.False(t, result.FullyAllocated())
	assert.Equal(t, int64(3), result.Total)
	assert.Equal(t, int64(2), result.Shortfall)
}

func TestAllocate_ExpiredStockNotCounted(t *testing.T) {
	expired := testBatch(t, 100, expiryAt(-1), testNow)
	good := testBatch(t, 2, expiryAt(30), testNow)

	result := Allocate([]Batch{expired, good}, 5, testNow)

	assert.False(t, result.FullyAllocated())
	assert.Equal(t, int64(2), result.Total)
}

func TestAllocateFromBatch_Override(t *testing.T) {
	early := testBatch(t, 10, expiryAt(10), testNow)
	late := testBatch(t, 10, expiryAt(90), testNow)

	result, ok := AllocateFromBatch([]Batch{early, late}, late.ID, 5, testNow)

	require.True(t, ok)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, late.ID, result.Allocations[0].Batch.ID)
	assert.Equal(t, int64(5), result.Allocations[0].Quantity)
}

func TestAllocateFromBatch_NeverSplits(t *testing.T) {
	short := testBatch(t, 3, expiryAt(10), testNow)
	other := testBatch(t, 10, expiryAt(90), testNow)

	_, ok := AllocateFromBatch([]Batch{short, other}, short.ID, 5, testNow)

	assert.False(t, ok)
}

func TestAllocateFromBatch_UnknownOrExpired(t *testing.T) {
	expired := testBatch(t, 10, expiryAt(-1), testNow)

	_, ok := AllocateFromBatch([]Batch{expired}, expired.ID, 5, testNow)
	assert.False(t, ok)

	_, ok = AllocateFromBatch([]Batch{expired}, id.New(), 5, testNow)
	assert.False(t, ok)
}

func TestBatch_Available(t *testing.T) {
	b := testBatch(t, 1, expiryAt(1), testNow)
	assert.True(t, b.Available(testNow))

	b.Quantity = 0
	assert.False(t, b.Available(testNow))

	b.Quantity = 1
	b.ExpireDate = expiryAt(-1)
	assert.False(t, b.Available(testNow))

	b.ExpireDate = nil
	assert.True(t, b.Available(testNow))
}
