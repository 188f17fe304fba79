package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/internal/core/types"
)

func percent(t *testing.T, v float64) types.Percent {
	t.Helper()
	p, err := types.ParsePercent(v)
	require.NoError(t, err)
	return p
}

func TestPriceLine_NoDiscount(t *testing.T) {
	priced, err := PriceLine(types.MinorUnits(10000), 5, types.ZeroPercent())
	require.NoError(t, err)

	assert.Equal(t, types.MinorUnits(50000), priced.Subtotal)
	assert.Equal(t, types.MinorUnits(0), priced.DiscountAmount)
	assert.Equal(t, types.MinorUnits(50000), priced.Total)
}

func TestPriceLine_WithDiscount(t *testing.T) {
	// 5 units at 100.00 with 10% line discount.
	priced, err := PriceLine(types.MinorUnits(10000), 5, percent(t, 10))
	require.NoError(t, err)

	assert.Equal(t, types.MinorUnits(50000), priced.Subtotal)
	assert.Equal(t, types.MinorUnits(5000), priced.DiscountAmount)
	assert.Equal(t, types.MinorUnits(45000), priced.Total)
}

func TestPriceLine_RejectsNonPositiveQuantity(t *testing.T) {
	_, err := PriceLine(types.MinorUnits(10000), 0, types.ZeroPercent())
	assert.Error(t, err)

	_, err = PriceLine(types.MinorUnits(10000), -3, types.ZeroPercent())
	assert.Error(t, err)
}

func TestPriceLine_FullDiscount(t *testing.T) {
	priced, err := PriceLine(types.MinorUnits(10000), 2, percent(t, 100))
	require.NoError(t, err)

	assert.Equal(t, types.MinorUnits(20000), priced.Subtotal)
	assert.Equal(t, types.MinorUnits(20000), priced.DiscountAmount)
	assert.Equal(t, types.MinorUnits(0), priced.Total)
}

func TestComputeTotals_OrderDiscountOnDiscountedSubtotal(t *testing.T) {
	// 5 x 100.00 with 10% line discount gives 450.00; 5% order discount
	// applies on 450.00, not the raw 500.00.
	priced, err := PriceLine(types.MinorUnits(10000), 5, percent(t, 10))
	require.NoError(t, err)

	totals := ComputeTotals([]types.MinorUnits{priced.Total}, percent(t, 5))

	assert.Equal(t, "450.00", totals.Subtotal.String())
	assert.Equal(t, "22.50", totals.DiscountAmount.String())
	assert.Equal(t, "427.50", totals.Total.String())
}

func TestComputeTotals_MultipleLines(t *testing.T) {
	totals := ComputeTotals([]types.MinorUnits{45000, 12000, 825}, types.ZeroPercent())

	assert.Equal(t, types.MinorUnits(57825), totals.Subtotal)
	assert.Equal(t, types.MinorUnits(0), totals.DiscountAmount)
	assert.Equal(t, types.MinorUnits(57825), totals.Total)
}

func TestComputeTotals_Deterministic(t *testing.T) {
	lines := []types.MinorUnits{45000, 12345, 999}
	first := ComputeTotals(lines, percent(t, 7.5))
	second := ComputeTotals(lines, percent(t, 7.5))

	assert.Equal(t, first, second)
}
