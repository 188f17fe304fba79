// Package pricing computes sale line prices and order totals.
// All functions are pure; monetary values are fixed-point cents and
// percentage math goes through decimal arithmetic, so repeated computation
// of the same inputs yields identical results.
package pricing

import (
	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
)

// LinePrice is the priced outcome of one sale line.
// UnitPrice is snapshotted from the batch at call time and never recomputed,
// even if the batch's list price changes afterwards.
type LinePrice struct {
	UnitPrice       types.MinorUnits
	Quantity        int64
	DiscountPercent types.Percent
	Subtotal        types.MinorUnits
	DiscountAmount  types.MinorUnits
	Total           types.MinorUnits
}

// PriceLine prices a quantity drawn from a batch at the batch's unit price,
// applying an optional line-level discount percentage. The percentage is
// clamped to [0,100]; API-level validation rejects out-of-range input
// earlier, the clamp here is the last line of defense.
func PriceLine(unitPrice types.MinorUnits, quantity int64, discount types.Percent) (LinePrice, error) {
	if quantity <= 0 {
		return LinePrice{}, apperror.NewValidation("quantity must be a positive integer").
			WithDetail("quantity", quantity)
	}

	subtotal := unitPrice.MulInt(quantity)
	discountAmount := discount.ApplyTo(subtotal)

	return LinePrice{
		UnitPrice:       unitPrice,
		Quantity:        quantity,
		DiscountPercent: discount,
		Subtotal:        subtotal,
		DiscountAmount:  discountAmount,
		Total:           subtotal.Sub(discountAmount),
	}, nil
}

// Totals aggregates priced lines at the order level.
type Totals struct {
	Subtotal       types.MinorUnits
	DiscountAmount types.MinorUnits
	Total          types.MinorUnits
}

// ComputeTotals sums line totals and applies the order-level discount on the
// discounted line subtotal. Discounts compose multiplicatively across
// levels, not additively.
func ComputeTotals(lineTotals []types.MinorUnits, orderDiscount types.Percent) Totals {
	var subtotal types.MinorUnits
	for _, t := range lineTotals {
		subtotal = subtotal.Add(t)
	}

	discountAmount := orderDiscount.ApplyTo(subtotal)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Total:          subtotal.Sub(discountAmount),
	}
}
