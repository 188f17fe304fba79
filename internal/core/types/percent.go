package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a discount percentage in [0,100].
// Backed by decimal to keep 22.5% of 450.00 exact.
type Percent struct {
	value decimal.Decimal
}

// ParsePercent validates and constructs a Percent.
// Values outside [0,100] are rejected; callers map the error to InvalidDiscount.
func ParsePercent(v float64) (Percent, error) {
	d := decimal.NewFromFloat(v)
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return Percent{}, fmt.Errorf("percentage %v outside [0,100]", v)
	}
	return Percent{value: d}, nil
}

// ClampPercent constructs a Percent, clamping out-of-range values to [0,100].
func ClampPercent(v float64) Percent {
	d := decimal.NewFromFloat(v)
	if d.IsNegative() {
		d = decimal.Zero
	}
	if d.GreaterThan(decimal.NewFromInt(100)) {
		d = decimal.NewFromInt(100)
	}
	return Percent{value: d}
}

// ZeroPercent is the absent-discount value.
func ZeroPercent() Percent {
	return Percent{value: decimal.Zero}
}

func (p Percent) IsZero() bool { return p.value.IsZero() }

func (p Percent) Float64() float64 {
	f, _ := p.value.Float64()
	return f
}

func (p Percent) String() string { return p.value.String() }

// ApplyTo returns p% of the amount, rounded half-up to cents.
func (p Percent) ApplyTo(m MinorUnits) MinorUnits {
	if p.value.IsZero() || m == 0 {
		return 0
	}
	d := decimal.NewFromInt(int64(m)).
		Mul(p.value).
		Div(decimal.NewFromInt(100))
	return MinorUnits(d.Round(0).IntPart())
}
