// Package types provides common fixed-point value types.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnits is a monetary value in minor currency units (cents), i.e. a
// fixed-point amount with 2 decimal places.
//
// Rationale:
// - Matches Postgres BIGINT storage without floating point errors
// - All intermediate discount math goes through decimal.Decimal and is
//   rounded half-up back to cents, so repeated computation of the same
//   inputs never drifts
type MinorUnits int64

const minorScale int64 = 100

// NewMinorUnitsFromFloat64 converts a major-unit amount (e.g. 12.34) to cents.
// Prefer exact integer construction where possible.
func NewMinorUnitsFromFloat64(v float64) MinorUnits {
	return MinorUnits(math.Round(v * float64(minorScale)))
}

// NewMinorUnitsFromDecimal converts a decimal major-unit amount to cents,
// rounding half-up.
func NewMinorUnitsFromDecimal(d decimal.Decimal) MinorUnits {
	return MinorUnits(d.Mul(decimal.NewFromInt(minorScale)).Round(0).IntPart())
}

func (m MinorUnits) Int64() int64 { return int64(m) }

func (m MinorUnits) Float64() float64 { return float64(m) / float64(minorScale) }

// Decimal returns the major-unit amount as an exact decimal.
func (m MinorUnits) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(minorScale))
}

func (m MinorUnits) IsZero() bool     { return m == 0 }
func (m MinorUnits) IsPositive() bool { return m > 0 }
func (m MinorUnits) IsNegative() bool { return m < 0 }
func (m MinorUnits) Neg() MinorUnits  { return -m }

func (m MinorUnits) Abs() MinorUnits {
	if m < 0 {
		return -m
	}
	return m
}

func (m MinorUnits) Add(other MinorUnits) MinorUnits { return m + other }
func (m MinorUnits) Sub(other MinorUnits) MinorUnits { return m - other }

// MulInt multiplies the amount by an integer quantity.
func (m MinorUnits) MulInt(n int64) MinorUnits { return MinorUnits(int64(m) * n) }

// ProRata returns the share of the amount corresponding to part/whole units,
// rounded half-up to cents. Used for partial refunds of discounted lines.
func (m MinorUnits) ProRata(part, whole int64) MinorUnits {
	if whole == 0 {
		return 0
	}
	d := decimal.NewFromInt(int64(m)).
		Mul(decimal.NewFromInt(part)).
		Div(decimal.NewFromInt(whole))
	return MinorUnits(d.Round(0).IntPart())
}

// String returns a decimal string with 2 fractional digits.
func (m MinorUnits) String() string {
	neg := m < 0
	v := m
	if neg {
		v = -v
	}
	intPart := int64(v) / minorScale
	frac := int64(v) % minorScale
	if neg {
		return fmt.Sprintf("-%d.%02d", intPart, frac)
	}
	return fmt.Sprintf("%d.%02d", intPart, frac)
}

// MarshalJSON encodes MinorUnits as JSON number (not string), preserving 2 digits.
func (m MinorUnits) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to fixed-point (2 digits).
func (m *MinorUnits) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := parseMinorUnitsString(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}

	parsed, err := parseMinorUnitsString(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func parseMinorUnitsString(s string) (MinorUnits, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	// Exponent form is not part of the wire contract; accept it leniently.
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount: %w", err)
		}
		return NewMinorUnitsFromFloat64(f), nil
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = strings.TrimPrefix(s, "-")
	} else if strings.HasPrefix(s, "+") {
		s = strings.TrimPrefix(s, "+")
	}

	parts := strings.SplitN(s, ".", 2)
	intPartStr := parts[0]
	fracStr := ""
	if len(parts) == 2 {
		fracStr = parts[1]
	}

	if intPartStr == "" {
		intPartStr = "0"
	}
	intPart, err := strconv.ParseInt(intPartStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount integer part: %w", err)
	}

	// Normalize fractional part to 2 digits (pad right, truncate extra digits).
	if len(fracStr) > 2 {
		fracStr = fracStr[:2]
	}
	for len(fracStr) < 2 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount fractional part: %w", err)
	}

	return MinorUnits(sign * (intPart*minorScale + frac)), nil
}
