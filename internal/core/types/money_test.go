package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnits_String(t *testing.T) {
	assert.Equal(t, "450.00", MinorUnits(45000).String())
	assert.Equal(t, "0.05", MinorUnits(5).String())
	assert.Equal(t, "-22.50", MinorUnits(-2250).String())
	assert.Equal(t, "0.00", MinorUnits(0).String())
}

func TestMinorUnits_JSON(t *testing.T) {
	data, err := json.Marshal(MinorUnits(42750))
	require.NoError(t, err)
	assert.Equal(t, "427.50", string(data))

	var m MinorUnits
	require.NoError(t, json.Unmarshal([]byte("427.50"), &m))
	assert.Equal(t, MinorUnits(42750), m)

	require.NoError(t, json.Unmarshal([]byte(`"5.5"`), &m))
	assert.Equal(t, MinorUnits(550), m)
}

func TestMinorUnits_ProRata(t *testing.T) {
	// 3 of 5 units of a 450.00 line.
	assert.Equal(t, MinorUnits(27000), MinorUnits(45000).ProRata(3, 5))

	// Rounding half-up: 100.00 split over 3 units, 1 unit = 33.33.
	assert.Equal(t, MinorUnits(3333), MinorUnits(10000).ProRata(1, 3))

	assert.Equal(t, MinorUnits(0), MinorUnits(45000).ProRata(1, 0))
}

func TestMinorUnits_ProRataCumulative(t *testing.T) {
	// Refunding a line unit by unit must sum to exactly the line total.
	total := MinorUnits(10000)
	var whole int64 = 3

	var sum MinorUnits
	var already int64
	for i := int64(0); i < whole; i++ {
		share := total.ProRata(already+1, whole).Sub(total.ProRata(already, whole))
		sum = sum.Add(share)
		already++
	}
	assert.Equal(t, total, sum)
}

func TestPercent_Parse(t *testing.T) {
	p, err := ParsePercent(10)
	require.NoError(t, err)
	assert.Equal(t, float64(10), p.Float64())

	_, err = ParsePercent(-1)
	assert.Error(t, err)

	_, err = ParsePercent(100.01)
	assert.Error(t, err)

	p, err = ParsePercent(0)
	require.NoError(t, err)
	assert.True(t, p.IsZero())

	_, err = ParsePercent(100)
	assert.NoError(t, err)
}

func TestPercent_Clamp(t *testing.T) {
	assert.Equal(t, float64(0), ClampPercent(-5).Float64())
	assert.Equal(t, float64(100), ClampPercent(120).Float64())
	assert.Equal(t, float64(22.5), ClampPercent(22.5).Float64())
}

func TestPercent_ApplyTo(t *testing.T) {
	ten, err := ParsePercent(10)
	require.NoError(t, err)
	assert.Equal(t, MinorUnits(5000), ten.ApplyTo(MinorUnits(50000)))

	five, err := ParsePercent(5)
	require.NoError(t, err)
	assert.Equal(t, MinorUnits(2250), five.ApplyTo(MinorUnits(45000)))

	// Half-up to cents: 3.33% of 1.00 = 0.0333 -> 0.03.
	odd, err := ParsePercent(3.33)
	require.NoError(t, err)
	assert.Equal(t, MinorUnits(3), odd.ApplyTo(MinorUnits(100)))

	assert.Equal(t, MinorUnits(0), ZeroPercent().ApplyTo(MinorUnits(99999)))
}
