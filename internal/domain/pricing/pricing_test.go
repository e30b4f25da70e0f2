package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name  string
		price decimal.Decimal
		qty   int
		want  decimal.Decimal
	}{
		{name: "whole price", price: d("500"), qty: 2, want: d("1000")},
		{name: "fractional price is floored first", price: d("499.99"), qty: 3, want: d("1497")},
		{name: "zero quantity", price: d("500"), qty: 0, want: decimal.Zero},
		{name: "negative quantity", price: d("500"), qty: -2, want: decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(tt.price, tt.qty)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestSubtotal_Idempotent(t *testing.T) {
	lines := []Line{
		{UnitPrice: d("350"), Quantity: 1},
		{UnitPrice: d("1200.5"), Quantity: 2},
		{UnitPrice: d("90"), Quantity: 5},
	}

	var independent decimal.Decimal
	for _, l := range lines {
		independent = independent.Add(l.UnitPrice.Floor().Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	first := Subtotal(lines)
	second := Subtotal(lines)
	assert.True(t, independent.Equal(first))
	assert.True(t, first.Equal(second))
	assert.True(t, d("3200").Equal(first))
}

func TestSubtotal_Empty(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(Subtotal(nil)))
}

func TestDeliveryFee(t *testing.T) {
	p := DefaultPolicy()

	fee, err := p.DeliveryFee("Dhaka", d("1000"))
	require.NoError(t, err)
	assert.True(t, d("60").Equal(fee))

	fee, err = p.DeliveryFee("dhaka", d("1000"))
	require.NoError(t, err)
	assert.True(t, d("60").Equal(fee), "district match is case-insensitive")

	fee, err = p.DeliveryFee("Sylhet", d("1000"))
	require.NoError(t, err)
	assert.True(t, d("120").Equal(fee))

	_, err = p.DeliveryFee("", d("1000"))
	require.ErrorIs(t, err, ErrDistrictRequired)

	_, err = p.DeliveryFee("Atlantis", d("1000"))
	require.ErrorIs(t, err, ErrUnknownDistrict)
}

func TestDeliveryFee_FreeThreshold(t *testing.T) {
	p := DefaultPolicy()
	p.FreeDeliveryThreshold = d("3000")

	fee, err := p.DeliveryFee("Khulna", d("2999"))
	require.NoError(t, err)
	assert.True(t, d("120").Equal(fee))

	fee, err = p.DeliveryFee("Khulna", d("3000"))
	require.NoError(t, err)
	assert.True(t, fee.IsZero(), "subtotal meeting the threshold ships free")

	fee, err = p.DeliveryFee("Khulna", d("2999.99"))
	require.NoError(t, err)
	assert.True(t, d("120").Equal(fee), "subtotal is floored before comparison")
}

func TestAdvanceSplit(t *testing.T) {
	tests := []struct {
		name          string
		total         decimal.Decimal
		advance       decimal.Decimal
		wantAdvance   decimal.Decimal
		wantRemaining decimal.Decimal
	}{
		{name: "partial", total: d("1060"), advance: d("500"), wantAdvance: d("500"), wantRemaining: d("560")},
		{name: "exact", total: d("1060"), advance: d("1060"), wantAdvance: d("1060"), wantRemaining: decimal.Zero},
		{name: "over payment capped", total: d("1060"), advance: d("2000"), wantAdvance: d("1060"), wantRemaining: decimal.Zero},
		{name: "no advance", total: d("1060"), advance: decimal.Zero, wantAdvance: decimal.Zero, wantRemaining: d("1060")},
		{name: "negative advance", total: d("100"), advance: d("-5"), wantAdvance: decimal.Zero, wantRemaining: d("100")},
		{name: "fractions floored", total: d("100.9"), advance: d("40.5"), wantAdvance: d("40"), wantRemaining: d("60")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvanceSplit(tt.total, tt.advance)
			assert.True(t, tt.wantAdvance.Equal(got.Advance), "advance: want %s, got %s", tt.wantAdvance, got.Advance)
			assert.True(t, tt.wantRemaining.Equal(got.Remaining), "remaining: want %s, got %s", tt.wantRemaining, got.Remaining)
		})
	}
}

func TestQuote(t *testing.T) {
	p := DefaultPolicy()
	lines := []Line{{UnitPrice: d("500"), Quantity: 2}}

	t.Run("cash on delivery", func(t *testing.T) {
		b, err := p.Quote(lines, "Dhaka", false, MethodCashOnDelivery)
		require.NoError(t, err)
		assert.True(t, d("1000").Equal(b.Subtotal))
		assert.True(t, d("60").Equal(b.DeliveryFee))
		assert.True(t, d("1060").Equal(b.Total))
		assert.True(t, b.Advance.IsZero())
		assert.True(t, d("1060").Equal(b.Remaining))
	})

	t.Run("wallet prepays delivery", func(t *testing.T) {
		b, err := p.Quote(lines, "Rajshahi", false, "bkash")
		require.NoError(t, err)
		assert.True(t, d("120").Equal(b.Advance))
		assert.True(t, d("1000").Equal(b.Remaining))
	})

	t.Run("customized prepays percentage", func(t *testing.T) {
		b, err := p.Quote([]Line{{UnitPrice: d("333"), Quantity: 1}}, "Dhaka", true, "nagad")
		require.NoError(t, err)
		// total 393, half floored.
		assert.True(t, d("196").Equal(b.Advance))
		assert.True(t, b.Subtotal.Add(b.DeliveryFee).Sub(b.Advance).Equal(b.Remaining))
	})

	t.Run("unknown district", func(t *testing.T) {
		_, err := p.Quote(lines, "Nowhere", false, MethodCashOnDelivery)
		require.ErrorIs(t, err, ErrUnknownDistrict)
	})
}

func TestRegions(t *testing.T) {
	regions := DefaultPolicy().Regions()
	require.Len(t, regions, 64)

	var homes int
	for _, r := range regions {
		if r.Home {
			homes++
			assert.Equal(t, "Dhaka", r.District)
			assert.True(t, d("60").Equal(r.Fee))
		}
	}
	assert.Equal(t, 1, homes)
}

func TestConfig(t *testing.T) {
	cfg := Config{HomeDistrict: "Dhaka", HomeFee: 60, OutsideFee: 120, AdvancePercent: 50}
	require.NoError(t, cfg.Validate())

	p := cfg.Policy()
	assert.True(t, p.HomeFee.Equal(d("60")))
	assert.True(t, p.OutsideFee.Equal(d("120")))
	assert.Equal(t, 50, p.AdvancePercent)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "advance above 100", mutate: func(c *Config) { c.AdvancePercent = 101 }},
		{name: "negative advance", mutate: func(c *Config) { c.AdvancePercent = -1 }},
		{name: "negative fee", mutate: func(c *Config) { c.OutsideFee = -5 }},
		{name: "negative threshold", mutate: func(c *Config) { c.FreeDeliveryThreshold = -1 }},
		{name: "unknown home district", mutate: func(c *Config) { c.HomeDistrict = "Atlantis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := cfg
			tt.mutate(&bad)
			assert.Error(t, bad.Validate())
		})
	}
}
