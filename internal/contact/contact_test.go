package contact

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

func TestLink(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"01712345678", "https://wa.me/8801712345678"},
		{"+880 1712-345678", "https://wa.me/8801712345678"},
		{"8801712345678", "https://wa.me/8801712345678"},
		{"+1 (555) 010-0000", "https://wa.me/15550100000"},
	}
	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			got, err := Link(tt.number, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLink_EncodesText(t *testing.T) {
	got, err := Link("01712345678", "Order TRK-1 & more?\nThanks")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "Order TRK-1 & more?\nThanks", u.Query().Get("text"))
}

func TestLink_InvalidNumber(t *testing.T) {
	_, err := Link("call us", "hi")
	require.ErrorIs(t, err, ErrInvalidNumber)
}

func TestOrderMessage(t *testing.T) {
	o := &order.Order{
		TrackingID: "TRK-ABCDEF0123",
		Items: []order.Item{
			{Name: "Mug", UnitPrice: decimal.NewFromInt(500), Quantity: 2},
			{Name: "T-shirt", UnitPrice: decimal.NewFromInt(450), Quantity: 1,
				Customization: &cart.Customization{CustomText: "Team A"}},
		},
		Subtotal:       decimal.NewFromInt(1450),
		DeliveryFee:    decimal.NewFromInt(120),
		AdvancePayment: decimal.NewFromInt(785),
		PaymentInfo:    order.PaymentInfo{Method: order.PaymentBkash, TransactionRef: "TX1"},
	}

	msg := OrderMessage(o, "https://shop.example/track/TRK-ABCDEF0123")

	assert.True(t, strings.HasPrefix(msg, "Hi! I placed order TRK-ABCDEF0123."))
	assert.Contains(t, msg, "- Mug x2 = 1000")
	assert.Contains(t, msg, `text: "Team A"`)
	assert.Contains(t, msg, "Total: 1570 (delivery 120)")
	assert.Contains(t, msg, "Advance paid: 785 via bkash (ref TX1)")
	assert.Contains(t, msg, "Due on delivery: 785")
	assert.Contains(t, msg, "Track: https://shop.example/track/TRK-ABCDEF0123")
}

func TestProductMessage(t *testing.T) {
	msg := ProductMessage(product.Product{Name: "Mug", Price: decimal.NewFromInt(500)}, "")
	assert.Equal(t, "Hi! I'm interested in Mug (500).", msg)
}
