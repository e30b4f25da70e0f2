package tracking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

// Step is one stage of the delivery progress bar.
type Step struct {
	Status order.Status `json:"status"`
	Label  string       `json:"label"`
	Done   bool         `json:"done"`
}

// View is an order projected for the customer tracking page.
type View struct {
	TrackingID  string          `json:"trackingId"`
	Status      order.Status    `json:"status"`
	Label       string          `json:"label"`
	Category    order.Category  `json:"category"`
	Steps       []Step          `json:"steps"`
	Final       bool            `json:"final"`
	Items       []order.Item    `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Advance     decimal.Decimal `json:"advance"`
	Remaining   decimal.Decimal `json:"remaining"`
	Payment     string          `json:"payment"`
	PlacedAt    time.Time       `json:"placedAt"`
	Destination string          `json:"destination"`
}

// NewView projects o for display in lang.
func NewView(o *order.Order, lang order.Lang) View {
	v := View{
		TrackingID:  o.TrackingID,
		Status:      o.Status,
		Label:       order.Label(o.Status, lang),
		Category:    order.CategoryOf(o.Status),
		Final:       o.Status.IsTerminal(),
		Items:       o.Items,
		Subtotal:    o.Subtotal,
		DeliveryFee: o.DeliveryFee,
		Advance:     o.AdvancePayment,
		Remaining:   o.Remaining(),
		Payment:     string(o.PaymentInfo.Method),
		PlacedAt:    o.CreatedAt,
		Destination: o.Thana + ", " + o.District,
	}

	// A cancelled order shows no progress bar.
	current, onPath := order.Step(o.Status)
	if !onPath {
		return v
	}
	for i, s := range order.Statuses() {
		if _, ok := order.Step(s); !ok {
			continue
		}
		v.Steps = append(v.Steps, Step{Status: s, Label: order.Label(s, lang), Done: i <= current})
	}
	return v
}
