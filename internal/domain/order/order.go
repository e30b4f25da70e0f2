package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/pricing"
)

var (
	// ErrNotFound is returned when no order matches the lookup.
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when the stored status changed between
	// read and write.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrDuplicateTrackingID is returned by Repository.Create when the
	// tracking identifier is already taken.
	ErrDuplicateTrackingID = errors.New("duplicate tracking id")
)

// PaymentMethod is how the customer pays. Payment is manual; the store only
// records the claimed transaction reference.
type PaymentMethod string

// Payment methods.
const (
	PaymentCOD    PaymentMethod = pricing.MethodCashOnDelivery
	PaymentBkash  PaymentMethod = "bkash"
	PaymentNagad  PaymentMethod = "nagad"
	PaymentRocket PaymentMethod = "rocket"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentBkash, PaymentNagad, PaymentRocket:
		return true
	default:
		return false
	}
}

// Item is an ordered product with the customization it was bought with.
type Item struct {
	ProductID     string              `json:"productId"`
	Name          string              `json:"name"`
	UnitPrice     decimal.Decimal     `json:"unitPrice"`
	Quantity      int                 `json:"quantity"`
	ImageURL      string              `json:"imageUrl,omitempty"`
	Customization *cart.Customization `json:"customization,omitempty"`
}

// Total returns unit price × quantity.
func (i Item) Total() decimal.Decimal {
	return pricing.LineTotal(i.UnitPrice, i.Quantity)
}

// PaymentInfo records how the order is paid.
type PaymentInfo struct {
	Method         PaymentMethod `json:"method"`
	TransactionRef string        `json:"transactionReference,omitempty"`
}

// Note is admin free text. Notes are only ever appended.
type Note struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order is a placed order as held by the order store.
type Order struct {
	ID                  string          `json:"id"`
	TrackingID          string          `json:"trackingId"`
	Status              Status          `json:"status"`
	CustomerName        string          `json:"customerName"`
	Phone               string          `json:"phone"`
	District            string          `json:"district"`
	Thana               string          `json:"thana"`
	Address             string          `json:"address"`
	Items               []Item          `json:"items"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DeliveryFee         decimal.Decimal `json:"deliveryFee"`
	Total               decimal.Decimal `json:"total"`
	AdvancePayment      decimal.Decimal `json:"advancePaymentAmount"`
	PaymentInfo         PaymentInfo     `json:"paymentInfo"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
	Notes               []Note          `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Remaining returns the amount collected on delivery:
// subtotal + delivery fee - advance, never negative.
func (o *Order) Remaining() decimal.Decimal {
	return pricing.AdvanceSplit(o.Subtotal.Add(o.DeliveryFee), o.AdvancePayment).Remaining
}

// TotalItems returns the number of units ordered.
func (o *Order) TotalItems() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status Status
	Limit  int
	Offset int
}

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// UpdateStatus sets the status to `to` only when it is still `from`.
	// It returns ErrStatusConflict when the stored status differs.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Order, error)
	AppendNote(ctx context.Context, id string, n Note) (*Order, error)
}
