package order

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// ErrEmptyNote is returned by AppendNote for blank text.
var ErrEmptyNote = errors.New("note text required")

// ProductNotFoundError indicates an ordered product is not in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// PriceMismatchError indicates an item was priced differently than the catalog.
type PriceMismatchError struct {
	ProductID string
	Catalog   decimal.Decimal
	Submitted decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("product %s costs %s, order says %s", e.ProductID, e.Catalog, e.Submitted)
}

// OutOfStockError indicates the catalog cannot cover the ordered quantity.
type OutOfStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s: requested %d, %d in stock", e.ProductID, e.Requested, e.Available)
}

// TotalsMismatchError indicates the submitted totals disagree with the
// store's own computation.
type TotalsMismatchError struct {
	Field     string
	Expected  decimal.Decimal
	Submitted decimal.Decimal
}

func (e *TotalsMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, got %s", e.Field, e.Expected, e.Submitted)
}

// trackingAttempts bounds retries on tracking identifier collisions.
const trackingAttempts = 3

// NewTrackingID returns a short customer-facing identifier such as
// TRK-9F86D08188.
func NewTrackingID() string {
	id := uuid.New()
	return "TRK-" + strings.ToUpper(hex.EncodeToString(id[:5]))
}

// NormalizeTrackingID canonicalizes user-typed identifiers.
func NormalizeTrackingID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Service is the order store: it accepts payloads, owns order status and
// keeps the admin notes.
type Service struct {
	products product.Repository
	orders   Repository
	builder  *Builder
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository, builder *Builder) *Service {
	return &Service{
		products: products,
		orders:   orders,
		builder:  builder,
		now:      time.Now,
	}
}

// Place re-validates p, checks it against the catalog, recomputes totals and
// persists a pending order.
func (s *Service) Place(ctx context.Context, p Payload) (*Order, error) {
	district, err := s.builder.Validate(&p)
	if err != nil {
		return nil, err
	}

	// Collect unique product IDs and per-product quantities.
	ids := make([]string, 0, len(p.Items))
	qty := make(map[string]int, len(p.Items))
	for _, it := range p.Items {
		if _, ok := qty[it.ProductID]; !ok {
			ids = append(ids, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	catalog := make(map[string]product.Product, len(fetched))
	for _, pr := range fetched {
		catalog[pr.ID] = pr
	}

	items := make([]Item, len(p.Items))
	for i, it := range p.Items {
		pr, ok := catalog[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		price := pr.Price.Floor()
		if !price.Equal(it.UnitPrice) {
			return nil, &PriceMismatchError{ProductID: it.ProductID, Catalog: price, Submitted: it.UnitPrice}
		}
		if !pr.InStock(qty[it.ProductID]) {
			return nil, &OutOfStockError{ProductID: it.ProductID, Requested: qty[it.ProductID], Available: pr.Stock}
		}
		it.UnitPrice = price
		if it.Name == "" {
			it.Name = pr.Name
		}
		items[i] = it
	}

	method := normalizePayment(p.Payment()).Method
	quote, err := s.builder.Quote(items, district, method)
	if err != nil {
		return nil, err
	}
	for _, c := range []struct {
		field     string
		expected  decimal.Decimal
		submitted decimal.Decimal
	}{
		{"subtotal", quote.Subtotal, p.Subtotal},
		{"deliveryFee", quote.DeliveryFee, p.DeliveryFee},
		{"advancePaymentAmount", quote.Advance, p.AdvancePayment},
	} {
		if !c.expected.Equal(c.submitted) {
			return nil, &TotalsMismatchError{Field: c.field, Expected: c.expected, Submitted: c.submitted}
		}
	}

	details := p.Details().trimmed()
	now := s.now().UTC()
	o := &Order{
		ID:                  uuid.New().String(),
		Status:              StatusPending,
		CustomerName:        details.Name,
		Phone:               details.Phone,
		District:            district,
		Thana:               details.Thana,
		Address:             details.Address,
		Items:               items,
		Subtotal:            quote.Subtotal,
		DeliveryFee:         quote.DeliveryFee,
		Total:               quote.Total,
		AdvancePayment:      quote.Advance,
		PaymentInfo:         PaymentInfo(normalizePayment(p.Payment())),
		SpecialInstructions: details.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	for attempt := 1; ; attempt++ {
		o.TrackingID = NewTrackingID()
		err := s.orders.Create(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrDuplicateTrackingID) || attempt == trackingAttempts {
			return nil, errors.Wrap(err, "create order")
		}
	}
}

// Track returns the order with the given tracking identifier.
func (s *Service) Track(ctx context.Context, trackingID string) (*Order, error) {
	trackingID = NormalizeTrackingID(trackingID)
	if trackingID == "" {
		return nil, ErrNotFound
	}
	return s.orders.GetByTrackingID(ctx, trackingID)
}

// Get returns the order with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.orders.GetByID(ctx, id)
}

// List returns orders matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, errors.Wrapf(ErrUnknownStatus, "%q", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.orders.List(ctx, f)
}

// UpdateStatus moves the order to requested when the transition is legal.
// The write is guarded by the status read here, so a concurrent change
// yields ErrStatusConflict instead of skipping a state.
func (s *Service) UpdateStatus(ctx context.Context, id string, requested Status) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(o.Status, requested)
	if err != nil {
		return nil, err
	}
	return s.orders.UpdateStatus(ctx, o.ID, o.Status, next)
}

// AppendNote adds admin free text to the order.
func (s *Service) AppendNote(ctx context.Context, id, text string) (*Order, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyNote
	}
	return s.orders.AppendNote(ctx, id, Note{Text: text, CreatedAt: s.now().UTC()})
}
