// Package checkout turns the session cart into a submitted order.
package checkout

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/contact"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/storeclient"
)

// Submitter sends a payload to the order store.
type Submitter interface {
	CreateOrder(ctx context.Context, p *order.Payload) (string, error)
}

// Config holds the shop contact details used in receipts.
type Config struct {
	// ShopNumber receives customer chat messages.
	ShopNumber string
	// TrackingBaseURL is joined with the tracking identifier,
	// e.g. https://shop.example/track/.
	TrackingBaseURL string
}

// Receipt describes a submitted order.
type Receipt struct {
	TrackingID  string
	Payload     *order.Payload
	TrackingURL string
	// ContactLink opens a chat with the shop prefilled with the order summary.
	ContactLink string
}

// Service runs checkout for one cart.
type Service struct {
	cfg       Config
	cart      *cart.Store
	builder   *order.Builder
	submitter Submitter
	notifier  Notifier
	lg        *zap.Logger
}

// NewService creates a checkout Service.
func NewService(cfg Config, c *cart.Store, b *order.Builder, s Submitter, n Notifier, lg *zap.Logger) *Service {
	return &Service{
		cfg:       cfg,
		cart:      c,
		builder:   b,
		submitter: s,
		notifier:  n,
		lg:        lg,
	}
}

// Submit builds a payload from a snapshot of the cart and sends it.
//
// A validation failure never reaches the network. A transport failure keeps
// the cart as is so the customer can retry. The cart is cleared only after
// the store confirms the order.
func (s *Service) Submit(ctx context.Context, details order.CustomerDetails, payment order.PaymentChoice) (*Receipt, error) {
	payload, err := s.builder.Build(s.cart.Snapshot(), details, payment)
	if err != nil {
		s.notifier.Notify(ctx, Notice{Level: LevelError, Title: "Check your details", Message: err.Error()})
		return nil, err
	}

	trackingID, err := s.submitter.CreateOrder(ctx, payload)
	if err != nil {
		s.notifier.Notify(ctx, Notice{
			Level:   LevelError,
			Title:   "Order not placed",
			Message: failureMessage(err),
			Retry:   !errors.Is(err, context.Canceled),
		})
		return nil, errors.Wrap(err, "submit order")
	}

	if err := s.cart.Clear(ctx); err != nil {
		s.lg.Warn("Clear cart after order", zap.String("tracking_id", trackingID), zap.Error(err))
	}

	r := &Receipt{
		TrackingID:  trackingID,
		Payload:     payload,
		TrackingURL: s.trackingURL(trackingID),
	}
	if s.cfg.ShopNumber != "" {
		link, err := contact.Link(s.cfg.ShopNumber, contact.OrderMessage(payloadOrder(trackingID, payload), r.TrackingURL))
		if err != nil {
			s.lg.Warn("Build contact link", zap.Error(err))
		}
		r.ContactLink = link
	}

	s.notifier.Notify(ctx, Notice{
		Level:   LevelSuccess,
		Title:   "Order placed",
		Message: "Your tracking code is " + trackingID,
	})
	return r, nil
}

func (s *Service) trackingURL(id string) string {
	if s.cfg.TrackingBaseURL == "" {
		return ""
	}
	return strings.TrimRight(s.cfg.TrackingBaseURL, "/") + "/" + id
}

func failureMessage(err error) string {
	var te *storeclient.TransportError
	if errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500 && te.Message != "" {
		return te.Message
	}
	return "We could not reach the shop. Your cart is saved, please try again."
}

func payloadOrder(trackingID string, p *order.Payload) *order.Order {
	return &order.Order{
		TrackingID:     trackingID,
		Status:         order.StatusPending,
		Items:          p.Items,
		Subtotal:       p.Subtotal,
		DeliveryFee:    p.DeliveryFee,
		Total:          p.Total(),
		AdvancePayment: p.AdvancePayment,
		PaymentInfo:    p.PaymentInfo,
	}
}
