// Package tracking resolves tracking identifiers into orders for the
// customer-facing tracking view. It only ever reads from the order store.
package tracking

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/storeclient"
)

// ErrNotFound is returned for an unknown tracking identifier. Transport
// problems are reported as *storeclient.TransportError instead.
var ErrNotFound = errors.New("order not found")

// DefaultInterval is the polling period of an open tracking view.
const DefaultInterval = 15 * time.Second

// Source reads raw order documents by tracking identifier.
type Source interface {
	TrackOrder(ctx context.Context, trackingID string) ([]byte, error)
}

// Resolver fetches and normalizes tracked orders.
type Resolver struct {
	src Source
}

// NewResolver creates a Resolver reading from src.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// Resolve returns the order with trackingID.
func (r *Resolver) Resolve(ctx context.Context, trackingID string) (*order.Order, error) {
	trackingID = order.NormalizeTrackingID(trackingID)
	if trackingID == "" {
		return nil, ErrNotFound
	}

	raw, err := r.src.TrackOrder(ctx, trackingID)
	switch {
	case errors.Is(err, storeclient.ErrNotFound):
		return nil, errors.Wrap(ErrNotFound, trackingID)
	case err != nil:
		return nil, err
	}

	o, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if !o.Status.Valid() {
		return nil, errors.Wrapf(ErrMalformed, "unknown status %q", o.Status)
	}
	return o, nil
}

// Update is one polling result. Exactly one of Order and Err is set.
type Update struct {
	Order *order.Order
	Err   error
}

// Poll resolves trackingID immediately and then every interval, sending each
// result on the returned channel. Failed polls are delivered and polling
// continues. The channel is closed once ctx is done, the order reaches a
// terminal status, or the order turns out not to exist.
func (r *Resolver) Poll(ctx context.Context, trackingID string, interval time.Duration) <-chan Update {
	if interval <= 0 {
		interval = DefaultInterval
	}
	out := make(chan Update, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			o, err := r.Resolve(ctx, trackingID)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Update{Order: o, Err: err}:
			case <-ctx.Done():
				return
			}
			if errors.Is(err, ErrNotFound) || (err == nil && o.Status.IsTerminal()) {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
