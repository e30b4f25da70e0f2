// Package admin implements the staff console operations on top of the order
// store API.
package admin

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
)

// Store is the admin side of the order store API.
type Store interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	ListOrders(ctx context.Context, status order.Status) ([]order.Order, error)
	UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)
	AppendNote(ctx context.Context, id, text string) (*order.Order, error)
}

// Console runs staff actions. It never changes a status locally: it asks the
// store and returns what the store answered.
type Console struct {
	store Store
	lg    *zap.Logger
}

// NewConsole creates a Console.
func NewConsole(store Store, lg *zap.Logger) *Console {
	return &Console{store: store, lg: lg}
}

// Order returns the full order for review.
func (c *Console) Order(ctx context.Context, id string) (*order.Order, error) {
	return c.store.GetOrder(ctx, id)
}

// Actions returns the statuses staff may move the order to.
func (c *Console) Actions(o *order.Order) []order.Status {
	return order.Successors(o.Status)
}

// Transition moves order id to requested. An illegal request is rejected
// before anything is sent.
func (c *Console) Transition(ctx context.Context, id string, requested order.Status) (*order.Order, error) {
	current, err := c.store.GetOrder(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "fetch order")
	}
	if _, err := order.Transition(current.Status, requested); err != nil {
		return nil, err
	}

	updated, err := c.store.UpdateStatus(ctx, id, requested)
	if err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	c.lg.Info("Order status changed",
		zap.String("order_id", id),
		zap.String("tracking_id", updated.TrackingID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

// AddNote appends staff free text to the order.
func (c *Console) AddNote(ctx context.Context, id, text string) (*order.Order, error) {
	if text == "" {
		return nil, order.ErrEmptyNote
	}
	return c.store.AppendNote(ctx, id, text)
}

// List returns recent orders, optionally only those in status.
func (c *Console) List(ctx context.Context, status order.Status) ([]order.Order, error) {
	if status != "" && !status.Valid() {
		return nil, errors.Wrapf(order.ErrUnknownStatus, "%q", status)
	}
	return c.store.ListOrders(ctx, status)
}
