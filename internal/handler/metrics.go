package handler

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/storefront/internal/domain/order"
)

type metrics struct {
	placed      metric.Int64Counter
	transitions metric.Int64Counter
	rejected    metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	placed, err := m.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders accepted by the store"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "placed")
	}
	transitions, err := m.Int64Counter("storefront.orders.transitions",
		metric.WithDescription("Applied order status transitions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "transitions")
	}
	rejected, err := m.Int64Counter("storefront.orders.rejected",
		metric.WithDescription("Order writes rejected by validation or the status machine"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "rejected")
	}
	return &metrics{placed: placed, transitions: transitions, rejected: rejected}, nil
}

func (m *metrics) orderPlaced(ctx context.Context, o *order.Order) {
	m.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment.method", string(o.PaymentInfo.Method)),
		attribute.Bool("advance", o.AdvancePayment.IsPositive()),
	))
}

func (m *metrics) statusChanged(ctx context.Context, to order.Status) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(to))))
}

func (m *metrics) orderRejected(ctx context.Context, op, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("reason", reason),
	))
}
