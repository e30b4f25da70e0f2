package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
)

const (
	orderColumns = `id, tracking_id, status, customer_name, phone, district, thana, address,
	items, subtotal, delivery_fee, total, advance_payment, payment_info,
	special_instructions, notes, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByTrackingIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE tracking_id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
	WHERE ($1 = '' OR status = $1)
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	// The WHERE on status makes the update a compare-and-swap.
	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
	WHERE id = $1 AND status = $2
	RETURNING ` + orderColumns

	appendOrderNoteSQL = `UPDATE orders SET notes = notes || jsonb_build_array($2::jsonb), updated_at = now()
	WHERE id = $1
	RETURNING ` + orderColumns

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items,
// payment info and notes are stored as JSONB.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	payment, err := json.Marshal(o.PaymentInfo)
	if err != nil {
		return errors.Wrap(err, "marshal payment info")
	}
	notes := o.Notes
	if notes == nil {
		notes = []order.Note{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return errors.Wrap(err, "marshal notes")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.TrackingID, string(o.Status), o.CustomerName, o.Phone, o.District, o.Thana, o.Address,
		items, o.Subtotal, o.DeliveryFee, o.Total, o.AdvancePayment, payment,
		o.SpecialInstructions, notesJSON, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_tracking_id_key") {
			return order.ErrDuplicateTrackingID
		}
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// GetByID returns the order with the given ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.one(ctx, getOrderByIDSQL, id)
}

// GetByTrackingID returns the order with the given tracking identifier.
func (r *OrderRepository) GetByTrackingID(ctx context.Context, trackingID string) (*order.Order, error) {
	return r.one(ctx, getOrderByTrackingIDSQL, trackingID)
}

// List returns orders matching f, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the status to `to` when it is still `from`.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) (*order.Order, error) {
	o, err := r.one(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if !errors.Is(err, order.ErrNotFound) {
		return o, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return nil, errors.Wrapf(err, "check order %q", id)
	}
	if exists {
		return nil, order.ErrStatusConflict
	}
	return nil, order.ErrNotFound
}

// AppendNote adds n to the end of the order's notes.
func (r *OrderRepository) AppendNote(ctx context.Context, id string, n order.Note) (*order.Order, error) {
	note, err := json.Marshal(n)
	if err != nil {
		return nil, errors.Wrap(err, "marshal note")
	}
	return r.one(ctx, appendOrderNoteSQL, id, note)
}

func (r *OrderRepository) one(ctx context.Context, sql string, args ...any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan order")
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                     order.Order
		status                string
		items, payment, notes []byte
	)
	err := row.Scan(
		&o.ID, &o.TrackingID, &status, &o.CustomerName, &o.Phone, &o.District, &o.Thana, &o.Address,
		&items, &o.Subtotal, &o.DeliveryFee, &o.Total, &o.AdvancePayment, &payment,
		&o.SpecialInstructions, &notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, errors.Wrap(err, "decode items")
	}
	if err := json.Unmarshal(payment, &o.PaymentInfo); err != nil {
		return o, errors.Wrap(err, "decode payment info")
	}
	if err := json.Unmarshal(notes, &o.Notes); err != nil {
		return o, errors.Wrap(err, "decode notes")
	}
	return o, nil
}
