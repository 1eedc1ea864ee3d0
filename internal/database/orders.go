package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, quote_ref, customer_name, salesperson, shipping_method, packaging_method, notes, status, created_at, started_at, finalized_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.QuoteRef,
		&o.CustomerName,
		&o.Salesperson,
		&o.ShippingMethod,
		&o.PackagingMethod,
		&o.Notes,
		&o.Status,
		&o.CreatedAt,
		&o.StartedAt,
		&o.FinalizedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	QuoteRef        string
	CustomerName    string
	Salesperson     string
	ShippingMethod  string
	PackagingMethod string
	Notes           pgtype.Text
}

const createOrder = `
INSERT INTO orders (quote_ref, customer_name, salesperson, shipping_method, packaging_method, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.QuoteRef,
		arg.CustomerName,
		arg.Salesperson,
		arg.ShippingMethod,
		arg.PackagingMethod,
		arg.Notes,
	)
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

type ListOrdersParams struct {
	// Status filters by aggregate status when set.
	Status pgtype.Text
	Limit  int32
	Offset int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY started_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// OrderSummary is an order row plus the item counts the dashboard list needs,
// aggregated in SQL so listing stays one round trip.
type OrderSummary struct {
	Order
	TotalItems  int64
	PickedItems int64
}

const listOrderSummaries = `
SELECT o.id, o.quote_ref, o.customer_name, o.salesperson, o.shipping_method, o.packaging_method,
       o.notes, o.status, o.created_at, o.started_at, o.finalized_at,
       count(i.id) AS total_items,
       count(i.id) FILTER (WHERE i.picked) AS picked_items
FROM orders o
LEFT JOIN order_items i ON i.order_id = o.id
WHERE ($1::text IS NULL OR o.status = $1)
GROUP BY o.id
ORDER BY o.started_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListOrderSummaries(ctx context.Context, arg ListOrdersParams) ([]OrderSummary, error) {
	rows, err := q.db.Query(ctx, listOrderSummaries, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []OrderSummary
	for rows.Next() {
		var s OrderSummary
		err := rows.Scan(
			&s.ID,
			&s.QuoteRef,
			&s.CustomerName,
			&s.Salesperson,
			&s.ShippingMethod,
			&s.PackagingMethod,
			&s.Notes,
			&s.Status,
			&s.CreatedAt,
			&s.StartedAt,
			&s.FinalizedAt,
			&s.TotalItems,
			&s.PickedItems,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// FinalizeOrder flips an order to FINALIZED with a single conditional write.
// The precondition is evaluated inside the UPDATE itself: the order must
// still be IN_PROGRESS and no unpicked item may remain. Returns
// pgx.ErrNoRows when the precondition fails, so the caller can re-read and
// report the proper domain error.
const finalizeOrder = `
UPDATE orders
SET status = 'FINALIZED', finalized_at = now()
WHERE id = $1
  AND status = 'IN_PROGRESS'
  AND NOT EXISTS (
        SELECT 1 FROM order_items
        WHERE order_id = $1 AND picked = false
  )
RETURNING ` + orderColumns

func (q *Queries) FinalizeOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, finalizeOrder, id))
}

// CancelOrder succeeds only while the order is IN_PROGRESS; terminal orders
// stay untouched and pgx.ErrNoRows is returned.
const cancelOrder = `
UPDATE orders
SET status = 'CANCELLED'
WHERE id = $1 AND status = 'IN_PROGRESS'
RETURNING ` + orderColumns

func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, id))
}
