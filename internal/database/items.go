package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const itemColumns = `id, order_id, position, product_ref, quantity_requested, quantity_fulfilled, unit_price,
	picked, picked_by, picked_at,
	routed, routed_by, routed_at,
	purchase_confirmed, confirmed_by, confirmed_at,
	substituted, substitute_description`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID,
		&it.OrderID,
		&it.Position,
		&it.ProductRef,
		&it.QuantityRequested,
		&it.QuantityFulfilled,
		&it.UnitPrice,
		&it.Picked,
		&it.PickedBy,
		&it.PickedAt,
		&it.Routed,
		&it.RoutedBy,
		&it.RoutedAt,
		&it.PurchaseConfirmed,
		&it.ConfirmedBy,
		&it.ConfirmedAt,
		&it.Substituted,
		&it.SubstituteDescription,
	)
	return it, err
}

type CreateOrderItemParams struct {
	OrderID           uuid.UUID
	Position          int32
	ProductRef        string
	QuantityRequested int32
	UnitPrice         pgtype.Numeric
}

const createOrderItem = `
INSERT INTO order_items (order_id, position, product_ref, quantity_requested, unit_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + itemColumns

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.Position,
		arg.ProductRef,
		arg.QuantityRequested,
		arg.UnitPrice,
	)
	return scanOrderItem(row)
}

const getOrderItem = `SELECT ` + itemColumns + ` FROM order_items WHERE id = $1`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const listOrderItemsByOrder = `
SELECT ` + itemColumns + `
FROM order_items
WHERE order_id = $1
ORDER BY position`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateItemStateParams carries both the new flag values and the flags read
// before the transition. The write only lands if the persisted flags still
// match the Prev* values (compare-and-set).
type UpdateItemStateParams struct {
	ID uuid.UUID

	PrevPicked      bool
	PrevRouted      bool
	PrevConfirmed   bool
	PrevSubstituted bool

	Picked                bool
	PickedBy              pgtype.Text
	PickedAt              pgtype.Timestamptz
	Routed                bool
	RoutedBy              pgtype.Text
	RoutedAt              pgtype.Timestamptz
	PurchaseConfirmed     bool
	ConfirmedBy           pgtype.Text
	ConfirmedAt           pgtype.Timestamptz
	Substituted           bool
	SubstituteDescription pgtype.Text
	QuantityFulfilled     int32
}

// UpdateItemState is the sole write path for item transitions. A lost race
// (or an unknown id) surfaces as pgx.ErrNoRows.
const updateItemState = `
UPDATE order_items
SET picked = $2, picked_by = $3, picked_at = $4,
    routed = $5, routed_by = $6, routed_at = $7,
    purchase_confirmed = $8, confirmed_by = $9, confirmed_at = $10,
    substituted = $11, substitute_description = $12,
    quantity_fulfilled = $13
WHERE id = $1
  AND picked = $14
  AND routed = $15
  AND purchase_confirmed = $16
  AND substituted = $17
RETURNING ` + itemColumns

func (q *Queries) UpdateItemState(ctx context.Context, arg UpdateItemStateParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateItemState,
		arg.ID,
		arg.Picked, arg.PickedBy, arg.PickedAt,
		arg.Routed, arg.RoutedBy, arg.RoutedAt,
		arg.PurchaseConfirmed, arg.ConfirmedBy, arg.ConfirmedAt,
		arg.Substituted, arg.SubstituteDescription,
		arg.QuantityFulfilled,
		arg.PrevPicked, arg.PrevRouted, arg.PrevConfirmed, arg.PrevSubstituted,
	)
	return scanOrderItem(row)
}
