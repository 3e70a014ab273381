package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, client_id, created_by, channel, order_date, scheduled_at, delivery_type, delivery_address, status, payment_status, discount, delivery_fee, notes, created_at, updated_at`

const getMaxOrderNumber = `
SELECT COALESCE(MAX(order_number), '') FROM orders
`

func (q *Queries) GetMaxOrderNumber(ctx context.Context) (string, error) {
	var n string
	err := q.db.QueryRow(ctx, getMaxOrderNumber).Scan(&n)
	return n, err
}

const createOrder = `
INSERT INTO orders (order_number, client_id, created_by, channel, order_date, scheduled_at, delivery_type, delivery_address, discount, delivery_fee, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber     string
	ClientID        uuid.UUID
	CreatedBy       pgtype.UUID
	Channel         string
	OrderDate       pgtype.Date
	ScheduledAt     pgtype.Timestamptz
	DeliveryType    string
	DeliveryAddress pgtype.Text
	Discount        pgtype.Numeric
	DeliveryFee     pgtype.Numeric
	Notes           pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.ClientID,
		arg.CreatedBy,
		arg.Channel,
		arg.OrderDate,
		arg.ScheduledAt,
		arg.DeliveryType,
		arg.DeliveryAddress,
		arg.Discount,
		arg.DeliveryFee,
		arg.Notes,
	)
	return scanOrder(row)
}

const getOrder = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row so status transitions and payment
// recomputation serialize per order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY order_date DESC, created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listUpcomingOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE scheduled_at IS NOT NULL
  AND scheduled_at >= now()
  AND status NOT IN ('DELIVERED', 'CANCELLED')
ORDER BY scheduled_at
LIMIT $1
`

func (q *Queries) ListUpcomingOrders(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listUpcomingOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listOrdersByPaymentStatus = `
SELECT ` + orderColumns + `
FROM orders
WHERE payment_status = ANY($1)
  AND status <> 'CANCELLED'
ORDER BY order_date
`

// ListOrdersByPaymentStatus returns non-cancelled orders in any of the given
// payment states. Used for the receivable snapshot and partial realization.
func (q *Queries) ListOrdersByPaymentStatus(ctx context.Context, statuses []string) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByPaymentStatus, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listOrdersSettledBetween = `
SELECT ` + orderColumns + `
FROM orders o
WHERE o.payment_status = 'PAID'
  AND o.status <> 'CANCELLED'
  AND (SELECT MAX(p.received_on) FROM payments p WHERE p.order_id = o.id) >= $1
  AND (SELECT MAX(p.received_on) FROM payments p WHERE p.order_id = o.id) < $2
ORDER BY o.order_date
`

type ListOrdersSettledBetweenParams struct {
	From pgtype.Date
	To   pgtype.Date
}

// ListOrdersSettledBetween returns fully paid orders whose last payment
// landed inside [From, To). Cash-basis revenue realizes on that date.
func (q *Queries) ListOrdersSettledBetween(ctx context.Context, arg ListOrdersSettledBetweenParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersSettledBetween, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const updateOrderPaymentStatus = `
UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderPaymentStatusParams struct {
	ID            uuid.UUID
	PaymentStatus string
}

func (q *Queries) UpdateOrderPaymentStatus(ctx context.Context, arg UpdateOrderPaymentStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderPaymentStatus, arg.ID, arg.PaymentStatus))
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, product_id, quantity, unit_price
`

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  pgtype.Numeric
	UnitPrice pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.Quantity,
		arg.UnitPrice,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.UnitPrice)
	return i, err
}

const listOrderItems = `
SELECT id, order_id, product_id, quantity, unit_price
FROM order_items
WHERE order_id = $1
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func scanOrder(row scannable) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.ClientID,
		&o.CreatedBy,
		&o.Channel,
		&o.OrderDate,
		&o.ScheduledAt,
		&o.DeliveryType,
		&o.DeliveryAddress,
		&o.Status,
		&o.PaymentStatus,
		&o.Discount,
		&o.DeliveryFee,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows interface {
	scannable
	Next() bool
	Err() error
}) ([]Order, error) {
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
