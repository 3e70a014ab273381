package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `
INSERT INTO payments (order_id, received_on, method, amount, card_fee, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, received_on, method, amount, card_fee, notes, created_at
`

type CreatePaymentParams struct {
	OrderID    uuid.UUID
	ReceivedOn pgtype.Date
	Method     string
	Amount     pgtype.Numeric
	CardFee    pgtype.Numeric
	Notes      pgtype.Text
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.ReceivedOn,
		arg.Method,
		arg.Amount,
		arg.CardFee,
		arg.Notes,
	)
	return scanPayment(row)
}

const getPayment = `
SELECT id, order_id, received_on, method, amount, card_fee, notes, created_at
FROM payments
WHERE id = $1
`

func (q *Queries) GetPayment(ctx context.Context, id uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, id))
}

const listPaymentsByOrder = `
SELECT id, order_id, received_on, method, amount, card_fee, notes, created_at
FROM payments
WHERE order_id = $1
ORDER BY received_on, created_at
`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updatePayment = `
UPDATE payments
SET received_on = $2, method = $3, amount = $4, card_fee = $5, notes = $6
WHERE id = $1
RETURNING id, order_id, received_on, method, amount, card_fee, notes, created_at
`

type UpdatePaymentParams struct {
	ID         uuid.UUID
	ReceivedOn pgtype.Date
	Method     string
	Amount     pgtype.Numeric
	CardFee    pgtype.Numeric
	Notes      pgtype.Text
}

func (q *Queries) UpdatePayment(ctx context.Context, arg UpdatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, updatePayment,
		arg.ID,
		arg.ReceivedOn,
		arg.Method,
		arg.Amount,
		arg.CardFee,
		arg.Notes,
	)
	return scanPayment(row)
}

const deletePayment = `
DELETE FROM payments WHERE id = $1
`

func (q *Queries) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePayment, id)
	return err
}

const sumPaymentsByOrder = `
SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1
`

func (q *Queries) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumPaymentsByOrder, orderID).Scan(&n)
	return n, err
}

const sumPaymentsReceivedBetween = `
SELECT COALESCE(SUM(amount), 0) FROM payments WHERE received_on >= $1 AND received_on < $2
`

type SumPaymentsReceivedBetweenParams struct {
	From pgtype.Date
	To   pgtype.Date
}

func (q *Queries) SumPaymentsReceivedBetween(ctx context.Context, arg SumPaymentsReceivedBetweenParams) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumPaymentsReceivedBetween, arg.From, arg.To).Scan(&n)
	return n, err
}

func scanPayment(row scannable) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.ReceivedOn,
		&p.Method,
		&p.Amount,
		&p.CardFee,
		&p.Notes,
		&p.CreatedAt,
	)
	return p, err
}
