package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPurchase = `
INSERT INTO purchases (purchase_date, supplier, ingredient_id, quantity, total_cost, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, purchase_date, supplier, ingredient_id, quantity, total_cost, notes, created_at
`

type CreatePurchaseParams struct {
	PurchaseDate pgtype.Date
	Supplier     pgtype.Text
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
	TotalCost    pgtype.Numeric
	Notes        pgtype.Text
}

func (q *Queries) CreatePurchase(ctx context.Context, arg CreatePurchaseParams) (Purchase, error) {
	row := q.db.QueryRow(ctx, createPurchase,
		arg.PurchaseDate,
		arg.Supplier,
		arg.IngredientID,
		arg.Quantity,
		arg.TotalCost,
		arg.Notes,
	)
	return scanPurchase(row)
}

const getPurchase = `
SELECT id, purchase_date, supplier, ingredient_id, quantity, total_cost, notes, created_at
FROM purchases
WHERE id = $1
`

func (q *Queries) GetPurchase(ctx context.Context, id uuid.UUID) (Purchase, error) {
	return scanPurchase(q.db.QueryRow(ctx, getPurchase, id))
}

const listPurchases = `
SELECT id, purchase_date, supplier, ingredient_id, quantity, total_cost, notes, created_at
FROM purchases
ORDER BY purchase_date DESC, created_at DESC
LIMIT $1 OFFSET $2
`

type ListPurchasesParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListPurchases(ctx context.Context, arg ListPurchasesParams) ([]Purchase, error) {
	rows, err := q.db.Query(ctx, listPurchases, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const deletePurchase = `
DELETE FROM purchases WHERE id = $1
`

func (q *Queries) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePurchase, id)
	return err
}

func scanPurchase(row scannable) (Purchase, error) {
	var p Purchase
	err := row.Scan(
		&p.ID,
		&p.PurchaseDate,
		&p.Supplier,
		&p.IngredientID,
		&p.Quantity,
		&p.TotalCost,
		&p.Notes,
		&p.CreatedAt,
	)
	return p, err
}
