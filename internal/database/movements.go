package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createStockMovement = `
INSERT INTO stock_movements (movement_type, origin, ingredient_id, quantity, order_id, purchase_id, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, moved_at, movement_type, origin, ingredient_id, quantity, order_id, purchase_id, notes
`

type CreateStockMovementParams struct {
	MovementType string
	Origin       string
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
	OrderID      pgtype.UUID
	PurchaseID   pgtype.UUID
	Notes        pgtype.Text
}

func (q *Queries) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (StockMovement, error) {
	row := q.db.QueryRow(ctx, createStockMovement,
		arg.MovementType,
		arg.Origin,
		arg.IngredientID,
		arg.Quantity,
		arg.OrderID,
		arg.PurchaseID,
		arg.Notes,
	)
	return scanStockMovement(row)
}

const countProductionMovementsByOrder = `
SELECT COUNT(*) FROM stock_movements WHERE order_id = $1 AND origin = 'PRODUCTION'
`

// CountProductionMovementsByOrder guards production idempotency. A positive
// count means the order's batch was already deducted.
func (q *Queries) CountProductionMovementsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProductionMovementsByOrder, orderID).Scan(&n)
	return n, err
}

const listStockMovementsByIngredient = `
SELECT id, moved_at, movement_type, origin, ingredient_id, quantity, order_id, purchase_id, notes
FROM stock_movements
WHERE ingredient_id = $1
ORDER BY moved_at DESC
LIMIT $2 OFFSET $3
`

type ListStockMovementsByIngredientParams struct {
	IngredientID uuid.UUID
	Limit        int32
	Offset       int32
}

func (q *Queries) ListStockMovementsByIngredient(ctx context.Context, arg ListStockMovementsByIngredientParams) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, listStockMovementsByIngredient, arg.IngredientID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StockMovement
	for rows.Next() {
		m, err := scanStockMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const listStockMovementsByOrder = `
SELECT id, moved_at, movement_type, origin, ingredient_id, quantity, order_id, purchase_id, notes
FROM stock_movements
WHERE order_id = $1
ORDER BY moved_at
`

func (q *Queries) ListStockMovementsByOrder(ctx context.Context, orderID uuid.UUID) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, listStockMovementsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StockMovement
	for rows.Next() {
		m, err := scanStockMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func scanStockMovement(row scannable) (StockMovement, error) {
	var m StockMovement
	err := row.Scan(
		&m.ID,
		&m.MovedAt,
		&m.MovementType,
		&m.Origin,
		&m.IngredientID,
		&m.Quantity,
		&m.OrderID,
		&m.PurchaseID,
		&m.Notes,
	)
	return m, err
}
