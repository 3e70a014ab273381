package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `id, name, unit, package_qty, package_weight, package_price, current_stock, min_threshold, threshold_mode, is_active, created_at, updated_at`

const createIngredient = `
INSERT INTO ingredients (name, unit, package_qty, package_weight, package_price, current_stock, min_threshold, threshold_mode)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + ingredientColumns

type CreateIngredientParams struct {
	Name          string
	Unit          string
	PackageQty    pgtype.Numeric
	PackageWeight pgtype.Numeric
	PackagePrice  pgtype.Numeric
	CurrentStock  pgtype.Numeric
	MinThreshold  pgtype.Numeric
	ThresholdMode string
}

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, createIngredient,
		arg.Name,
		arg.Unit,
		arg.PackageQty,
		arg.PackageWeight,
		arg.PackagePrice,
		arg.CurrentStock,
		arg.MinThreshold,
		arg.ThresholdMode,
	)
	return scanIngredient(row)
}

const getIngredient = `
SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1
`

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredient, id))
}

const getIngredientForUpdate = `
SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1 FOR NO KEY UPDATE
`

// GetIngredientForUpdate locks the ingredient row for the rest of the
// transaction so concurrent stock adjustments serialize on it.
func (q *Queries) GetIngredientForUpdate(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredientForUpdate, id))
}

const listIngredients = `
SELECT ` + ingredientColumns + ` FROM ingredients ORDER BY name
`

func (q *Queries) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listIngredients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listActiveIngredients = `
SELECT ` + ingredientColumns + ` FROM ingredients WHERE is_active ORDER BY name
`

func (q *Queries) ListActiveIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listActiveIngredients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateIngredient = `
UPDATE ingredients
SET name = $2,
    unit = $3,
    package_qty = $4,
    package_weight = $5,
    package_price = $6,
    min_threshold = $7,
    threshold_mode = $8,
    is_active = $9,
    updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

type UpdateIngredientParams struct {
	ID            uuid.UUID
	Name          string
	Unit          string
	PackageQty    pgtype.Numeric
	PackageWeight pgtype.Numeric
	PackagePrice  pgtype.Numeric
	MinThreshold  pgtype.Numeric
	ThresholdMode string
	IsActive      bool
}

func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	row := q.db.QueryRow(ctx, updateIngredient,
		arg.ID,
		arg.Name,
		arg.Unit,
		arg.PackageQty,
		arg.PackageWeight,
		arg.PackagePrice,
		arg.MinThreshold,
		arg.ThresholdMode,
		arg.IsActive,
	)
	return scanIngredient(row)
}

const addIngredientStock = `
UPDATE ingredients
SET current_stock = current_stock + $2, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

type AddIngredientStockParams struct {
	ID    uuid.UUID
	Delta pgtype.Numeric
}

// AddIngredientStock applies a signed delta to current_stock. Callers are
// expected to hold the row lock when the delta is negative.
func (q *Queries) AddIngredientStock(ctx context.Context, arg AddIngredientStockParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, addIngredientStock, arg.ID, arg.Delta))
}

const deactivateIngredient = `
UPDATE ingredients SET is_active = false, updated_at = now() WHERE id = $1
`

func (q *Queries) DeactivateIngredient(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deactivateIngredient, id)
	return err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanIngredient(row scannable) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Unit,
		&i.PackageQty,
		&i.PackageWeight,
		&i.PackagePrice,
		&i.CurrentStock,
		&i.MinThreshold,
		&i.ThresholdMode,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
