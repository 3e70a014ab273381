package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const upsertRecipe = `
INSERT INTO recipes (product_id, yield_units, labor_cost, loss_pct, margin_pct)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_id) DO UPDATE
SET yield_units = EXCLUDED.yield_units,
    labor_cost = EXCLUDED.labor_cost,
    loss_pct = EXCLUDED.loss_pct,
    margin_pct = EXCLUDED.margin_pct,
    updated_at = now()
RETURNING id, product_id, yield_units, labor_cost, loss_pct, margin_pct, updated_at
`

type UpsertRecipeParams struct {
	ProductID  uuid.UUID
	YieldUnits pgtype.Numeric
	LaborCost  pgtype.Numeric
	LossPct    pgtype.Numeric
	MarginPct  pgtype.Numeric
}

func (q *Queries) UpsertRecipe(ctx context.Context, arg UpsertRecipeParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, upsertRecipe,
		arg.ProductID,
		arg.YieldUnits,
		arg.LaborCost,
		arg.LossPct,
		arg.MarginPct,
	)
	var r Recipe
	err := row.Scan(
		&r.ID,
		&r.ProductID,
		&r.YieldUnits,
		&r.LaborCost,
		&r.LossPct,
		&r.MarginPct,
		&r.UpdatedAt,
	)
	return r, err
}

const getRecipeByProduct = `
SELECT id, product_id, yield_units, labor_cost, loss_pct, margin_pct, updated_at
FROM recipes
WHERE product_id = $1
`

func (q *Queries) GetRecipeByProduct(ctx context.Context, productID uuid.UUID) (Recipe, error) {
	row := q.db.QueryRow(ctx, getRecipeByProduct, productID)
	var r Recipe
	err := row.Scan(
		&r.ID,
		&r.ProductID,
		&r.YieldUnits,
		&r.LaborCost,
		&r.LossPct,
		&r.MarginPct,
		&r.UpdatedAt,
	)
	return r, err
}

const deleteRecipeItems = `
DELETE FROM recipe_items WHERE recipe_id = $1
`

func (q *Queries) DeleteRecipeItems(ctx context.Context, recipeID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteRecipeItems, recipeID)
	return err
}

const createRecipeItem = `
INSERT INTO recipe_items (recipe_id, ingredient_id, quantity, kind, position)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, recipe_id, ingredient_id, quantity, kind, position
`

type CreateRecipeItemParams struct {
	RecipeID     uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
	Kind         string
	Position     int32
}

func (q *Queries) CreateRecipeItem(ctx context.Context, arg CreateRecipeItemParams) (RecipeItem, error) {
	row := q.db.QueryRow(ctx, createRecipeItem,
		arg.RecipeID,
		arg.IngredientID,
		arg.Quantity,
		arg.Kind,
		arg.Position,
	)
	var ri RecipeItem
	err := row.Scan(
		&ri.ID,
		&ri.RecipeID,
		&ri.IngredientID,
		&ri.Quantity,
		&ri.Kind,
		&ri.Position,
	)
	return ri, err
}

const listRecipeItemDetails = `
SELECT ri.id, ri.recipe_id, ri.ingredient_id, ri.quantity, ri.kind, ri.position,
       ing.name, ing.unit, ing.package_weight, ing.package_price, ing.current_stock
FROM recipe_items ri
JOIN ingredients ing ON ing.id = ri.ingredient_id
WHERE ri.recipe_id = $1
ORDER BY ri.position
`

type ListRecipeItemDetailsRow struct {
	ID             uuid.UUID
	RecipeID       uuid.UUID
	IngredientID   uuid.UUID
	Quantity       pgtype.Numeric
	Kind           string
	Position       int32
	IngredientName string
	Unit           string
	PackageWeight  pgtype.Numeric
	PackagePrice   pgtype.Numeric
	CurrentStock   pgtype.Numeric
}

// ListRecipeItemDetails joins each recipe line with its ingredient so cost
// and stock math can run without N+1 lookups.
func (q *Queries) ListRecipeItemDetails(ctx context.Context, recipeID uuid.UUID) ([]ListRecipeItemDetailsRow, error) {
	rows, err := q.db.Query(ctx, listRecipeItemDetails, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListRecipeItemDetailsRow
	for rows.Next() {
		var i ListRecipeItemDetailsRow
		if err := rows.Scan(
			&i.ID,
			&i.RecipeID,
			&i.IngredientID,
			&i.Quantity,
			&i.Kind,
			&i.Position,
			&i.IngredientName,
			&i.Unit,
			&i.PackageWeight,
			&i.PackagePrice,
			&i.CurrentStock,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
