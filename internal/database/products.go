package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, sku, category, sale_unit, retail_price, wholesale_price, is_active, created_at, updated_at`

const createProduct = `
INSERT INTO products (name, sku, category, sale_unit, retail_price, wholesale_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + productColumns

type CreateProductParams struct {
	Name           string
	Sku            string
	Category       string
	SaleUnit       string
	RetailPrice    pgtype.Numeric
	WholesalePrice pgtype.Numeric
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.Name,
		arg.Sku,
		arg.Category,
		arg.SaleUnit,
		arg.RetailPrice,
		arg.WholesalePrice,
	)
	return scanProduct(row)
}

const getProduct = `
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProducts = `
SELECT ` + productColumns + ` FROM products ORDER BY name
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updateProduct = `
UPDATE products
SET name = $2,
    sku = $3,
    category = $4,
    sale_unit = $5,
    retail_price = $6,
    wholesale_price = $7,
    is_active = $8,
    updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID             uuid.UUID
	Name           string
	Sku            string
	Category       string
	SaleUnit       string
	RetailPrice    pgtype.Numeric
	WholesalePrice pgtype.Numeric
	IsActive       bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.Name,
		arg.Sku,
		arg.Category,
		arg.SaleUnit,
		arg.RetailPrice,
		arg.WholesalePrice,
		arg.IsActive,
	)
	return scanProduct(row)
}

const deactivateProduct = `
UPDATE products SET is_active = false, updated_at = now() WHERE id = $1
`

func (q *Queries) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deactivateProduct, id)
	return err
}

func scanProduct(row scannable) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Sku,
		&p.Category,
		&p.SaleUnit,
		&p.RetailPrice,
		&p.WholesalePrice,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
