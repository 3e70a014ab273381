package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createClient = `
INSERT INTO clients (name, client_type, preferred_channel, phone, address, document, price_tier, payment_term_days)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, name, client_type, preferred_channel, phone, address, document, price_tier, payment_term_days, is_active, created_at, updated_at
`

type CreateClientParams struct {
	Name             string
	ClientType       string
	PreferredChannel string
	Phone            pgtype.Text
	Address          pgtype.Text
	Document         pgtype.Text
	PriceTier        string
	PaymentTermDays  int32
}

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (Client, error) {
	row := q.db.QueryRow(ctx, createClient,
		arg.Name,
		arg.ClientType,
		arg.PreferredChannel,
		arg.Phone,
		arg.Address,
		arg.Document,
		arg.PriceTier,
		arg.PaymentTermDays,
	)
	var i Client
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.ClientType,
		&i.PreferredChannel,
		&i.Phone,
		&i.Address,
		&i.Document,
		&i.PriceTier,
		&i.PaymentTermDays,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getClient = `
SELECT id, name, client_type, preferred_channel, phone, address, document, price_tier, payment_term_days, is_active, created_at, updated_at
FROM clients
WHERE id = $1
`

func (q *Queries) GetClient(ctx context.Context, id uuid.UUID) (Client, error) {
	row := q.db.QueryRow(ctx, getClient, id)
	var i Client
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.ClientType,
		&i.PreferredChannel,
		&i.Phone,
		&i.Address,
		&i.Document,
		&i.PriceTier,
		&i.PaymentTermDays,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listClients = `
SELECT id, name, client_type, preferred_channel, phone, address, document, price_tier, payment_term_days, is_active, created_at, updated_at
FROM clients
ORDER BY name
`

func (q *Queries) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := q.db.Query(ctx, listClients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Client
	for rows.Next() {
		var i Client
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.ClientType,
			&i.PreferredChannel,
			&i.Phone,
			&i.Address,
			&i.Document,
			&i.PriceTier,
			&i.PaymentTermDays,
			&i.IsActive,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateClient = `
UPDATE clients
SET name = $2,
    client_type = $3,
    preferred_channel = $4,
    phone = $5,
    address = $6,
    document = $7,
    price_tier = $8,
    payment_term_days = $9,
    is_active = $10,
    updated_at = now()
WHERE id = $1
RETURNING id, name, client_type, preferred_channel, phone, address, document, price_tier, payment_term_days, is_active, created_at, updated_at
`

type UpdateClientParams struct {
	ID               uuid.UUID
	Name             string
	ClientType       string
	PreferredChannel string
	Phone            pgtype.Text
	Address          pgtype.Text
	Document         pgtype.Text
	PriceTier        string
	PaymentTermDays  int32
	IsActive         bool
}

func (q *Queries) UpdateClient(ctx context.Context, arg UpdateClientParams) (Client, error) {
	row := q.db.QueryRow(ctx, updateClient,
		arg.ID,
		arg.Name,
		arg.ClientType,
		arg.PreferredChannel,
		arg.Phone,
		arg.Address,
		arg.Document,
		arg.PriceTier,
		arg.PaymentTermDays,
		arg.IsActive,
	)
	var i Client
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.ClientType,
		&i.PreferredChannel,
		&i.Phone,
		&i.Address,
		&i.Document,
		&i.PriceTier,
		&i.PaymentTermDays,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deactivateClient = `
UPDATE clients SET is_active = false, updated_at = now() WHERE id = $1
`

func (q *Queries) DeactivateClient(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deactivateClient, id)
	return err
}
