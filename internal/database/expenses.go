package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createExpense = `
INSERT INTO expenses (spent_on, category, description, amount, method, recurring, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, spent_on, category, description, amount, method, recurring, notes, created_at
`

type CreateExpenseParams struct {
	SpentOn     pgtype.Date
	Category    string
	Description string
	Amount      pgtype.Numeric
	Method      string
	Recurring   bool
	Notes       pgtype.Text
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, createExpense,
		arg.SpentOn,
		arg.Category,
		arg.Description,
		arg.Amount,
		arg.Method,
		arg.Recurring,
		arg.Notes,
	)
	return scanExpense(row)
}

const listExpensesBetween = `
SELECT id, spent_on, category, description, amount, method, recurring, notes, created_at
FROM expenses
WHERE spent_on >= $1 AND spent_on < $2
ORDER BY spent_on, created_at
`

type ListExpensesBetweenParams struct {
	From pgtype.Date
	To   pgtype.Date
}

func (q *Queries) ListExpensesBetween(ctx context.Context, arg ListExpensesBetweenParams) ([]Expense, error) {
	rows, err := q.db.Query(ctx, listExpensesBetween, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const sumExpensesBetween = `
SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE spent_on >= $1 AND spent_on < $2
`

type SumExpensesBetweenParams struct {
	From pgtype.Date
	To   pgtype.Date
}

func (q *Queries) SumExpensesBetween(ctx context.Context, arg SumExpensesBetweenParams) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumExpensesBetween, arg.From, arg.To).Scan(&n)
	return n, err
}

const deleteExpense = `
DELETE FROM expenses WHERE id = $1
`

func (q *Queries) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteExpense, id)
	return err
}

func scanExpense(row scannable) (Expense, error) {
	var e Expense
	err := row.Scan(
		&e.ID,
		&e.SpentOn,
		&e.Category,
		&e.Description,
		&e.Amount,
		&e.Method,
		&e.Recurring,
		&e.Notes,
		&e.CreatedAt,
	)
	return e, err
}
