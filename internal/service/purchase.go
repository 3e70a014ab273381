package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the purchase service.
var (
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrInvalidIngredient  = errors.New("invalid ingredient_id")
)

// PurchaseStore defines the DB methods needed to register and delete
// purchases together with their stock effects.
type PurchaseStore interface {
	GetIngredientForUpdate(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	AddIngredientStock(ctx context.Context, arg database.AddIngredientStockParams) (database.Ingredient, error)
	CreatePurchase(ctx context.Context, arg database.CreatePurchaseParams) (database.Purchase, error)
	GetPurchase(ctx context.Context, id uuid.UUID) (database.Purchase, error)
	DeletePurchase(ctx context.Context, id uuid.UUID) error
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
}

type NewPurchaseStore func(db database.DBTX) PurchaseStore

// RegisterPurchaseRequest is the input for recording a purchase.
type RegisterPurchaseRequest struct {
	PurchaseDate string // 2006-01-02, defaults to today
	Supplier     string
	IngredientID string
	Quantity     string
	TotalCost    string
	Notes        string
}

// RegisterPurchaseResult is the stored purchase plus the ingredient with
// its increased stock.
type RegisterPurchaseResult struct {
	Purchase   database.Purchase
	Ingredient database.Ingredient
}

// PurchaseService registers purchases atomically with their stock increase
// and IN ledger entry, and reverses the stock on deletion.
type PurchaseService struct {
	pool     TxBeginner
	newStore NewPurchaseStore
}

func NewPurchaseService(pool TxBeginner, newStore NewPurchaseStore) *PurchaseService {
	return &PurchaseService{pool: pool, newStore: newStore}
}

// Register stores the purchase, bumps the ingredient's stock by the bought
// quantity, and appends exactly one IN/PURCHASE ledger entry.
func (s *PurchaseService) Register(ctx context.Context, req RegisterPurchaseRequest) (*RegisterPurchaseResult, error) {
	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		return nil, ErrInvalidIngredient
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || qty.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}
	totalCost, err := decimal.NewFromString(req.TotalCost)
	if err != nil || totalCost.IsNegative() {
		return nil, ErrInvalidAmount
	}

	purchaseDate := pgtype.Date{Time: time.Now(), Valid: true}
	if req.PurchaseDate != "" {
		t, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			return nil, ErrInvalidDate
		}
		purchaseDate = pgtype.Date{Time: t, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetIngredientForUpdate(ctx, ingredientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("lock ingredient: %w", err)
	}

	purchase, err := store.CreatePurchase(ctx, database.CreatePurchaseParams{
		PurchaseDate: purchaseDate,
		Supplier:     textOrNull(req.Supplier),
		IngredientID: ingredientID,
		Quantity:     decimalToNumeric(qty),
		TotalCost:    decimalToNumeric(totalCost),
		Notes:        textOrNull(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	ingredient, err := store.AddIngredientStock(ctx, database.AddIngredientStockParams{
		ID:    ingredientID,
		Delta: decimalToNumeric(qty),
	})
	if err != nil {
		return nil, fmt.Errorf("add stock: %w", err)
	}

	if _, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
		MovementType: enum.MovementTypeIn,
		Origin:       enum.MovementOriginPurchase,
		IngredientID: ingredientID,
		Quantity:     decimalToNumeric(qty),
		PurchaseID:   pgtype.UUID{Bytes: purchase.ID, Valid: true},
		Notes:        textOrNull(req.Notes),
	}); err != nil {
		return nil, fmt.Errorf("record movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &RegisterPurchaseResult{Purchase: purchase, Ingredient: ingredient}, nil
}

// Delete removes a purchase and subtracts its quantity from the ingredient
// directly. No reversing ledger entry is written; the original IN entry
// stays in the audit trail.
func (s *PurchaseService) Delete(ctx context.Context, purchaseID uuid.UUID) (*database.Ingredient, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	purchase, err := store.GetPurchase(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("get purchase: %w", err)
	}

	if _, err := store.GetIngredientForUpdate(ctx, purchase.IngredientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("lock ingredient: %w", err)
	}

	ingredient, err := store.AddIngredientStock(ctx, database.AddIngredientStockParams{
		ID:    purchase.IngredientID,
		Delta: decimalToNumeric(numericToDecimal(purchase.Quantity).Neg()),
	})
	if err != nil {
		return nil, fmt.Errorf("reverse stock: %w", err)
	}

	if err := store.DeletePurchase(ctx, purchaseID); err != nil {
		return nil, fmt.Errorf("delete purchase: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &ingredient, nil
}
