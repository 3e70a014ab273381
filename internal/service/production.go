package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the production service.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

// InsufficientStockError reports the first ingredient that would go negative
// during a production deduction. The whole transaction rolls back, so no
// partial deduction survives.
type InsufficientStockError struct {
	Ingredient string
	Unit       string
	Needed     decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %s: need %s %s, have %s",
		e.Ingredient, e.Needed.StringFixed(2), e.Unit, e.Available.StringFixed(2))
}

// ProductionStore defines the DB methods needed for status transitions and
// the production stock deduction.
type ProductionStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetRecipeByProduct(ctx context.Context, productID uuid.UUID) (database.Recipe, error)
	ListRecipeItemDetails(ctx context.Context, recipeID uuid.UUID) ([]database.ListRecipeItemDetailsRow, error)
	CountProductionMovementsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	GetIngredientForUpdate(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	AddIngredientStock(ctx context.Context, arg database.AddIngredientStockParams) (database.Ingredient, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

type NewProductionStore func(db database.DBTX) ProductionStore

// TransitionResult is the updated order plus any stock warnings produced by
// a negative-stock override.
type TransitionResult struct {
	Order    database.Order
	Warnings []string
}

// ProductionService owns the order status machine and the one-time
// production stock deduction.
type ProductionService struct {
	pool     TxBeginner
	newStore NewProductionStore
}

func NewProductionService(pool TxBeginner, newStore NewProductionStore) *ProductionService {
	return &ProductionService{pool: pool, newStore: newStore}
}

// TransitionStatus moves an order to newStatus. Any-to-any transitions are
// allowed; entering IN_PRODUCTION additionally deducts ingredient stock
// exactly once per order, with the ledger as the idempotency record.
// allowNegativeStock turns would-be failures into warnings.
func (s *ProductionService) TransitionStatus(ctx context.Context, orderID uuid.UUID, newStatus string, allowNegativeStock bool) (*TransitionResult, error) {
	if !isValidOrderStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the order row first; this serializes concurrent transitions on
	// the same order so the idempotency check below is race-free.
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	var warnings []string
	if newStatus == enum.OrderStatusInProduction {
		warnings, err = s.deductStock(ctx, store, order, allowNegativeStock)
		if err != nil {
			return nil, err
		}
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     order.ID,
		Status: newStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &TransitionResult{Order: updated, Warnings: warnings}, nil
}

type requiredStock struct {
	name   string
	unit   string
	needed decimal.Decimal
}

// deductStock runs the one-time production deduction. It is a no-op when a
// PRODUCTION ledger entry already exists for the order.
func (s *ProductionService) deductStock(ctx context.Context, store ProductionStore, order database.Order, allowNegativeStock bool) ([]string, error) {
	count, err := store.CountProductionMovementsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("count production movements: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	items, err := store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	// Aggregate base-unit requirements per ingredient across all lines:
	// (recipe item qty / yield) x ordered qty.
	required := map[uuid.UUID]*requiredStock{}
	for _, item := range items {
		recipe, err := store.GetRecipeByProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue // products without a recipe consume nothing
			}
			return nil, fmt.Errorf("get recipe: %w", err)
		}
		yield := numericToDecimal(recipe.YieldUnits)
		if yield.Sign() <= 0 {
			continue
		}

		details, err := store.ListRecipeItemDetails(ctx, recipe.ID)
		if err != nil {
			return nil, fmt.Errorf("list recipe items: %w", err)
		}
		orderedQty := numericToDecimal(item.Quantity)
		for _, d := range details {
			needed := numericToDecimal(d.Quantity).Div(yield).Mul(orderedQty)
			if r, ok := required[d.IngredientID]; ok {
				r.needed = r.needed.Add(needed)
			} else {
				required[d.IngredientID] = &requiredStock{
					name:   d.IngredientName,
					unit:   d.Unit,
					needed: needed,
				}
			}
		}
	}

	// Deterministic lock order across concurrent productions.
	ids := make([]uuid.UUID, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var warnings []string
	for _, id := range ids {
		req := required[id]

		ing, err := store.GetIngredientForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lock ingredient %s: %w", req.name, err)
		}
		available := numericToDecimal(ing.CurrentStock)
		remaining := available.Sub(req.needed)
		if remaining.IsNegative() {
			if !allowNegativeStock {
				return nil, &InsufficientStockError{
					Ingredient: req.name,
					Unit:       req.unit,
					Needed:     req.needed,
					Available:  available,
				}
			}
			warnings = append(warnings, fmt.Sprintf("%s driven negative: %s %s",
				req.name, remaining.StringFixed(2), req.unit))
		}

		if _, err := store.AddIngredientStock(ctx, database.AddIngredientStockParams{
			ID:    id,
			Delta: decimalToNumeric(req.needed.Neg()),
		}); err != nil {
			return nil, fmt.Errorf("deduct stock for %s: %w", req.name, err)
		}

		if _, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
			MovementType: enum.MovementTypeOut,
			Origin:       enum.MovementOriginProduction,
			IngredientID: id,
			Quantity:     decimalToNumeric(req.needed.Neg()),
			OrderID:      pgtype.UUID{Bytes: order.ID, Valid: true},
			Notes:        textOrNull("production of " + order.OrderNumber),
		}); err != nil {
			return nil, fmt.Errorf("record movement for %s: %w", req.name, err)
		}
	}
	return warnings, nil
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusDraft, enum.OrderStatusScheduled, enum.OrderStatusInProduction,
		enum.OrderStatusReady, enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}
