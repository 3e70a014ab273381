package service

import (
	"context"
	"errors"
	"testing"

	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// mockProductionStore keeps stock and the ledger in memory so deduction
// effects can be asserted across calls.
type mockProductionStore struct {
	order       database.Order
	items       []database.OrderItem
	recipes     map[uuid.UUID]database.Recipe
	recipeItems map[uuid.UUID][]database.ListRecipeItemDetailsRow
	stock       map[uuid.UUID]pgtype.Numeric
	names       map[uuid.UUID]string
	movements   []database.CreateStockMovementParams
}

func (m *mockProductionStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if id != m.order.ID {
		return database.Order{}, pgx.ErrNoRows
	}
	return m.order, nil
}
func (m *mockProductionStore) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.items, nil
}
func (m *mockProductionStore) GetRecipeByProduct(ctx context.Context, productID uuid.UUID) (database.Recipe, error) {
	r, ok := m.recipes[productID]
	if !ok {
		return database.Recipe{}, pgx.ErrNoRows
	}
	return r, nil
}
func (m *mockProductionStore) ListRecipeItemDetails(ctx context.Context, recipeID uuid.UUID) ([]database.ListRecipeItemDetailsRow, error) {
	return m.recipeItems[recipeID], nil
}
func (m *mockProductionStore) CountProductionMovementsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	for _, mv := range m.movements {
		if mv.Origin == enum.MovementOriginProduction && mv.OrderID.Valid && mv.OrderID.Bytes == orderID {
			n++
		}
	}
	return n, nil
}
func (m *mockProductionStore) GetIngredientForUpdate(ctx context.Context, id uuid.UUID) (database.Ingredient, error) {
	stock, ok := m.stock[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return database.Ingredient{ID: id, Name: m.names[id], Unit: "g", CurrentStock: stock}, nil
}
func (m *mockProductionStore) AddIngredientStock(ctx context.Context, arg database.AddIngredientStockParams) (database.Ingredient, error) {
	current := numericToDecimal(m.stock[arg.ID]).Add(numericToDecimal(arg.Delta))
	m.stock[arg.ID] = decimalToNumeric(current)
	return database.Ingredient{ID: arg.ID, CurrentStock: m.stock[arg.ID]}, nil
}
func (m *mockProductionStore) CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error) {
	m.movements = append(m.movements, arg)
	return database.StockMovement{ID: uuid.New(), IngredientID: arg.IngredientID, Quantity: arg.Quantity}, nil
}
func (m *mockProductionStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.order.Status = arg.Status
	return m.order, nil
}

// productionFixture builds an order of 6 units of a product whose recipe
// yields 12 units per batch and uses 200g flour plus 50g cocoa per batch.
// Deduction per ingredient is (batch qty / 12) x 6 = half a batch.
func productionFixture() (*mockProductionStore, uuid.UUID, uuid.UUID) {
	orderID := uuid.New()
	productID := uuid.New()
	recipeID := uuid.New()
	flourID := uuid.New()
	cocoaID := uuid.New()

	return &mockProductionStore{
		order: database.Order{ID: orderID, OrderNumber: "BD-000007", Status: enum.OrderStatusScheduled},
		items: []database.OrderItem{
			{ID: uuid.New(), OrderID: orderID, ProductID: productID, Quantity: makeNumeric("6")},
		},
		recipes: map[uuid.UUID]database.Recipe{
			productID: {ID: recipeID, ProductID: productID, YieldUnits: makeNumeric("12")},
		},
		recipeItems: map[uuid.UUID][]database.ListRecipeItemDetailsRow{
			recipeID: {
				{IngredientID: flourID, Quantity: makeNumeric("200"), IngredientName: "flour", Unit: "g"},
				{IngredientID: cocoaID, Quantity: makeNumeric("50"), IngredientName: "cocoa", Unit: "g"},
			},
		},
		stock: map[uuid.UUID]pgtype.Numeric{
			flourID: makeNumeric("500"),
			cocoaID: makeNumeric("500"),
		},
		names: map[uuid.UUID]string{flourID: "flour", cocoaID: "cocoa"},
	}, orderID, flourID
}

func newTestProductionService(store *mockProductionStore) *ProductionService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	return NewProductionService(pool, func(db database.DBTX) ProductionStore { return store })
}

func TestTransitionStatus_DeductsStockOnce(t *testing.T) {
	store, orderID, flourID := productionFixture()
	svc := newTestProductionService(store)

	result, err := svc.TransitionStatus(context.Background(), orderID, enum.OrderStatusInProduction, false)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if result.Order.Status != enum.OrderStatusInProduction {
		t.Errorf("status: got %s", result.Order.Status)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings: got %v", result.Warnings)
	}
	// 200/12*6 = 100g flour deducted.
	if !numericEquals(store.stock[flourID], "400.00") {
		t.Errorf("flour stock: got %v, want 400.00", store.stock[flourID])
	}
	if len(store.movements) != 2 {
		t.Fatalf("movements: got %d, want 2", len(store.movements))
	}
	if store.movements[0].Origin != enum.MovementOriginProduction || store.movements[0].MovementType != enum.MovementTypeOut {
		t.Errorf("movement tags: got %s/%s", store.movements[0].MovementType, store.movements[0].Origin)
	}
}

func TestTransitionStatus_SecondProductionIsNoOp(t *testing.T) {
	store, orderID, flourID := productionFixture()
	svc := newTestProductionService(store)

	if _, err := svc.TransitionStatus(context.Background(), orderID, enum.OrderStatusInProduction, false); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if _, err := svc.TransitionStatus(context.Background(), orderID, enum.OrderStatusInProduction, false); err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if !numericEquals(store.stock[flourID], "400.00") {
		t.Errorf("flour stock after replay: got %v, want 400.00", store.stock[flourID])
	}
	if len(store.movements) != 2 {
		t.Errorf("movements after replay: got %d, want 2", len(store.movements))
	}
}

func TestTransitionStatus_InsufficientStock(t *testing.T) {
	store, orderID, flourID := productionFixture()
	store.stock[flourID] = makeNumeric("50") // needs 100
	svc := newTestProductionService(store)

	_, err := svc.TransitionStatus(context.Background(), orderID, enum.OrderStatusInProduction, false)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("got %v, want InsufficientStockError", err)
	}
	if stockErr.Ingredient != "flour" {
		t.Errorf("ingredient: got %s", stockErr.Ingredient)
	}
	if stockErr.Needed.StringFixed(2) != "100.00" {
		t.Errorf("needed: got %s, want 100.00", stockErr.Needed)
	}
	if stockErr.Available.StringFixed(2) != "50.00" {
		t.Errorf("available: got %s, want 50.00", stockErr.Available)
	}
}

func TestTransitionStatus_NegativeStockOverride(t *testing.T) {
	store, orderID, flourID := productionFixture()
	store.stock[flourID] = makeNumeric("50")
	svc := newTestProductionService(store)

	result, err := svc.TransitionStatus(context.Background(), orderID, enum.OrderStatusInProduction, true)
	if err != nil {
		t.Fatalf("transition with override: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings: got %v, want exactly one", result.Warnings)
	}
	if !numericEquals(store.stock[flourID], "-50.00") {
		t.Errorf("flour stock: got %v, want -50.00", store.stock[flourID])
	}
}

func TestTransitionStatus_NonProductionSkipsDeduction(t *testing.T) {
	store, orderID, flourID := productionFixture()
	svc := newTestProductionService(store)

	result, err := svc.TransitionStatus(context.Background(), orderID, enum.OrderStatusReady, false)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if result.Order.Status != enum.OrderStatusReady {
		t.Errorf("status: got %s", result.Order.Status)
	}
	if !numericEquals(store.stock[flourID], "500") {
		t.Errorf("stock should be untouched, got %v", store.stock[flourID])
	}
}

func TestTransitionStatus_InvalidStatus(t *testing.T) {
	store, orderID, _ := productionFixture()
	svc := newTestProductionService(store)

	if _, err := svc.TransitionStatus(context.Background(), orderID, "TELEPORTED", false); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("got %v, want ErrInvalidStatus", err)
	}
}

func TestTransitionStatus_OrderNotFound(t *testing.T) {
	store, _, _ := productionFixture()
	svc := newTestProductionService(store)

	if _, err := svc.TransitionStatus(context.Background(), uuid.New(), enum.OrderStatusReady, false); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("got %v, want ErrOrderNotFound", err)
	}
}

func TestTransitionStatus_ProductWithoutRecipe(t *testing.T) {
	store, orderID, _ := productionFixture()
	store.recipes = map[uuid.UUID]database.Recipe{} // nothing to cook from
	svc := newTestProductionService(store)

	result, err := svc.TransitionStatus(context.Background(), orderID, enum.OrderStatusInProduction, false)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if len(store.movements) != 0 {
		t.Errorf("movements: got %d, want 0", len(store.movements))
	}
	if result.Order.Status != enum.OrderStatusInProduction {
		t.Errorf("status: got %s", result.Order.Status)
	}
}
