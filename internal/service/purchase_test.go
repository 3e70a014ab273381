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

type mockPurchaseStore struct {
	stock     map[uuid.UUID]pgtype.Numeric
	purchases map[uuid.UUID]database.Purchase
	movements []database.CreateStockMovementParams
}

func (m *mockPurchaseStore) GetIngredientForUpdate(ctx context.Context, id uuid.UUID) (database.Ingredient, error) {
	stock, ok := m.stock[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return database.Ingredient{ID: id, Name: "flour", Unit: "g", CurrentStock: stock}, nil
}
func (m *mockPurchaseStore) AddIngredientStock(ctx context.Context, arg database.AddIngredientStockParams) (database.Ingredient, error) {
	current := numericToDecimal(m.stock[arg.ID]).Add(numericToDecimal(arg.Delta))
	m.stock[arg.ID] = decimalToNumeric(current)
	return database.Ingredient{ID: arg.ID, CurrentStock: m.stock[arg.ID]}, nil
}
func (m *mockPurchaseStore) CreatePurchase(ctx context.Context, arg database.CreatePurchaseParams) (database.Purchase, error) {
	p := database.Purchase{
		ID:           uuid.New(),
		PurchaseDate: arg.PurchaseDate,
		Supplier:     arg.Supplier,
		IngredientID: arg.IngredientID,
		Quantity:     arg.Quantity,
		TotalCost:    arg.TotalCost,
		Notes:        arg.Notes,
	}
	m.purchases[p.ID] = p
	return p, nil
}
func (m *mockPurchaseStore) GetPurchase(ctx context.Context, id uuid.UUID) (database.Purchase, error) {
	p, ok := m.purchases[id]
	if !ok {
		return database.Purchase{}, pgx.ErrNoRows
	}
	return p, nil
}
func (m *mockPurchaseStore) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	delete(m.purchases, id)
	return nil
}
func (m *mockPurchaseStore) CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error) {
	m.movements = append(m.movements, arg)
	return database.StockMovement{ID: uuid.New()}, nil
}

func newTestPurchaseService(store *mockPurchaseStore) *PurchaseService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	return NewPurchaseService(pool, func(db database.DBTX) PurchaseStore { return store })
}

func TestRegisterPurchase(t *testing.T) {
	ingredientID := uuid.New()
	store := &mockPurchaseStore{
		stock:     map[uuid.UUID]pgtype.Numeric{ingredientID: makeNumeric("100")},
		purchases: map[uuid.UUID]database.Purchase{},
	}
	svc := newTestPurchaseService(store)

	result, err := svc.Register(context.Background(), RegisterPurchaseRequest{
		PurchaseDate: "2026-08-10",
		Supplier:     "Moinho Central",
		IngredientID: ingredientID.String(),
		Quantity:     "1000",
		TotalCost:    "30.00",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !numericEquals(result.Ingredient.CurrentStock, "1100.00") {
		t.Errorf("stock: got %v, want 1100.00", result.Ingredient.CurrentStock)
	}
	if len(store.movements) != 1 {
		t.Fatalf("movements: got %d, want 1", len(store.movements))
	}
	mv := store.movements[0]
	if mv.MovementType != enum.MovementTypeIn || mv.Origin != enum.MovementOriginPurchase {
		t.Errorf("movement tags: got %s/%s", mv.MovementType, mv.Origin)
	}
	if !mv.PurchaseID.Valid || mv.PurchaseID.Bytes != result.Purchase.ID {
		t.Errorf("movement should reference the purchase")
	}
}

func TestRegisterPurchaseValidation(t *testing.T) {
	ingredientID := uuid.New()
	store := &mockPurchaseStore{
		stock:     map[uuid.UUID]pgtype.Numeric{ingredientID: makeNumeric("0")},
		purchases: map[uuid.UUID]database.Purchase{},
	}
	svc := newTestPurchaseService(store)
	ctx := context.Background()

	base := RegisterPurchaseRequest{IngredientID: ingredientID.String(), Quantity: "10", TotalCost: "5.00"}

	bad := base
	bad.IngredientID = "nope"
	if _, err := svc.Register(ctx, bad); !errors.Is(err, ErrInvalidIngredient) {
		t.Errorf("bad id: got %v, want ErrInvalidIngredient", err)
	}

	bad = base
	bad.Quantity = "0"
	if _, err := svc.Register(ctx, bad); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero qty: got %v, want ErrInvalidQuantity", err)
	}

	bad = base
	bad.IngredientID = uuid.New().String()
	if _, err := svc.Register(ctx, bad); !errors.Is(err, ErrIngredientNotFound) {
		t.Errorf("unknown ingredient: got %v, want ErrIngredientNotFound", err)
	}
}

func TestDeletePurchaseReversesStock(t *testing.T) {
	ingredientID := uuid.New()
	store := &mockPurchaseStore{
		stock:     map[uuid.UUID]pgtype.Numeric{ingredientID: makeNumeric("100")},
		purchases: map[uuid.UUID]database.Purchase{},
	}
	svc := newTestPurchaseService(store)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterPurchaseRequest{
		IngredientID: ingredientID.String(),
		Quantity:     "1000",
		TotalCost:    "30.00",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ingredient, err := svc.Delete(ctx, result.Purchase.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !numericEquals(ingredient.CurrentStock, "100.00") {
		t.Errorf("stock after delete: got %v, want 100.00", ingredient.CurrentStock)
	}
	// Deletion subtracts directly; the IN entry stays as the only ledger record.
	if len(store.movements) != 1 {
		t.Errorf("movements: got %d, want 1", len(store.movements))
	}
	if len(store.purchases) != 0 {
		t.Errorf("purchases left: got %d, want 0", len(store.purchases))
	}
}

func TestDeleteUnknownPurchase(t *testing.T) {
	store := &mockPurchaseStore{
		stock:     map[uuid.UUID]pgtype.Numeric{},
		purchases: map[uuid.UUID]database.Purchase{},
	}
	svc := newTestPurchaseService(store)

	if _, err := svc.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrPurchaseNotFound) {
		t.Errorf("got %v, want ErrPurchaseNotFound", err)
	}
}
