package service

import (
	"context"
	"testing"
	"time"

	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type mockReportStore struct {
	settled     []database.Order
	byStatus    map[string][]database.Order
	items       map[uuid.UUID][]database.OrderItem
	payments    map[uuid.UUID][]database.Payment
	recipes     map[uuid.UUID]database.Recipe
	recipeItems map[uuid.UUID][]database.ListRecipeItemDetailsRow
	cash        pgtype.Numeric
	expenses    pgtype.Numeric
	upcoming    []database.Order
	ingredients []database.Ingredient
}

func (m *mockReportStore) ListOrdersSettledBetween(ctx context.Context, arg database.ListOrdersSettledBetweenParams) ([]database.Order, error) {
	return m.settled, nil
}
func (m *mockReportStore) ListOrdersByPaymentStatus(ctx context.Context, statuses []string) ([]database.Order, error) {
	var out []database.Order
	for _, s := range statuses {
		out = append(out, m.byStatus[s]...)
	}
	return out, nil
}
func (m *mockReportStore) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.items[orderID], nil
}
func (m *mockReportStore) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error) {
	return m.payments[orderID], nil
}
func (m *mockReportStore) GetRecipeByProduct(ctx context.Context, productID uuid.UUID) (database.Recipe, error) {
	r, ok := m.recipes[productID]
	if !ok {
		return database.Recipe{}, pgx.ErrNoRows
	}
	return r, nil
}
func (m *mockReportStore) ListRecipeItemDetails(ctx context.Context, recipeID uuid.UUID) ([]database.ListRecipeItemDetailsRow, error) {
	return m.recipeItems[recipeID], nil
}
func (m *mockReportStore) SumPaymentsReceivedBetween(ctx context.Context, arg database.SumPaymentsReceivedBetweenParams) (pgtype.Numeric, error) {
	return m.cash, nil
}
func (m *mockReportStore) SumExpensesBetween(ctx context.Context, arg database.SumExpensesBetweenParams) (pgtype.Numeric, error) {
	return m.expenses, nil
}
func (m *mockReportStore) ListUpcomingOrders(ctx context.Context, limit int32) ([]database.Order, error) {
	if int(limit) < len(m.upcoming) {
		return m.upcoming[:limit], nil
	}
	return m.upcoming, nil
}
func (m *mockReportStore) ListActiveIngredients(ctx context.Context) ([]database.Ingredient, error) {
	return m.ingredients, nil
}

func TestDashboardCashBasis(t *testing.T) {
	// One settled order: total 120.00, no recipe cost, no card fees, so
	// realized profit equals the total. One partial order: total 120.00,
	// received 50.00, estimated profit 40.00 via recipe cost 8.00/unit on
	// 10 units (cost 80.00).
	settledID, partialID, productID, recipeID := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	store := &mockReportStore{
		settled: []database.Order{{
			ID:            settledID,
			PaymentStatus: enum.PaymentStatusPaid,
			Discount:      makeNumeric("0"),
			DeliveryFee:   makeNumeric("0"),
		}},
		byStatus: map[string][]database.Order{
			enum.PaymentStatusPartial: {{
				ID:            partialID,
				PaymentStatus: enum.PaymentStatusPartial,
				Discount:      makeNumeric("0"),
				DeliveryFee:   makeNumeric("0"),
			}},
		},
		items: map[uuid.UUID][]database.OrderItem{
			settledID: {{Quantity: makeNumeric("10"), UnitPrice: makeNumeric("12.00")}},
			partialID: {{ProductID: productID, Quantity: makeNumeric("10"), UnitPrice: makeNumeric("12.00")}},
		},
		payments: map[uuid.UUID][]database.Payment{
			settledID: {{Amount: makeNumeric("120.00"), CardFee: makeNumeric("0")}},
			partialID: {{Amount: makeNumeric("50.00"), CardFee: makeNumeric("0")}},
		},
		recipes: map[uuid.UUID]database.Recipe{
			// Batch of 10 units at 80.00 ingredient+labor cost, no loss.
			productID: {ID: recipeID, ProductID: productID, YieldUnits: makeNumeric("10"), LaborCost: makeNumeric("80.00"), LossPct: makeNumeric("0"), MarginPct: makeNumeric("0")},
		},
		recipeItems: map[uuid.UUID][]database.ListRecipeItemDetailsRow{recipeID: nil},
		cash:        makeNumeric("170.00"),
		expenses:    makeNumeric("45.00"),
	}
	svc := NewReportService(store)

	d, err := svc.Dashboard(context.Background(), 2026, time.August)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	// 120.00 settled + 50.00 partial slice.
	if d.RealizedRevenue.StringFixed(2) != "170.00" {
		t.Errorf("realized revenue: got %s, want 170.00", d.RealizedRevenue)
	}
	// Settled profit 120.00 + partial share 40.00 x 50/120 = 16.67.
	if d.RealizedProfit.Round(2).StringFixed(2) != "136.67" {
		t.Errorf("realized profit: got %s, want 136.67", d.RealizedProfit.Round(2))
	}
	if d.SettledOrders != 1 || d.PartialOrders != 1 {
		t.Errorf("order counts: got %d settled, %d partial", d.SettledOrders, d.PartialOrders)
	}
	// Partial order still owes 70.00.
	if d.OutstandingReceivable.StringFixed(2) != "70.00" {
		t.Errorf("receivable: got %s, want 70.00", d.OutstandingReceivable)
	}
	if d.CashReceived.StringFixed(2) != "170.00" {
		t.Errorf("cash: got %s, want 170.00", d.CashReceived)
	}
	if d.Expenses.StringFixed(2) != "45.00" {
		t.Errorf("expenses: got %s, want 45.00", d.Expenses)
	}
	if d.NetResult.StringFixed(2) != "125.00" {
		t.Errorf("net result: got %s, want 125.00", d.NetResult)
	}
}

func TestDashboardEmptyMonth(t *testing.T) {
	store := &mockReportStore{
		byStatus: map[string][]database.Order{},
		cash:     makeNumeric("0"),
		expenses: makeNumeric("0"),
	}
	svc := NewReportService(store)

	d, err := svc.Dashboard(context.Background(), 2026, time.January)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !d.RealizedRevenue.IsZero() || !d.NetResult.IsZero() || d.OpenOrders != 0 {
		t.Errorf("empty month should be all zeros, got %+v", d)
	}
}

func TestLowStock(t *testing.T) {
	store := &mockReportStore{
		ingredients: []database.Ingredient{
			{
				Name:          "flour",
				CurrentStock:  makeNumeric("1500"),
				MinThreshold:  makeNumeric("2"),
				ThresholdMode: enum.ThresholdModePackages,
				PackageWeight: makeNumeric("1000"),
			},
			{
				Name:          "cocoa",
				CurrentStock:  makeNumeric("900"),
				MinThreshold:  makeNumeric("500"),
				ThresholdMode: enum.ThresholdModeBaseUnits,
				PackageWeight: makeNumeric("250"),
			},
		},
	}
	svc := NewReportService(store)

	low, err := svc.LowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 1 {
		t.Fatalf("low items: got %d, want 1", len(low))
	}
	if low[0].Ingredient.Name != "flour" {
		t.Errorf("low ingredient: got %s, want flour", low[0].Ingredient.Name)
	}
	if low[0].EffectiveMinimum.StringFixed(2) != "2000.00" {
		t.Errorf("effective minimum: got %s, want 2000.00", low[0].EffectiveMinimum)
	}
}

func TestUpcomingScheduledDefaultLimit(t *testing.T) {
	store := &mockReportStore{
		upcoming: []database.Order{{ID: uuid.New()}, {ID: uuid.New()}},
	}
	svc := NewReportService(store)

	orders, err := svc.UpcomingScheduled(context.Background(), 0)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("orders: got %d, want 2", len(orders))
	}
}
