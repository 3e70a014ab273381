package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/casabrownie/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type mockOrderReadStore struct {
	orders    map[uuid.UUID]database.Order
	items     map[uuid.UUID][]database.OrderItem
	payments  map[uuid.UUID][]database.Payment
	received  map[uuid.UUID]pgtype.Numeric
	movements map[uuid.UUID][]database.StockMovement
}

func newMockOrderReadStore() *mockOrderReadStore {
	return &mockOrderReadStore{
		orders:    make(map[uuid.UUID]database.Order),
		items:     make(map[uuid.UUID][]database.OrderItem),
		payments:  make(map[uuid.UUID][]database.Payment),
		received:  make(map[uuid.UUID]pgtype.Numeric),
		movements: make(map[uuid.UUID][]database.StockMovement),
	}
}

func (m *mockOrderReadStore) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderReadStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	var out []database.Order
	for _, o := range m.orders {
		if arg.Status.Valid && o.Status != arg.Status.String {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOrderReadStore) ListOrderItems(_ context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.items[orderID], nil
}

func (m *mockOrderReadStore) ListPaymentsByOrder(_ context.Context, orderID uuid.UUID) ([]database.Payment, error) {
	return m.payments[orderID], nil
}

func (m *mockOrderReadStore) SumPaymentsByOrder(_ context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	if n, ok := m.received[orderID]; ok {
		return n, nil
	}
	var zero pgtype.Numeric
	_ = zero.Scan("0")
	return zero, nil
}

func (m *mockOrderReadStore) ListStockMovementsByOrder(_ context.Context, orderID uuid.UUID) ([]database.StockMovement, error) {
	return m.movements[orderID], nil
}

func newOrderReadRouter(store OrderReadStore) chi.Router {
	r := chi.NewRouter()
	// Read paths only; writes go through services covered by their own tests.
	h := NewOrderHandler(store, nil, nil, nil)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/movements", h.Movements)
	return r
}

func seedOrder(t *testing.T, store *mockOrderReadStore) uuid.UUID {
	t.Helper()
	orderID := uuid.New()
	store.orders[orderID] = database.Order{
		ID:            orderID,
		OrderNumber:   "BD-000007",
		ClientID:      uuid.New(),
		Channel:       "DIRECT",
		OrderDate:     pgtype.Date{Time: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Valid: true},
		DeliveryType:  "PICKUP",
		Status:        "SCHEDULED",
		PaymentStatus: "PARTIAL",
		Discount:      testNumeric(t, "2.00"),
		DeliveryFee:   testNumeric(t, "7.00"),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	store.items[orderID] = []database.OrderItem{
		{ID: uuid.New(), OrderID: orderID, ProductID: uuid.New(), Quantity: testNumeric(t, "2"), UnitPrice: testNumeric(t, "12.00")},
		{ID: uuid.New(), OrderID: orderID, ProductID: uuid.New(), Quantity: testNumeric(t, "3"), UnitPrice: testNumeric(t, "9.00")},
	}
	store.payments[orderID] = []database.Payment{
		{ID: uuid.New(), OrderID: orderID, ReceivedOn: pgtype.Date{Time: time.Now(), Valid: true}, Method: "PIX", Amount: testNumeric(t, "20.00"), CardFee: testNumeric(t, "0")},
	}
	store.received[orderID] = testNumeric(t, "20.00")
	return orderID
}

func TestGetOrderDetailDerivesTotals(t *testing.T) {
	store := newMockOrderReadStore()
	orderID := seedOrder(t, store)
	r := newOrderReadRouter(store)

	rec := doRequest(t, r, http.MethodGet, "/"+orderID.String(), nil)
	assertStatus(t, rec, http.StatusOK)

	var resp orderDetailResponse
	decodeBody(t, rec, &resp)

	// 2*12.00 + 3*9.00 = 51.00; minus 2.00 discount plus 7.00 fee = 56.00
	if resp.Subtotal != "51.00" {
		t.Errorf("subtotal: got %s, want 51.00", resp.Subtotal)
	}
	if resp.Total != "56.00" {
		t.Errorf("total: got %s, want 56.00", resp.Total)
	}
	if resp.AmountPaid != "20.00" {
		t.Errorf("amount_paid: got %s, want 20.00", resp.AmountPaid)
	}
	if resp.Balance != "36.00" {
		t.Errorf("balance: got %s, want 36.00", resp.Balance)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(resp.Items))
	}
	if resp.Items[0].LineTotal != "24.00" {
		t.Errorf("first line total: got %s, want 24.00", resp.Items[0].LineTotal)
	}
	if len(resp.Payments) != 1 {
		t.Fatalf("payments: got %d, want 1", len(resp.Payments))
	}
}

func TestGetOrderNotFound(t *testing.T) {
	r := newOrderReadRouter(newMockOrderReadStore())

	rec := doRequest(t, r, http.MethodGet, "/"+uuid.NewString(), nil)
	assertStatus(t, rec, http.StatusNotFound)
}

func TestListOrdersStatusFilter(t *testing.T) {
	store := newMockOrderReadStore()
	seedOrder(t, store)
	r := newOrderReadRouter(store)

	rec := doRequest(t, r, http.MethodGet, "/?status=SCHEDULED", nil)
	assertStatus(t, rec, http.StatusOK)
	var list []orderResponse
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("filtered list: got %d orders, want 1", len(list))
	}

	rec = doRequest(t, r, http.MethodGet, "/?status=DELIVERED", nil)
	assertStatus(t, rec, http.StatusOK)
	list = nil
	decodeBody(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("empty filter: got %d orders, want 0", len(list))
	}
}

func TestOrderMovementsListsProductionDeductions(t *testing.T) {
	store := newMockOrderReadStore()
	orderID := seedOrder(t, store)
	ingredientID := uuid.New()
	store.movements[orderID] = []database.StockMovement{
		{
			ID:           uuid.New(),
			MovedAt:      time.Now(),
			MovementType: "OUT",
			Origin:       "PRODUCTION",
			IngredientID: ingredientID,
			Quantity:     testNumeric(t, "100.00"),
			OrderID:      pgtype.UUID{Bytes: orderID, Valid: true},
		},
	}
	r := newOrderReadRouter(store)

	rec := doRequest(t, r, http.MethodGet, "/"+orderID.String()+"/movements", nil)
	assertStatus(t, rec, http.StatusOK)

	var resp []movementResponse
	decodeBody(t, rec, &resp)
	if len(resp) != 1 {
		t.Fatalf("movements: got %d, want 1", len(resp))
	}
	if resp[0].Origin != "PRODUCTION" {
		t.Errorf("origin: got %s, want PRODUCTION", resp[0].Origin)
	}
	if resp[0].Quantity != "100.00" {
		t.Errorf("quantity: got %s, want 100.00", resp[0].Quantity)
	}
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	r := newOrderReadRouter(newMockOrderReadStore())

	rec := doRequest(t, r, http.MethodGet, "/?status=TELEPORTED", nil)
	assertStatus(t, rec, http.StatusBadRequest)
}
