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
	"github.com/shopspring/decimal"
)

// mockPaymentStore keeps payments in memory so the derived status can be
// checked after add, edit, and delete.
type mockPaymentStore struct {
	order    database.Order
	items    []database.OrderItem
	payments map[uuid.UUID]database.Payment
}

func (m *mockPaymentStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if id != m.order.ID {
		return database.Order{}, pgx.ErrNoRows
	}
	return m.order, nil
}
func (m *mockPaymentStore) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.items, nil
}
func (m *mockPaymentStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	p := database.Payment{
		ID:         uuid.New(),
		OrderID:    arg.OrderID,
		ReceivedOn: arg.ReceivedOn,
		Method:     arg.Method,
		Amount:     arg.Amount,
		CardFee:    arg.CardFee,
		Notes:      arg.Notes,
	}
	m.payments[p.ID] = p
	return p, nil
}
func (m *mockPaymentStore) GetPayment(ctx context.Context, id uuid.UUID) (database.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}
func (m *mockPaymentStore) UpdatePayment(ctx context.Context, arg database.UpdatePaymentParams) (database.Payment, error) {
	p, ok := m.payments[arg.ID]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	p.ReceivedOn = arg.ReceivedOn
	p.Method = arg.Method
	p.Amount = arg.Amount
	p.CardFee = arg.CardFee
	p.Notes = arg.Notes
	m.payments[arg.ID] = p
	return p, nil
}
func (m *mockPaymentStore) DeletePayment(ctx context.Context, id uuid.UUID) error {
	delete(m.payments, id)
	return nil
}
func (m *mockPaymentStore) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	sum := decimal.Zero
	for _, p := range m.payments {
		sum = sum.Add(numericToDecimal(p.Amount))
	}
	return decimalToNumeric(sum), nil
}
func (m *mockPaymentStore) UpdateOrderPaymentStatus(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error) {
	m.order.PaymentStatus = arg.PaymentStatus
	return m.order, nil
}

// paymentFixture builds an unpaid order with total 120.00 (one line of
// 10 x 12.00).
func paymentFixture() *mockPaymentStore {
	orderID := uuid.New()
	return &mockPaymentStore{
		order: database.Order{
			ID:            orderID,
			OrderNumber:   "BD-000009",
			Status:        enum.OrderStatusDelivered,
			PaymentStatus: enum.PaymentStatusUnpaid,
			Discount:      makeNumeric("0"),
			DeliveryFee:   makeNumeric("0"),
		},
		items: []database.OrderItem{
			{ID: uuid.New(), OrderID: orderID, Quantity: makeNumeric("10"), UnitPrice: makeNumeric("12.00")},
		},
		payments: map[uuid.UUID]database.Payment{},
	}
}

func newTestPaymentService(store *mockPaymentStore) *PaymentService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	return NewPaymentService(pool, func(db database.DBTX) PaymentStore { return store })
}

func pay(amount string) PaymentRequest {
	return PaymentRequest{Method: enum.PaymentMethodPix, Amount: amount}
}

func TestPaymentLifecycleDerivesStatus(t *testing.T) {
	store := paymentFixture()
	svc := newTestPaymentService(store)
	ctx := context.Background()

	first, err := svc.AddPayment(ctx, store.order.ID, pay("50.00"))
	if err != nil {
		t.Fatalf("add first payment: %v", err)
	}
	if first.Order.PaymentStatus != enum.PaymentStatusPartial {
		t.Errorf("after 50: got %s, want PARTIAL", first.Order.PaymentStatus)
	}

	second, err := svc.AddPayment(ctx, store.order.ID, pay("70.00"))
	if err != nil {
		t.Fatalf("add second payment: %v", err)
	}
	if second.Order.PaymentStatus != enum.PaymentStatusPaid {
		t.Errorf("after 120: got %s, want PAID", second.Order.PaymentStatus)
	}

	// Removing the second payment reverts to partial.
	order, err := svc.DeletePayment(ctx, second.Payment.ID)
	if err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if order.PaymentStatus != enum.PaymentStatusPartial {
		t.Errorf("after removal: got %s, want PARTIAL", order.PaymentStatus)
	}

	order, err = svc.DeletePayment(ctx, first.Payment.ID)
	if err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if order.PaymentStatus != enum.PaymentStatusUnpaid {
		t.Errorf("after removing all: got %s, want UNPAID", order.PaymentStatus)
	}
}

func TestUpdatePaymentRederivesStatus(t *testing.T) {
	store := paymentFixture()
	svc := newTestPaymentService(store)
	ctx := context.Background()

	result, err := svc.AddPayment(ctx, store.order.ID, pay("120.00"))
	if err != nil {
		t.Fatalf("add payment: %v", err)
	}
	if result.Order.PaymentStatus != enum.PaymentStatusPaid {
		t.Fatalf("precondition: got %s, want PAID", result.Order.PaymentStatus)
	}

	updated, err := svc.UpdatePayment(ctx, result.Payment.ID, pay("60.00"))
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if updated.Order.PaymentStatus != enum.PaymentStatusPartial {
		t.Errorf("after shrink: got %s, want PARTIAL", updated.Order.PaymentStatus)
	}
}

func TestReversedStatusIsSticky(t *testing.T) {
	store := paymentFixture()
	svc := newTestPaymentService(store)
	ctx := context.Background()

	if _, err := svc.SetReversed(ctx, store.order.ID, true); err != nil {
		t.Fatalf("set reversed: %v", err)
	}

	result, err := svc.AddPayment(ctx, store.order.ID, pay("120.00"))
	if err != nil {
		t.Fatalf("add payment: %v", err)
	}
	if result.Order.PaymentStatus != enum.PaymentStatusReversed {
		t.Errorf("after payment on reversed order: got %s, want REVERSED", result.Order.PaymentStatus)
	}
}

func TestClearReversedRederivesFromPayments(t *testing.T) {
	store := paymentFixture()
	svc := newTestPaymentService(store)
	ctx := context.Background()

	if _, err := svc.SetReversed(ctx, store.order.ID, true); err != nil {
		t.Fatalf("set reversed: %v", err)
	}
	if _, err := svc.AddPayment(ctx, store.order.ID, pay("50.00")); err != nil {
		t.Fatalf("add payment: %v", err)
	}

	order, err := svc.SetReversed(ctx, store.order.ID, false)
	if err != nil {
		t.Fatalf("clear reversed: %v", err)
	}
	if order.PaymentStatus != enum.PaymentStatusPartial {
		t.Errorf("after clear: got %s, want PARTIAL", order.PaymentStatus)
	}
}

func TestAddPaymentValidation(t *testing.T) {
	store := paymentFixture()
	svc := newTestPaymentService(store)
	ctx := context.Background()

	if _, err := svc.AddPayment(ctx, store.order.ID, PaymentRequest{Method: "IOU", Amount: "10"}); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("bad method: got %v, want ErrInvalidMethod", err)
	}
	if _, err := svc.AddPayment(ctx, store.order.ID, pay("-10")); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.AddPayment(ctx, uuid.New(), pay("10")); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("unknown order: got %v, want ErrOrderNotFound", err)
	}
}

func TestDeleteUnknownPayment(t *testing.T) {
	store := paymentFixture()
	svc := newTestPaymentService(store)

	if _, err := svc.DeletePayment(context.Background(), uuid.New()); !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("got %v, want ErrPaymentNotFound", err)
	}
}
