package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casabrownie/api/internal/costing"
	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the payment service.
var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrInvalidDate      = errors.New("invalid date")
	ErrPaymentOrderGone = errors.New("order for payment not found")
)

// PaymentStore defines the DB methods needed for payment mutations and the
// payment-status recomputation that follows every one of them.
type PaymentStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (database.Payment, error)
	UpdatePayment(ctx context.Context, arg database.UpdatePaymentParams) (database.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	UpdateOrderPaymentStatus(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error)
}

type NewPaymentStore func(db database.DBTX) PaymentStore

// PaymentRequest is the input for adding or editing a payment.
type PaymentRequest struct {
	ReceivedOn string // 2006-01-02, defaults to today
	Method     string
	Amount     string
	CardFee    string
	Notes      string
}

// PaymentResult is the mutated payment and the order with its freshly
// derived payment status.
type PaymentResult struct {
	Payment database.Payment
	Order   database.Order
}

// PaymentService applies payment mutations and keeps each order's payment
// status derived from its data inside the same transaction.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
}

func NewPaymentService(pool TxBeginner, newStore NewPaymentStore) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore}
}

// AddPayment records a receipt against an order and rederives its status.
func (s *PaymentService) AddPayment(ctx context.Context, orderID uuid.UUID, req PaymentRequest) (*PaymentResult, error) {
	parsed, err := parsePaymentRequest(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:    order.ID,
		ReceivedOn: parsed.receivedOn,
		Method:     parsed.method,
		Amount:     decimalToNumeric(parsed.amount),
		CardFee:    decimalToNumeric(parsed.cardFee),
		Notes:      textOrNull(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	updated, err := recomputePaymentStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &PaymentResult{Payment: payment, Order: updated}, nil
}

// UpdatePayment edits a receipt and rederives the owning order's status.
func (s *PaymentService) UpdatePayment(ctx context.Context, paymentID uuid.UUID, req PaymentRequest) (*PaymentResult, error) {
	parsed, err := parsePaymentRequest(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	existing, err := store.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	order, err := store.GetOrderForUpdate(ctx, existing.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentOrderGone
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	payment, err := store.UpdatePayment(ctx, database.UpdatePaymentParams{
		ID:         paymentID,
		ReceivedOn: parsed.receivedOn,
		Method:     parsed.method,
		Amount:     decimalToNumeric(parsed.amount),
		CardFee:    decimalToNumeric(parsed.cardFee),
		Notes:      textOrNull(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	updated, err := recomputePaymentStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &PaymentResult{Payment: payment, Order: updated}, nil
}

// DeletePayment removes a receipt and rederives the owning order's status.
func (s *PaymentService) DeletePayment(ctx context.Context, paymentID uuid.UUID) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	existing, err := store.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	order, err := store.GetOrderForUpdate(ctx, existing.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentOrderGone
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := store.DeletePayment(ctx, paymentID); err != nil {
		return nil, fmt.Errorf("delete payment: %w", err)
	}

	updated, err := recomputePaymentStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// SetReversed hand-sets or clears the terminal REVERSED flag. Clearing it
// rederives the status from the order's payments.
func (s *PaymentService) SetReversed(ctx context.Context, orderID uuid.UUID, reversed bool) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	var updated database.Order
	if reversed {
		updated, err = store.UpdateOrderPaymentStatus(ctx, database.UpdateOrderPaymentStatusParams{
			ID:            order.ID,
			PaymentStatus: enum.PaymentStatusReversed,
		})
		if err != nil {
			return nil, fmt.Errorf("update payment status: %w", err)
		}
	} else {
		order.PaymentStatus = enum.PaymentStatusUnpaid // drop stickiness before rederiving
		updated, err = recomputePaymentStatus(ctx, store, order)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// recomputePaymentStatus rederives the payment status from the order total
// and the sum of receipts. Must run with the order row locked.
func recomputePaymentStatus(ctx context.Context, store PaymentStore, order database.Order) (database.Order, error) {
	items, err := store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("list order items: %w", err)
	}
	lines := make([]costing.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, costing.LineItem{
			Quantity:  numericToDecimal(item.Quantity),
			UnitPrice: numericToDecimal(item.UnitPrice),
		})
	}
	totals := costing.TotalsForOrder(lines, numericToDecimal(order.Discount), numericToDecimal(order.DeliveryFee))

	receivedNum, err := store.SumPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("sum payments: %w", err)
	}

	status := costing.DerivePaymentStatus(totals.Total, numericToDecimal(receivedNum), order.PaymentStatus)
	if status == order.PaymentStatus {
		return order, nil
	}
	updated, err := store.UpdateOrderPaymentStatus(ctx, database.UpdateOrderPaymentStatusParams{
		ID:            order.ID,
		PaymentStatus: status,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update payment status: %w", err)
	}
	return updated, nil
}

type parsedPayment struct {
	receivedOn pgtype.Date
	method     string
	amount     decimal.Decimal
	cardFee    decimal.Decimal
}

func parsePaymentRequest(req PaymentRequest) (parsedPayment, error) {
	var p parsedPayment

	if !isValidPaymentMethod(req.Method) {
		return p, ErrInvalidMethod
	}
	p.method = req.Method

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		return p, ErrInvalidAmount
	}
	p.amount = amount

	p.cardFee = decimal.Zero
	if req.CardFee != "" {
		fee, err := decimal.NewFromString(req.CardFee)
		if err != nil || fee.IsNegative() {
			return p, ErrInvalidAmount
		}
		p.cardFee = fee
	}

	p.receivedOn = pgtype.Date{Time: time.Now(), Valid: true}
	if req.ReceivedOn != "" {
		t, err := time.Parse("2006-01-02", req.ReceivedOn)
		if err != nil {
			return p, ErrInvalidDate
		}
		p.receivedOn = pgtype.Date{Time: t, Valid: true}
	}
	return p, nil
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodPix, enum.PaymentMethodCash,
		enum.PaymentMethodCard, enum.PaymentMethodTransfer:
		return true
	}
	return false
}
