package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidChannel      = errors.New("invalid channel")
	ErrInvalidDeliveryType = errors.New("invalid delivery_type")
	ErrInvalidClientID     = errors.New("invalid client_id")
	ErrInvalidProductID    = errors.New("invalid product_id")
	ErrInvalidOrderDate    = errors.New("invalid order_date")
	ErrInvalidScheduledAt  = errors.New("invalid scheduled_at")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrClientNotFound      = errors.New("client not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductInactive     = errors.New("product is inactive")
)

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries bound to an open transaction.
type OrderStore interface {
	GetMaxOrderNumber(ctx context.Context) (string, error)
	GetClient(ctx context.Context, id uuid.UUID) (database.Client, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	ClientID        string
	CreatedBy       uuid.UUID
	Channel         string
	OrderDate       string // 2006-01-02, defaults to today
	ScheduledAt     string // RFC3339, optional
	DeliveryType    string
	DeliveryAddress string
	Discount        string
	DeliveryFee     string
	Notes           string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order. UnitPrice overrides
// the tier price when set; otherwise the client's price tier picks the
// retail or wholesale price and freezes it on the line.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  string
	UnitPrice string
}

// CreateOrderResult is the created order with its items and derived totals.
type CreateOrderResult struct {
	Order    database.Order
	Items    []database.OrderItem
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// OrderService handles order creation.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	prefix   string
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, prefix string) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, prefix: prefix}
}

type processedItem struct {
	productID uuid.UUID
	quantity  decimal.Decimal
	unitPrice decimal.Decimal
}

// CreateOrder validates, snapshots line prices, and creates an order
// atomically. Retries up to maxOrderNumberRetries times on order_number
// unique constraint violations (concurrent transactions can read the same
// MAX before either commits).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if !isValidChannel(req.Channel) {
		return nil, ErrInvalidChannel
	}
	if !isValidDeliveryType(req.DeliveryType) {
		return nil, ErrInvalidDeliveryType
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, ErrInvalidClientID
	}
	client, err := store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	orderNumber, err := s.nextOrderNumber(ctx, store)
	if err != nil {
		return nil, err
	}

	// --- Process items: validate + snapshot tier price ---
	var items []processedItem
	subtotal := decimal.Zero
	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil || qty.Sign() <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		product, err := store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrProductInactive)
		}

		unitPrice := tierPrice(product, client.PriceTier)
		if item.UnitPrice != "" {
			unitPrice, err = decimal.NewFromString(item.UnitPrice)
			if err != nil || unitPrice.IsNegative() {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidAmount)
			}
		}

		subtotal = subtotal.Add(qty.Mul(unitPrice))
		items = append(items, processedItem{productID: productID, quantity: qty, unitPrice: unitPrice})
	}

	discount := decimal.Zero
	if req.Discount != "" {
		discount, err = decimal.NewFromString(req.Discount)
		if err != nil || discount.IsNegative() {
			return nil, ErrInvalidAmount
		}
	}
	deliveryFee := decimal.Zero
	if req.DeliveryFee != "" {
		deliveryFee, err = decimal.NewFromString(req.DeliveryFee)
		if err != nil || deliveryFee.IsNegative() {
			return nil, ErrInvalidAmount
		}
	}

	orderDate := pgtype.Date{Time: time.Now(), Valid: true}
	if req.OrderDate != "" {
		t, err := time.Parse("2006-01-02", req.OrderDate)
		if err != nil {
			return nil, ErrInvalidOrderDate
		}
		orderDate = pgtype.Date{Time: t, Valid: true}
	}

	scheduledAt := pgtype.Timestamptz{}
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return nil, ErrInvalidScheduledAt
		}
		scheduledAt = pgtype.Timestamptz{Time: t, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     orderNumber,
		ClientID:        clientID,
		CreatedBy:       pgtype.UUID{Bytes: req.CreatedBy, Valid: req.CreatedBy != uuid.Nil},
		Channel:         req.Channel,
		OrderDate:       orderDate,
		ScheduledAt:     scheduledAt,
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: textOrNull(req.DeliveryAddress),
		Discount:        decimalToNumeric(discount),
		DeliveryFee:     decimalToNumeric(deliveryFee),
		Notes:           textOrNull(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var created []database.OrderItem
	for _, pi := range items {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: pi.productID,
			Quantity:  decimalToNumeric(pi.quantity),
			UnitPrice: decimalToNumeric(pi.unitPrice),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{
		Order:    order,
		Items:    created,
		Subtotal: subtotal,
		Total:    subtotal.Sub(discount).Add(deliveryFee),
	}, nil
}

// nextOrderNumber derives BD-000123 style numbers from the current maximum.
// The read is racy on purpose; the unique constraint plus the caller's
// retry loop make it safe.
func (s *OrderService) nextOrderNumber(ctx context.Context, store OrderStore) (string, error) {
	maxNumber, err := store.GetMaxOrderNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("get max order number: %w", err)
	}
	next := 1
	if rest, ok := strings.CutPrefix(maxNumber, s.prefix+"-"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s-%06d", s.prefix, next), nil
}

func tierPrice(p database.Product, tier string) decimal.Decimal {
	if tier == enum.PriceTierWholesale {
		return numericToDecimal(p.WholesalePrice)
	}
	return numericToDecimal(p.RetailPrice)
}

func isValidChannel(s string) bool {
	switch s {
	case enum.ChannelDirect, enum.ChannelWholesale:
		return true
	}
	return false
}

func isValidDeliveryType(s string) bool {
	switch s {
	case enum.DeliveryTypePickup, enum.DeliveryTypeDelivery:
		return true
	}
	return false
}
