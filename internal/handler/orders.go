package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/casabrownie/api/internal/costing"
	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/casabrownie/api/internal/middleware"
	"github.com/casabrownie/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderReadStore defines the read methods needed by order handlers. The
// writes go through the order and production services.
type OrderReadStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	ListStockMovementsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.StockMovement, error)
}

// EventPublisher pushes order events to connected dashboard clients.
// Satisfied by *ws.Hub; nil disables publishing.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	store      OrderReadStore
	orders     *service.OrderService
	production *service.ProductionService
	events     EventPublisher
}

func NewOrderHandler(store OrderReadStore, orders *service.OrderService, production *service.ProductionService, events EventPublisher) *OrderHandler {
	return &OrderHandler{store: store, orders: orders, production: production, events: events}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/movements", h.Movements)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	ClientID        string                   `json:"client_id"`
	Channel         string                   `json:"channel"`
	OrderDate       string                   `json:"order_date"`
	ScheduledAt     string                   `json:"scheduled_at"`
	DeliveryType    string                   `json:"delivery_type"`
	DeliveryAddress string                   `json:"delivery_address"`
	Discount        string                   `json:"discount"`
	DeliveryFee     string                   `json:"delivery_fee"`
	Notes           string                   `json:"notes"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type updateOrderStatusRequest struct {
	Status             string `json:"status"`
	AllowNegativeStock bool   `json:"allow_negative_stock"`
}

type orderResponse struct {
	ID              uuid.UUID `json:"id"`
	OrderNumber     string    `json:"order_number"`
	ClientID        uuid.UUID `json:"client_id"`
	CreatedBy       *string   `json:"created_by"`
	Channel         string    `json:"channel"`
	OrderDate       string    `json:"order_date"`
	ScheduledAt     *string   `json:"scheduled_at"`
	DeliveryType    string    `json:"delivery_type"`
	DeliveryAddress *string   `json:"delivery_address"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	Discount        string    `json:"discount"`
	DeliveryFee     string    `json:"delivery_fee"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  string    `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
}

type orderDetailResponse struct {
	orderResponse
	Items      []orderItemResponse `json:"items"`
	Subtotal   string              `json:"subtotal"`
	Total      string              `json:"total"`
	AmountPaid string              `json:"amount_paid"`
	Balance    string              `json:"balance"`
	Payments   []paymentResponse   `json:"payments"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	createdBy := uuid.Nil
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		createdBy = claims.UserID
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}

	result, err := h.orders.CreateOrder(r.Context(), service.CreateOrderRequest{
		ClientID:        req.ClientID,
		CreatedBy:       createdBy,
		Channel:         req.Channel,
		OrderDate:       req.OrderDate,
		ScheduledAt:     req.ScheduledAt,
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: req.DeliveryAddress,
		Discount:        req.Discount,
		DeliveryFee:     req.DeliveryFee,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyItems),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidChannel),
			errors.Is(err, service.ErrInvalidDeliveryType),
			errors.Is(err, service.ErrInvalidClientID),
			errors.Is(err, service.ErrInvalidProductID),
			errors.Is(err, service.ErrInvalidOrderDate),
			errors.Is(err, service.ErrInvalidScheduledAt),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrProductInactive):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrClientNotFound),
			errors.Is(err, service.ErrProductNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	itemResponses := make([]orderItemResponse, len(result.Items))
	for i, it := range result.Items {
		itemResponses[i] = dbOrderItemToResponse(it)
	}

	resp := map[string]interface{}{
		"order":    dbOrderToResponse(result.Order),
		"items":    itemResponses,
		"subtotal": result.Subtotal.StringFixed(2),
		"total":    result.Total.StringFixed(2),
	}
	h.publish("order.created", map[string]interface{}{
		"order_id":     result.Order.ID,
		"order_number": result.Order.OrderNumber,
		"status":       result.Order.Status,
	})
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders. Accepts an optional ?status= filter.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var status pgtype.Text
	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatusParam(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		status = pgtype.Text{String: s, Valid: true}
	}

	limit, offset := paginationParams(r, 50)
	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}. Totals and balance are derived from the
// line items and payments; nothing financial is read off the order row
// besides discount and delivery fee.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItems(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	received, err := h.store.SumPaymentsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: sum order payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	lines := make([]costing.LineItem, len(items))
	itemResponses := make([]orderItemResponse, len(items))
	for i, it := range items {
		lines[i] = costing.LineItem{
			Quantity:  numericToDec(it.Quantity),
			UnitPrice: numericToDec(it.UnitPrice),
		}
		itemResponses[i] = dbOrderItemToResponse(it)
	}
	totals := costing.TotalsForOrder(lines, numericToDec(order.Discount), numericToDec(order.DeliveryFee))
	paid := numericToDec(received)

	paymentResponses := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResponses[i] = dbPaymentToResponse(p)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: dbOrderToResponse(order),
		Items:         itemResponses,
		Subtotal:      totals.Subtotal.StringFixed(2),
		Total:         totals.Total.StringFixed(2),
		AmountPaid:    paid.StringFixed(2),
		Balance:       totals.Total.Sub(paid).StringFixed(2),
		Payments:      paymentResponses,
	})
}

// Movements handles GET /orders/{id}/movements. Lists the stock movements
// the order caused, mainly the production deductions.
func (h *OrderHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if _, err := h.store.GetOrder(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	movements, err := h.store.ListStockMovementsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order movements: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]movementResponse, len(movements))
	for i, m := range movements {
		resp[i] = dbMovementToResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status. Moving into IN_PRODUCTION
// deducts ingredient stock once; insufficient stock comes back as a 409
// unless the caller allows going negative.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.production.TransitionStatus(r.Context(), id, req.Status, req.AllowNegativeStock)
	if err != nil {
		var stockErr *service.InsufficientStockError
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.As(err, &stockErr):
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":      stockErr.Error(),
				"ingredient": stockErr.Ingredient,
				"unit":       stockErr.Unit,
				"needed":     stockErr.Needed.StringFixed(2),
				"available":  stockErr.Available.StringFixed(2),
			})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.publish("order.status_changed", map[string]interface{}{
		"order_id":     result.Order.ID,
		"order_number": result.Order.OrderNumber,
		"status":       result.Order.Status,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order":    dbOrderToResponse(result.Order),
		"warnings": result.Warnings,
	})
}

func (h *OrderHandler) publish(event string, payload interface{}) {
	if h.events != nil {
		h.events.Publish(event, payload)
	}
}

// --- Helpers ---

func isValidOrderStatusParam(s string) bool {
	switch s {
	case enum.OrderStatusDraft, enum.OrderStatusScheduled, enum.OrderStatusInProduction,
		enum.OrderStatusReady, enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func dbOrderToResponse(o database.Order) orderResponse {
	orderDate := ""
	if o.OrderDate.Valid {
		orderDate = o.OrderDate.Time.Format("2006-01-02")
	}
	var scheduledAt *string
	if o.ScheduledAt.Valid {
		s := o.ScheduledAt.Time.Format(time.RFC3339)
		scheduledAt = &s
	}
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		ClientID:        o.ClientID,
		CreatedBy:       uuidPtr(o.CreatedBy),
		Channel:         o.Channel,
		OrderDate:       orderDate,
		ScheduledAt:     scheduledAt,
		DeliveryType:    o.DeliveryType,
		DeliveryAddress: textPtr(o.DeliveryAddress),
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		Discount:        numericString(o.Discount),
		DeliveryFee:     numericString(o.DeliveryFee),
		Notes:           textPtr(o.Notes),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func dbOrderItemToResponse(it database.OrderItem) orderItemResponse {
	qty := numericToDec(it.Quantity)
	price := numericToDec(it.UnitPrice)
	return orderItemResponse{
		ID:        it.ID,
		ProductID: it.ProductID,
		Quantity:  qty.StringFixed(2),
		UnitPrice: price.StringFixed(2),
		LineTotal: qty.Mul(price).StringFixed(2),
	}
}
