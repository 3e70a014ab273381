package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/casabrownie/api/internal/middleware"
	"github.com/casabrownie/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentHandler handles payment endpoints. All writes go through the
// payment service so the order's payment status stays derived.
type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// RegisterOrderRoutes registers the per-order payment endpoints on the
// /orders router.
func (h *PaymentHandler) RegisterOrderRoutes(r chi.Router) {
	r.Post("/{id}/payments", h.Add)
	r.Post("/{id}/reversal", h.SetReversed)
}

// RegisterRoutes registers the standalone payment endpoints. Deleting a
// payment rewrites financial history, so only admins may do it.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Put("/{paymentID}", h.Update)
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Delete("/{paymentID}", h.Delete)
}

// --- Request / Response types ---

type paymentRequest struct {
	ReceivedOn string `json:"received_on"`
	Method     string `json:"method"`
	Amount     string `json:"amount"`
	CardFee    string `json:"card_fee"`
	Notes      string `json:"notes"`
}

type reversalRequest struct {
	Reversed bool `json:"reversed"`
}

type paymentResponse struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	ReceivedOn string    `json:"received_on"`
	Method     string    `json:"method"`
	Amount     string    `json:"amount"`
	CardFee    string    `json:"card_fee"`
	Notes      *string   `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Handlers ---

// Add handles POST /orders/{id}/payments.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.AddPayment(r.Context(), orderID, service.PaymentRequest{
		ReceivedOn: req.ReceivedOn,
		Method:     req.Method,
		Amount:     req.Amount,
		CardFee:    req.CardFee,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writePaymentError(w, "add payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"payment": dbPaymentToResponse(result.Payment),
		"order":   dbOrderToResponse(result.Order),
	})
}

// Update handles PUT /payments/{paymentID}.
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment ID"})
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.UpdatePayment(r.Context(), paymentID, service.PaymentRequest{
		ReceivedOn: req.ReceivedOn,
		Method:     req.Method,
		Amount:     req.Amount,
		CardFee:    req.CardFee,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writePaymentError(w, "update payment", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payment": dbPaymentToResponse(result.Payment),
		"order":   dbOrderToResponse(result.Order),
	})
}

// Delete handles DELETE /payments/{paymentID}. Admin-only; the order's
// payment status is rederived from the remaining payments.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment ID"})
		return
	}

	order, err := h.svc.DeletePayment(r.Context(), paymentID)
	if err != nil {
		h.writePaymentError(w, "delete payment", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order": dbOrderToResponse(*order),
	})
}

// SetReversed handles POST /orders/{id}/reversal. Marks the order REVERSED
// or clears the mark and rederives the status from its payments.
func (h *PaymentHandler) SetReversed(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req reversalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.SetReversed(r.Context(), orderID, req.Reversed)
	if err != nil {
		h.writePaymentError(w, "set reversal", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order": dbOrderToResponse(*order),
	})
}

// --- Helpers ---

func (h *PaymentHandler) writePaymentError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrPaymentNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrPaymentOrderGone):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	date := ""
	if p.ReceivedOn.Valid {
		date = p.ReceivedOn.Time.Format("2006-01-02")
	}
	return paymentResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		ReceivedOn: date,
		Method:     p.Method,
		Amount:     numericString(p.Amount),
		CardFee:    numericString(p.CardFee),
		Notes:      textPtr(p.Notes),
		CreatedAt:  p.CreatedAt,
	}
}
