package handler

import (
	"context"
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
	"github.com/jackc/pgx/v5"
)

// PurchaseStore defines the read methods needed by purchase handlers. The
// writes go through the purchase service so stock and ledger stay in sync.
type PurchaseStore interface {
	ListPurchases(ctx context.Context, arg database.ListPurchasesParams) ([]database.Purchase, error)
	GetPurchase(ctx context.Context, id uuid.UUID) (database.Purchase, error)
}

// PurchaseHandler handles purchase endpoints.
type PurchaseHandler struct {
	store PurchaseStore
	svc   *service.PurchaseService
}

func NewPurchaseHandler(store PurchaseStore, svc *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{store: store, svc: svc}
}

// RegisterRoutes registers purchase endpoints on the given Chi router.
// Deletion reverses stock, so only admins may do it.
func (h *PurchaseHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Register)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type registerPurchaseRequest struct {
	PurchaseDate string `json:"purchase_date"`
	Supplier     string `json:"supplier"`
	IngredientID string `json:"ingredient_id"`
	Quantity     string `json:"quantity"`
	TotalCost    string `json:"total_cost"`
	Notes        string `json:"notes"`
}

type purchaseResponse struct {
	ID           uuid.UUID `json:"id"`
	PurchaseDate string    `json:"purchase_date"`
	Supplier     *string   `json:"supplier"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	Quantity     string    `json:"quantity"`
	TotalCost    string    `json:"total_cost"`
	Notes        *string   `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Handlers ---

// Register handles POST /purchases.
func (h *PurchaseHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Register(r.Context(), service.RegisterPurchaseRequest{
		PurchaseDate: req.PurchaseDate,
		Supplier:     req.Supplier,
		IngredientID: req.IngredientID,
		Quantity:     req.Quantity,
		TotalCost:    req.TotalCost,
		Notes:        req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidIngredient),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrInvalidDate):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrIngredientNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: register purchase: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"purchase":   dbPurchaseToResponse(result.Purchase),
		"ingredient": dbIngredientToResponse(result.Ingredient),
	})
}

// List handles GET /purchases.
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)
	purchases, err := h.store.ListPurchases(r.Context(), database.ListPurchasesParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Printf("ERROR: list purchases: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]purchaseResponse, len(purchases))
	for i, p := range purchases {
		resp[i] = dbPurchaseToResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /purchases/{id}.
func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid purchase ID"})
		return
	}

	purchase, err := h.store.GetPurchase(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "purchase not found"})
			return
		}
		log.Printf("ERROR: get purchase: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbPurchaseToResponse(purchase))
}

// Delete handles DELETE /purchases/{id}. Admin-only; reverses the stock
// increase directly.
func (h *PurchaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid purchase ID"})
		return
	}

	ingredient, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPurchaseNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrIngredientNotFound):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: delete purchase: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ingredient": dbIngredientToResponse(*ingredient),
	})
}

// --- Helpers ---

func dbPurchaseToResponse(p database.Purchase) purchaseResponse {
	date := ""
	if p.PurchaseDate.Valid {
		date = p.PurchaseDate.Time.Format("2006-01-02")
	}
	return purchaseResponse{
		ID:           p.ID,
		PurchaseDate: date,
		Supplier:     textPtr(p.Supplier),
		IngredientID: p.IngredientID,
		Quantity:     numericString(p.Quantity),
		TotalCost:    numericString(p.TotalCost),
		Notes:        textPtr(p.Notes),
		CreatedAt:    p.CreatedAt,
	}
}
