package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/casabrownie/api/internal/costing"
	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/casabrownie/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// IngredientStore defines the database methods needed by ingredient handlers.
type IngredientStore interface {
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	UpdateIngredient(ctx context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error)
	DeactivateIngredient(ctx context.Context, id uuid.UUID) error
	ListStockMovementsByIngredient(ctx context.Context, arg database.ListStockMovementsByIngredientParams) ([]database.StockMovement, error)
}

// AdjustmentStore defines the tx-scoped methods for manual stock adjustments.
type AdjustmentStore interface {
	GetIngredientForUpdate(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	AddIngredientStock(ctx context.Context, arg database.AddIngredientStockParams) (database.Ingredient, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
}

type NewAdjustmentStore func(db database.DBTX) AdjustmentStore

// IngredientHandler handles ingredient endpoints.
type IngredientHandler struct {
	store    IngredientStore
	pool     service.TxBeginner
	newStore NewAdjustmentStore
}

func NewIngredientHandler(store IngredientStore, pool service.TxBeginner, newStore NewAdjustmentStore) *IngredientHandler {
	return &IngredientHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers ingredient endpoints on the given Chi router.
func (h *IngredientHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Deactivate)
	r.Post("/{id}/adjustments", h.Adjust)
	r.Get("/{id}/movements", h.Movements)
}

// --- Request / Response types ---

type ingredientRequest struct {
	Name          string `json:"name"`
	Unit          string `json:"unit"`
	PackageQty    string `json:"package_qty"`
	PackageWeight string `json:"package_weight"`
	PackagePrice  string `json:"package_price"`
	CurrentStock  string `json:"current_stock"`
	MinThreshold  string `json:"min_threshold"`
	ThresholdMode string `json:"threshold_mode"`
	IsActive      *bool  `json:"is_active"`
}

type ingredientResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Unit          string    `json:"unit"`
	PackageQty    string    `json:"package_qty"`
	PackageWeight string    `json:"package_weight"`
	PackagePrice  string    `json:"package_price"`
	CurrentStock  string    `json:"current_stock"`
	MinThreshold  string    `json:"min_threshold"`
	ThresholdMode string    `json:"threshold_mode"`
	IsActive      bool      `json:"is_active"`
	UnitCost      string    `json:"unit_cost"`
	EffectiveMin  string    `json:"effective_minimum"`
	IsLowStock    bool      `json:"is_low_stock"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type adjustStockRequest struct {
	Delta string `json:"delta"`
	Notes string `json:"notes"`
}

type movementResponse struct {
	ID           uuid.UUID `json:"id"`
	MovedAt      time.Time `json:"moved_at"`
	MovementType string    `json:"movement_type"`
	Origin       string    `json:"origin"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	Quantity     string    `json:"quantity"`
	OrderID      *string   `json:"order_id"`
	PurchaseID   *string   `json:"purchase_id"`
	Notes        *string   `json:"notes"`
}

// --- Handlers ---

// Create handles POST /ingredients.
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, errMsg := ingredientParamsFromRequest(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	ingredient, err := h.store.CreateIngredient(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbIngredientToResponse(ingredient))
}

// List handles GET /ingredients.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.store.ListIngredients(r.Context())
	if err != nil {
		log.Printf("ERROR: list ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = dbIngredientToResponse(ing)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /ingredients/{id}.
func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	ingredient, err := h.store.GetIngredient(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: get ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbIngredientToResponse(ingredient))
}

// Update handles PUT /ingredients/{id}. Stock is not editable here; it only
// moves through purchases, production, and adjustments.
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, errMsg := ingredientParamsFromRequest(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	ingredient, err := h.store.UpdateIngredient(r.Context(), database.UpdateIngredientParams{
		ID:            id,
		Name:          params.Name,
		Unit:          params.Unit,
		PackageQty:    params.PackageQty,
		PackageWeight: params.PackageWeight,
		PackagePrice:  params.PackagePrice,
		MinThreshold:  params.MinThreshold,
		ThresholdMode: params.ThresholdMode,
		IsActive:      isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: update ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbIngredientToResponse(ingredient))
}

// Deactivate handles DELETE /ingredients/{id}. Soft delete; history keeps
// referencing the row.
func (h *IngredientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	if err := h.store.DeactivateIngredient(r.Context(), id); err != nil {
		log.Printf("ERROR: deactivate ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Adjust handles POST /ingredients/{id}/adjustments. Applies a signed manual
// stock correction and records it as an ADJUSTMENT/MANUAL ledger entry, in
// one transaction.
func (h *IngredientHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	delta, err := decimal.NewFromString(req.Delta)
	if err != nil || delta.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must be a non-zero number"})
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx for adjustment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	txStore := h.newStore(tx)

	if _, err := txStore.GetIngredientForUpdate(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: lock ingredient for adjustment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var deltaNum pgtype.Numeric
	_ = deltaNum.Scan(delta.StringFixed(2))

	ingredient, err := txStore.AddIngredientStock(r.Context(), database.AddIngredientStockParams{
		ID:    id,
		Delta: deltaNum,
	})
	if err != nil {
		log.Printf("ERROR: apply adjustment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}
	if _, err := txStore.CreateStockMovement(r.Context(), database.CreateStockMovementParams{
		MovementType: enum.MovementTypeAdjustment,
		Origin:       enum.MovementOriginManual,
		IngredientID: id,
		Quantity:     deltaNum,
		Notes:        notes,
	}); err != nil {
		log.Printf("ERROR: record adjustment movement: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit adjustment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbIngredientToResponse(ingredient))
}

// Movements handles GET /ingredients/{id}/movements.
func (h *IngredientHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	limit, offset := paginationParams(r, 50)
	movements, err := h.store.ListStockMovementsByIngredient(r.Context(), database.ListStockMovementsByIngredientParams{
		IngredientID: id,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		log.Printf("ERROR: list stock movements: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]movementResponse, len(movements))
	for i, m := range movements {
		resp[i] = dbMovementToResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func ingredientParamsFromRequest(req ingredientRequest) (database.CreateIngredientParams, string) {
	var params database.CreateIngredientParams

	if req.Name == "" {
		return params, "name is required"
	}
	if req.Unit == "" {
		return params, "unit is required"
	}
	mode := req.ThresholdMode
	if mode == "" {
		mode = enum.ThresholdModeBaseUnits
	}
	if mode != enum.ThresholdModePackages && mode != enum.ThresholdModeBaseUnits {
		return params, "invalid threshold_mode"
	}

	parse := func(s, field string, out *pgtype.Numeric) string {
		if s == "" {
			s = "0"
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			return "invalid " + field
		}
		_ = out.Scan(d.StringFixed(2))
		return ""
	}

	params.Name = req.Name
	params.Unit = req.Unit
	params.ThresholdMode = mode
	if msg := parse(req.PackageQty, "package_qty", &params.PackageQty); msg != "" {
		return params, msg
	}
	if msg := parse(req.PackageWeight, "package_weight", &params.PackageWeight); msg != "" {
		return params, msg
	}
	if msg := parse(req.PackagePrice, "package_price", &params.PackagePrice); msg != "" {
		return params, msg
	}
	if msg := parse(req.CurrentStock, "current_stock", &params.CurrentStock); msg != "" {
		return params, msg
	}
	if msg := parse(req.MinThreshold, "min_threshold", &params.MinThreshold); msg != "" {
		return params, msg
	}
	return params, ""
}

func dbIngredientToResponse(ing database.Ingredient) ingredientResponse {
	packagePrice := numericToDec(ing.PackagePrice)
	packageWeight := numericToDec(ing.PackageWeight)
	current := numericToDec(ing.CurrentStock)
	threshold := numericToDec(ing.MinThreshold)

	unitCost := costing.IngredientUnitCost(packagePrice, packageWeight)
	effectiveMin := costing.EffectiveMinimum(threshold, ing.ThresholdMode, packageWeight)

	return ingredientResponse{
		ID:            ing.ID,
		Name:          ing.Name,
		Unit:          ing.Unit,
		PackageQty:    numericString(ing.PackageQty),
		PackageWeight: numericString(ing.PackageWeight),
		PackagePrice:  numericString(ing.PackagePrice),
		CurrentStock:  numericString(ing.CurrentStock),
		MinThreshold:  numericString(ing.MinThreshold),
		ThresholdMode: ing.ThresholdMode,
		IsActive:      ing.IsActive,
		UnitCost:      unitCost.StringFixed(4),
		EffectiveMin:  effectiveMin.StringFixed(2),
		IsLowStock:    current.Cmp(effectiveMin) <= 0,
		CreatedAt:     ing.CreatedAt,
		UpdatedAt:     ing.UpdatedAt,
	}
}

func dbMovementToResponse(m database.StockMovement) movementResponse {
	return movementResponse{
		ID:           m.ID,
		MovedAt:      m.MovedAt,
		MovementType: m.MovementType,
		Origin:       m.Origin,
		IngredientID: m.IngredientID,
		Quantity:     numericString(m.Quantity),
		OrderID:      uuidPtr(m.OrderID),
		PurchaseID:   uuidPtr(m.PurchaseID),
		Notes:        textPtr(m.Notes),
	}
}

func numericToDec(n pgtype.Numeric) decimal.Decimal {
	d, err := decimal.NewFromString(numericString(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func paginationParams(r *http.Request, defaultLimit int32) (int32, int32) {
	limit := defaultLimit
	offset := int32(0)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = int32(n)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = int32(n)
		}
	}
	return limit, offset
}
