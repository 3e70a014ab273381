package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

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

// RecipeReadStore defines the read methods needed by recipe handlers.
type RecipeReadStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetRecipeByProduct(ctx context.Context, productID uuid.UUID) (database.Recipe, error)
	ListRecipeItemDetails(ctx context.Context, recipeID uuid.UUID) ([]database.ListRecipeItemDetailsRow, error)
}

// RecipeWriteStore defines the tx-scoped methods for saving a recipe. The
// item list is replaced wholesale on every save.
type RecipeWriteStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	UpsertRecipe(ctx context.Context, arg database.UpsertRecipeParams) (database.Recipe, error)
	DeleteRecipeItems(ctx context.Context, recipeID uuid.UUID) error
	CreateRecipeItem(ctx context.Context, arg database.CreateRecipeItemParams) (database.RecipeItem, error)
}

type NewRecipeWriteStore func(db database.DBTX) RecipeWriteStore

// RecipeHandler handles the recipe sub-resource of products.
type RecipeHandler struct {
	store    RecipeReadStore
	pool     service.TxBeginner
	newStore NewRecipeWriteStore
}

func NewRecipeHandler(store RecipeReadStore, pool service.TxBeginner, newStore NewRecipeWriteStore) *RecipeHandler {
	return &RecipeHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers recipe endpoints. Mounted at /products/{id}/recipe.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Put("/", h.Save)
	r.Get("/", h.Get)
}

// --- Request / Response types ---

type recipeItemRequest struct {
	IngredientID string `json:"ingredient_id"`
	Quantity     string `json:"quantity"`
	Kind         string `json:"kind"`
}

type saveRecipeRequest struct {
	YieldUnits string              `json:"yield_units"`
	LaborCost  string              `json:"labor_cost"`
	LossPct    string              `json:"loss_pct"`
	MarginPct  string              `json:"margin_pct"`
	Items      []recipeItemRequest `json:"items"`
}

type recipeItemResponse struct {
	IngredientID   uuid.UUID `json:"ingredient_id"`
	IngredientName string    `json:"ingredient_name"`
	Unit           string    `json:"unit"`
	Quantity       string    `json:"quantity"`
	Kind           string    `json:"kind"`
	UnitCost       string    `json:"unit_cost"`
	LineCost       string    `json:"line_cost"`
}

type tierMetricsResponse struct {
	Price     string `json:"price"`
	Profit    string `json:"profit"`
	MarginPct string `json:"margin_pct"`
	Markup    string `json:"markup"`
}

type recipeResponse struct {
	ProductID      uuid.UUID            `json:"product_id"`
	YieldUnits     string               `json:"yield_units"`
	LaborCost      string               `json:"labor_cost"`
	LossPct        string               `json:"loss_pct"`
	MarginPct      string               `json:"margin_pct"`
	Items          []recipeItemResponse `json:"items"`
	IngredientCost string               `json:"ingredient_cost"`
	BatchCost      string               `json:"batch_cost"`
	UnitCost       string               `json:"unit_cost"`
	SuggestedPrice string               `json:"suggested_price"`
	Retail         tierMetricsResponse  `json:"retail"`
	Wholesale      tierMetricsResponse  `json:"wholesale"`
}

// --- Handlers ---

// Save handles PUT /products/{id}/recipe. Upserts the recipe header and
// replaces the whole item list atomically.
func (h *RecipeHandler) Save(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req saveRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, itemParams, errMsg := recipeParamsFromRequest(productID, req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin tx for save recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	txStore := h.newStore(tx)

	if _, err := txStore.GetProduct(r.Context(), productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for save recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	recipe, err := txStore.UpsertRecipe(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: upsert recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := txStore.DeleteRecipeItems(r.Context(), recipe.ID); err != nil {
		log.Printf("ERROR: clear recipe items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	for _, item := range itemParams {
		item.RecipeID = recipe.ID
		if _, err := txStore.CreateRecipeItem(r.Context(), item); err != nil {
			log.Printf("ERROR: create recipe item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit save recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.Get(w, r)
}

// Get handles GET /products/{id}/recipe, returning the recipe with its full
// cost breakdown computed at read time.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	recipe, err := h.store.GetRecipeByProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product has no recipe"})
			return
		}
		log.Printf("ERROR: get recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	details, err := h.store.ListRecipeItemDetails(r.Context(), recipe.ID)
	if err != nil {
		log.Printf("ERROR: list recipe items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, buildRecipeResponse(product, recipe, details))
}

// --- Helpers ---

func recipeParamsFromRequest(productID uuid.UUID, req saveRecipeRequest) (database.UpsertRecipeParams, []database.CreateRecipeItemParams, string) {
	var params database.UpsertRecipeParams
	params.ProductID = productID

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

	if msg := parse(req.YieldUnits, "yield_units", &params.YieldUnits); msg != "" {
		return params, nil, msg
	}
	if msg := parse(req.LaborCost, "labor_cost", &params.LaborCost); msg != "" {
		return params, nil, msg
	}
	if msg := parse(req.LossPct, "loss_pct", &params.LossPct); msg != "" {
		return params, nil, msg
	}
	if msg := parse(req.MarginPct, "margin_pct", &params.MarginPct); msg != "" {
		return params, nil, msg
	}

	var items []database.CreateRecipeItemParams
	for i, item := range req.Items {
		ingredientID, err := uuid.Parse(item.IngredientID)
		if err != nil {
			return params, nil, "invalid ingredient_id"
		}
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil || qty.Sign() <= 0 {
			return params, nil, "item quantity must be > 0"
		}
		kind := item.Kind
		if kind == "" {
			kind = enum.RecipeItemKindIngredient
		}
		if kind != enum.RecipeItemKindIngredient && kind != enum.RecipeItemKindPackaging {
			return params, nil, "invalid item kind"
		}
		var qtyNum pgtype.Numeric
		_ = qtyNum.Scan(qty.StringFixed(2))
		items = append(items, database.CreateRecipeItemParams{
			IngredientID: ingredientID,
			Quantity:     qtyNum,
			Kind:         kind,
			Position:     int32(i),
		})
	}
	return params, items, ""
}

func buildRecipeResponse(product database.Product, recipe database.Recipe, details []database.ListRecipeItemDetailsRow) recipeResponse {
	in := costing.RecipeInput{
		YieldUnits: numericToDec(recipe.YieldUnits),
		LaborCost:  numericToDec(recipe.LaborCost),
		LossPct:    numericToDec(recipe.LossPct),
		MarginPct:  numericToDec(recipe.MarginPct),
	}

	items := make([]recipeItemResponse, len(details))
	for i, d := range details {
		qty := numericToDec(d.Quantity)
		unitCost := costing.IngredientUnitCost(numericToDec(d.PackagePrice), numericToDec(d.PackageWeight))
		in.Items = append(in.Items, costing.RecipeItemInput{
			Quantity:      qty,
			PackagePrice:  numericToDec(d.PackagePrice),
			PackageWeight: numericToDec(d.PackageWeight),
		})
		items[i] = recipeItemResponse{
			IngredientID:   d.IngredientID,
			IngredientName: d.IngredientName,
			Unit:           d.Unit,
			Quantity:       numericString(d.Quantity),
			Kind:           d.Kind,
			UnitCost:       unitCost.StringFixed(4),
			LineCost:       qty.Mul(unitCost).StringFixed(2),
		}
	}

	summary := costing.SummarizeRecipe(in)
	retailPrice := numericToDec(product.RetailPrice)
	wholesalePrice := numericToDec(product.WholesalePrice)
	retail := costing.MetricsForPrice(retailPrice, summary.UnitCost)
	wholesale := costing.MetricsForPrice(wholesalePrice, summary.UnitCost)

	return recipeResponse{
		ProductID:      recipe.ProductID,
		YieldUnits:     numericString(recipe.YieldUnits),
		LaborCost:      numericString(recipe.LaborCost),
		LossPct:        numericString(recipe.LossPct),
		MarginPct:      numericString(recipe.MarginPct),
		Items:          items,
		IngredientCost: summary.IngredientCost.StringFixed(2),
		BatchCost:      summary.BatchCost.StringFixed(2),
		UnitCost:       summary.UnitCost.StringFixed(2),
		SuggestedPrice: summary.SuggestedPrice.StringFixed(2),
		Retail: tierMetricsResponse{
			Price:     retailPrice.StringFixed(2),
			Profit:    retail.Profit.StringFixed(2),
			MarginPct: retail.MarginPct.StringFixed(2),
			Markup:    retail.Markup.StringFixed(2),
		},
		Wholesale: tierMetricsResponse{
			Price:     wholesalePrice.StringFixed(2),
			Profit:    wholesale.Profit.StringFixed(2),
			MarginPct: wholesale.MarginPct.StringFixed(2),
			Markup:    wholesale.Markup.StringFixed(2),
		},
	}
}
