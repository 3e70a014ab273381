package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/casabrownie/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ExpenseStore defines the database methods needed by expense handlers.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	ListExpensesBetween(ctx context.Context, arg database.ListExpensesBetweenParams) ([]database.Expense, error)
	SumExpensesBetween(ctx context.Context, arg database.SumExpensesBetweenParams) (pgtype.Numeric, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error
}

// ExpenseHandler handles expense endpoints.
type ExpenseHandler struct {
	store ExpenseStore
}

func NewExpenseHandler(store ExpenseStore) *ExpenseHandler {
	return &ExpenseHandler{store: store}
}

// RegisterRoutes registers expense endpoints on the given Chi router.
// Deletion is admin-only.
func (h *ExpenseHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.ListMonth)
	r.With(middleware.RequireRole(enum.UserRoleAdmin)).Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type expenseRequest struct {
	SpentOn     string `json:"spent_on"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	Recurring   bool   `json:"recurring"`
	Notes       string `json:"notes"`
}

type expenseResponse struct {
	ID          uuid.UUID `json:"id"`
	SpentOn     string    `json:"spent_on"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Method      string    `json:"method"`
	Recurring   bool      `json:"recurring"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Handlers ---

// Create handles POST /expenses.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Description == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
		return
	}
	if !isValidExpenseCategory(req.Category) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
		return
	}
	if req.Method != "" && !isValidPaymentMethod(req.Method) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid method"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be > 0"})
		return
	}

	spentOn := pgtype.Date{Time: time.Now(), Valid: true}
	if req.SpentOn != "" {
		t, err := time.Parse("2006-01-02", req.SpentOn)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid spent_on"})
			return
		}
		spentOn = pgtype.Date{Time: t, Valid: true}
	}

	var amountNum pgtype.Numeric
	_ = amountNum.Scan(amount.StringFixed(2))

	expense, err := h.store.CreateExpense(r.Context(), database.CreateExpenseParams{
		SpentOn:     spentOn,
		Category:    req.Category,
		Description: req.Description,
		Amount:      amountNum,
		Method:      req.Method,
		Recurring:   req.Recurring,
		Notes:       textOrNullHandler(req.Notes),
	})
	if err != nil {
		log.Printf("ERROR: create expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbExpenseToResponse(expense))
}

// ListMonth handles GET /expenses?year=&month=. Defaults to the current
// month. The response carries the month total alongside the rows.
func (h *ExpenseHandler) ListMonth(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year or month"})
		return
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	fromDate := pgtype.Date{Time: from, Valid: true}
	toDate := pgtype.Date{Time: to, Valid: true}

	expenses, err := h.store.ListExpensesBetween(r.Context(), database.ListExpensesBetweenParams{
		From: fromDate,
		To:   toDate,
	})
	if err != nil {
		log.Printf("ERROR: list expenses: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.SumExpensesBetween(r.Context(), database.SumExpensesBetweenParams{
		From: fromDate,
		To:   toDate,
	})
	if err != nil {
		log.Printf("ERROR: sum expenses: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = dbExpenseToResponse(e)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"year":     year,
		"month":    int(month),
		"expenses": resp,
		"total":    numericString(total),
	})
}

// Delete handles DELETE /expenses/{id}. Admin-only.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense ID"})
		return
	}

	if err := h.store.DeleteExpense(r.Context(), id); err != nil {
		log.Printf("ERROR: delete expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// yearMonthParams reads ?year= and ?month=, defaulting to the current
// month when both are absent.
func yearMonthParams(r *http.Request) (int, time.Month, bool) {
	now := time.Now()
	year, month := now.Year(), now.Month()

	if y := r.URL.Query().Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil || n < 2000 || n > 2100 {
			return 0, 0, false
		}
		year = n
	}
	if m := r.URL.Query().Get("month"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > 12 {
			return 0, 0, false
		}
		month = time.Month(n)
	}
	return year, month, true
}

func isValidExpenseCategory(s string) bool {
	switch s {
	case enum.ExpenseCategoryIngredients, enum.ExpenseCategoryPackaging,
		enum.ExpenseCategoryDelivery, enum.ExpenseCategoryMarketing,
		enum.ExpenseCategoryRent, enum.ExpenseCategoryUtilities,
		enum.ExpenseCategoryOther:
		return true
	}
	return false
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodPix, enum.PaymentMethodCash,
		enum.PaymentMethodCard, enum.PaymentMethodTransfer:
		return true
	}
	return false
}

func dbExpenseToResponse(e database.Expense) expenseResponse {
	date := ""
	if e.SpentOn.Valid {
		date = e.SpentOn.Time.Format("2006-01-02")
	}
	return expenseResponse{
		ID:          e.ID,
		SpentOn:     date,
		Category:    e.Category,
		Description: e.Description,
		Amount:      numericString(e.Amount),
		Method:      e.Method,
		Recurring:   e.Recurring,
		Notes:       textPtr(e.Notes),
		CreatedAt:   e.CreatedAt,
	}
}
