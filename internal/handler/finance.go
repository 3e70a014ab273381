package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/casabrownie/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// FinanceHandler exposes the cash-basis dashboard and the operational
// report endpoints.
type FinanceHandler struct {
	reports *service.ReportService
}

func NewFinanceHandler(reports *service.ReportService) *FinanceHandler {
	return &FinanceHandler{reports: reports}
}

// RegisterRoutes registers finance and report endpoints on the given Chi
// router.
func (h *FinanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/finance/dashboard", h.Dashboard)
	r.Get("/reports/low-stock", h.LowStock)
	r.Get("/reports/upcoming", h.Upcoming)
}

type dashboardResponse struct {
	Year                  int    `json:"year"`
	Month                 int    `json:"month"`
	RealizedRevenue       string `json:"realized_revenue"`
	RealizedProfit        string `json:"realized_profit"`
	SettledOrders         int    `json:"settled_orders"`
	PartialOrders         int    `json:"partial_orders"`
	OutstandingReceivable string `json:"outstanding_receivable"`
	OpenOrders            int    `json:"open_orders"`
	CashReceived          string `json:"cash_received"`
	Expenses              string `json:"expenses"`
	NetResult             string `json:"net_result"`
}

type lowStockResponse struct {
	ingredientResponse
	Shortfall string `json:"shortfall"`
}

// Dashboard handles GET /finance/dashboard?year=&month=. Defaults to the
// current month.
func (h *FinanceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year or month"})
		return
	}

	d, err := h.reports.Dashboard(r.Context(), year, month)
	if err != nil {
		log.Printf("ERROR: finance dashboard: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Year:                  d.Year,
		Month:                 int(d.Month),
		RealizedRevenue:       d.RealizedRevenue.StringFixed(2),
		RealizedProfit:        d.RealizedProfit.StringFixed(2),
		SettledOrders:         d.SettledOrders,
		PartialOrders:         d.PartialOrders,
		OutstandingReceivable: d.OutstandingReceivable.StringFixed(2),
		OpenOrders:            d.OpenOrders,
		CashReceived:          d.CashReceived.StringFixed(2),
		Expenses:              d.Expenses.StringFixed(2),
		NetResult:             d.NetResult.StringFixed(2),
	})
}

// LowStock handles GET /reports/low-stock.
func (h *FinanceHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.reports.LowStock(r.Context())
	if err != nil {
		log.Printf("ERROR: low stock report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]lowStockResponse, len(items))
	for i, item := range items {
		resp[i] = lowStockResponse{
			ingredientResponse: dbIngredientToResponse(item.Ingredient),
			Shortfall:          item.EffectiveMinimum.Sub(item.CurrentStock).StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Upcoming handles GET /reports/upcoming?limit=.
func (h *FinanceHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	var limit int32
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = int32(n)
	}

	orders, err := h.reports.UpcomingScheduled(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: upcoming report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}
