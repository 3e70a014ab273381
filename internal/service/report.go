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

// ReportStore defines the read-only DB methods behind the dashboards.
type ReportStore interface {
	ListOrdersSettledBetween(ctx context.Context, arg database.ListOrdersSettledBetweenParams) ([]database.Order, error)
	ListOrdersByPaymentStatus(ctx context.Context, statuses []string) ([]database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	GetRecipeByProduct(ctx context.Context, productID uuid.UUID) (database.Recipe, error)
	ListRecipeItemDetails(ctx context.Context, recipeID uuid.UUID) ([]database.ListRecipeItemDetailsRow, error)
	SumPaymentsReceivedBetween(ctx context.Context, arg database.SumPaymentsReceivedBetweenParams) (pgtype.Numeric, error)
	SumExpensesBetween(ctx context.Context, arg database.SumExpensesBetweenParams) (pgtype.Numeric, error)
	ListUpcomingOrders(ctx context.Context, limit int32) ([]database.Order, error)
	ListActiveIngredients(ctx context.Context) ([]database.Ingredient, error)
}

// ReportService computes the cash-basis dashboard and the operational
// snapshots. Everything is derived at read time; nothing here writes.
type ReportService struct {
	store ReportStore
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// MonthlyDashboard is the cash-basis view of one calendar month.
type MonthlyDashboard struct {
	Year  int
	Month time.Month

	// Realized figures. Fully paid orders land in the month of their last
	// receipt; partially paid orders contribute their received slice
	// regardless of month.
	RealizedRevenue decimal.Decimal
	RealizedProfit  decimal.Decimal
	SettledOrders   int
	PartialOrders   int

	// Receivable snapshot across all open orders, not month-bounded.
	OutstandingReceivable decimal.Decimal
	OpenOrders            int

	// Cash flow inside the month.
	CashReceived decimal.Decimal
	Expenses     decimal.Decimal
	NetResult    decimal.Decimal
}

// Dashboard builds the cash-basis dashboard for the given month.
func (s *ReportService) Dashboard(ctx context.Context, year int, month time.Month) (*MonthlyDashboard, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	fromDate := pgtype.Date{Time: from, Valid: true}
	toDate := pgtype.Date{Time: to, Valid: true}

	d := &MonthlyDashboard{
		Year:                  year,
		Month:                 month,
		RealizedRevenue:       decimal.Zero,
		RealizedProfit:        decimal.Zero,
		OutstandingReceivable: decimal.Zero,
	}

	// Fully paid orders realized by their last receipt date.
	recipeCache := map[uuid.UUID]decimal.Decimal{}
	settled, err := s.store.ListOrdersSettledBetween(ctx, database.ListOrdersSettledBetweenParams{
		From: fromDate,
		To:   toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("list settled orders: %w", err)
	}
	for _, order := range settled {
		fin, err := s.orderFinancials(ctx, order, recipeCache)
		if err != nil {
			return nil, err
		}
		d.RealizedRevenue = d.RealizedRevenue.Add(fin.total)
		d.RealizedProfit = d.RealizedProfit.Add(fin.total.Sub(fin.estimatedCost))
		d.SettledOrders++
	}

	// Partially paid orders contribute their received slice.
	partial, err := s.store.ListOrdersByPaymentStatus(ctx, []string{enum.PaymentStatusPartial})
	if err != nil {
		return nil, fmt.Errorf("list partial orders: %w", err)
	}
	for _, order := range partial {
		fin, err := s.orderFinancials(ctx, order, recipeCache)
		if err != nil {
			return nil, err
		}
		profit := fin.total.Sub(fin.estimatedCost)
		d.RealizedRevenue = d.RealizedRevenue.Add(fin.received)
		d.RealizedProfit = d.RealizedProfit.Add(costing.RealizedShare(profit, fin.received, fin.total))
		d.PartialOrders++
	}

	// Receivable snapshot across everything still open.
	open, err := s.store.ListOrdersByPaymentStatus(ctx, []string{
		enum.PaymentStatusUnpaid, enum.PaymentStatusPartial,
	})
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	for _, order := range open {
		fin, err := s.orderFinancials(ctx, order, recipeCache)
		if err != nil {
			return nil, err
		}
		outstanding := fin.total.Sub(fin.received)
		if outstanding.Sign() > 0 {
			d.OutstandingReceivable = d.OutstandingReceivable.Add(outstanding)
		}
		d.OpenOrders++
	}

	cashNum, err := s.store.SumPaymentsReceivedBetween(ctx, database.SumPaymentsReceivedBetweenParams{
		From: fromDate,
		To:   toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	d.CashReceived = numericToDecimal(cashNum)

	expNum, err := s.store.SumExpensesBetween(ctx, database.SumExpensesBetweenParams{
		From: fromDate,
		To:   toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}
	d.Expenses = numericToDecimal(expNum)
	d.NetResult = d.CashReceived.Sub(d.Expenses)

	return d, nil
}

type orderFinancials struct {
	total         decimal.Decimal
	received      decimal.Decimal
	estimatedCost decimal.Decimal
}

// orderFinancials derives total, sum received, and estimated cost for one
// order. Estimated cost is recipe unit cost per line plus card fees.
func (s *ReportService) orderFinancials(ctx context.Context, order database.Order, recipeCache map[uuid.UUID]decimal.Decimal) (orderFinancials, error) {
	var fin orderFinancials
	fin.estimatedCost = decimal.Zero

	items, err := s.store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return fin, fmt.Errorf("list order items: %w", err)
	}
	lines := make([]costing.LineItem, 0, len(items))
	for _, item := range items {
		qty := numericToDecimal(item.Quantity)
		lines = append(lines, costing.LineItem{
			Quantity:  qty,
			UnitPrice: numericToDecimal(item.UnitPrice),
		})
		unitCost, err := s.recipeUnitCost(ctx, item.ProductID, recipeCache)
		if err != nil {
			return fin, err
		}
		fin.estimatedCost = fin.estimatedCost.Add(qty.Mul(unitCost))
	}
	totals := costing.TotalsForOrder(lines, numericToDecimal(order.Discount), numericToDecimal(order.DeliveryFee))
	fin.total = totals.Total

	fin.received = decimal.Zero
	payments, err := s.store.ListPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return fin, fmt.Errorf("list payments: %w", err)
	}
	for _, p := range payments {
		fin.received = fin.received.Add(numericToDecimal(p.Amount))
		fin.estimatedCost = fin.estimatedCost.Add(numericToDecimal(p.CardFee))
	}
	return fin, nil
}

func (s *ReportService) recipeUnitCost(ctx context.Context, productID uuid.UUID, cache map[uuid.UUID]decimal.Decimal) (decimal.Decimal, error) {
	if c, ok := cache[productID]; ok {
		return c, nil
	}
	recipe, err := s.store.GetRecipeByProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			cache[productID] = decimal.Zero // no recipe, no cost
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("get recipe: %w", err)
	}
	details, err := s.store.ListRecipeItemDetails(ctx, recipe.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list recipe items: %w", err)
	}

	in := costing.RecipeInput{
		YieldUnits: numericToDecimal(recipe.YieldUnits),
		LaborCost:  numericToDecimal(recipe.LaborCost),
		LossPct:    numericToDecimal(recipe.LossPct),
		MarginPct:  numericToDecimal(recipe.MarginPct),
	}
	for _, d := range details {
		in.Items = append(in.Items, costing.RecipeItemInput{
			Quantity:      numericToDecimal(d.Quantity),
			PackagePrice:  numericToDecimal(d.PackagePrice),
			PackageWeight: numericToDecimal(d.PackageWeight),
		})
	}
	unitCost := costing.SummarizeRecipe(in).UnitCost
	cache[productID] = unitCost
	return unitCost, nil
}

// LowStockItem is one ingredient at or below its effective threshold.
type LowStockItem struct {
	Ingredient       database.Ingredient
	CurrentStock     decimal.Decimal
	EffectiveMinimum decimal.Decimal
}

// LowStock lists active ingredients sitting at or below their threshold.
func (s *ReportService) LowStock(ctx context.Context) ([]LowStockItem, error) {
	ingredients, err := s.store.ListActiveIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	var low []LowStockItem
	for _, ing := range ingredients {
		current := numericToDecimal(ing.CurrentStock)
		min := costing.EffectiveMinimum(
			numericToDecimal(ing.MinThreshold),
			ing.ThresholdMode,
			numericToDecimal(ing.PackageWeight),
		)
		if current.Cmp(min) <= 0 {
			low = append(low, LowStockItem{Ingredient: ing, CurrentStock: current, EffectiveMinimum: min})
		}
	}
	return low, nil
}

// UpcomingScheduled lists the next scheduled orders still in play.
func (s *ReportService) UpcomingScheduled(ctx context.Context, limit int32) ([]database.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListUpcomingOrders(ctx, limit)
}
