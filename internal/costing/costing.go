// Package costing holds the pure cost and price derivations. Nothing in
// here touches the database; values are recomputed on every read so an
// ingredient price edit shows up in recipe costs immediately.
package costing

import (
	"github.com/casabrownie/api/internal/enum"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IngredientUnitCost is the purchase price of one base unit (gram, ml,
// piece) of an ingredient. Returns zero when the package weight is not
// positive instead of dividing by zero.
func IngredientUnitCost(packagePrice, packageWeight decimal.Decimal) decimal.Decimal {
	if packageWeight.Sign() <= 0 {
		return decimal.Zero
	}
	return packagePrice.Div(packageWeight)
}

// EffectiveMinimum converts a stock threshold into base units. In PACKAGES
// mode the threshold counts whole packages, so it scales by the package
// weight; in BASE_UNITS mode it is already in base units.
func EffectiveMinimum(threshold decimal.Decimal, mode string, packageWeight decimal.Decimal) decimal.Decimal {
	if mode == enum.ThresholdModePackages {
		return threshold.Mul(packageWeight)
	}
	return threshold
}

// IsLowStock reports whether current stock sits at or below the effective
// minimum threshold.
func IsLowStock(currentStock, threshold decimal.Decimal, mode string, packageWeight decimal.Decimal) bool {
	return currentStock.Cmp(EffectiveMinimum(threshold, mode, packageWeight)) <= 0
}

// RecipeItemInput is one bill-of-materials line plus the ingredient pricing
// needed to cost it.
type RecipeItemInput struct {
	Quantity      decimal.Decimal
	PackagePrice  decimal.Decimal
	PackageWeight decimal.Decimal
}

type RecipeInput struct {
	YieldUnits decimal.Decimal
	LaborCost  decimal.Decimal
	LossPct    decimal.Decimal
	MarginPct  decimal.Decimal
	Items      []RecipeItemInput
}

type RecipeSummary struct {
	IngredientCost decimal.Decimal
	BatchCost      decimal.Decimal
	UnitCost       decimal.Decimal
	SuggestedPrice decimal.Decimal
}

// SummarizeRecipe rolls a recipe up into batch and per-unit cost:
//
//	batch = (Σ item.qty × ingredient unit cost + labor) × (1 + loss%/100)
//	unit  = batch / yield
//
// Yield of zero gives a zero unit cost, and margin at or above 100% gives a
// zero suggested price.
func SummarizeRecipe(in RecipeInput) RecipeSummary {
	ingredientCost := decimal.Zero
	for _, item := range in.Items {
		unitCost := IngredientUnitCost(item.PackagePrice, item.PackageWeight)
		ingredientCost = ingredientCost.Add(item.Quantity.Mul(unitCost))
	}

	lossFactor := decimal.NewFromInt(1).Add(in.LossPct.Div(hundred))
	batchCost := ingredientCost.Add(in.LaborCost).Mul(lossFactor)

	unitCost := decimal.Zero
	if in.YieldUnits.Sign() > 0 {
		unitCost = batchCost.Div(in.YieldUnits)
	}

	return RecipeSummary{
		IngredientCost: ingredientCost,
		BatchCost:      batchCost,
		UnitCost:       unitCost,
		SuggestedPrice: SuggestedPrice(unitCost, in.MarginPct),
	}
}

// SuggestedPrice backs the desired margin out of the unit cost. A margin of
// 100% or more has no finite price, so it returns zero.
func SuggestedPrice(unitCost, marginPct decimal.Decimal) decimal.Decimal {
	if marginPct.Cmp(hundred) >= 0 {
		return decimal.Zero
	}
	divisor := decimal.NewFromInt(1).Sub(marginPct.Div(hundred))
	if divisor.Sign() <= 0 {
		return decimal.Zero
	}
	return unitCost.Div(divisor)
}

// TierMetrics describes how one sale price performs against the unit cost.
type TierMetrics struct {
	Profit    decimal.Decimal
	MarginPct decimal.Decimal
	Markup    decimal.Decimal
}

func MetricsForPrice(tierPrice, unitCost decimal.Decimal) TierMetrics {
	m := TierMetrics{Profit: tierPrice.Sub(unitCost)}
	if tierPrice.Sign() > 0 {
		m.MarginPct = m.Profit.Div(tierPrice).Mul(hundred)
	}
	if unitCost.Sign() > 0 {
		m.Markup = tierPrice.Div(unitCost)
	}
	return m
}

// LineItem is an order line with the unit price captured at order time.
type LineItem struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type OrderTotals struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// TotalsForOrder computes subtotal and total the same way on every read.
// total = subtotal - discount + delivery fee.
func TotalsForOrder(items []LineItem, discount, deliveryFee decimal.Decimal) OrderTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitPrice))
	}
	return OrderTotals{
		Subtotal: subtotal,
		Total:    subtotal.Sub(discount).Add(deliveryFee),
	}
}

// DerivePaymentStatus maps the received sum against the order total.
// REVERSED is terminal and never recomputed away; an operator has to clear
// it by hand.
func DerivePaymentStatus(total, received decimal.Decimal, current string) string {
	if current == enum.PaymentStatusReversed {
		return enum.PaymentStatusReversed
	}
	if received.Sign() <= 0 {
		return enum.PaymentStatusUnpaid
	}
	if received.Cmp(total) >= 0 {
		return enum.PaymentStatusPaid
	}
	return enum.PaymentStatusPartial
}

// RealizedShare apportions an order-level figure (usually estimated profit)
// by the fraction of the total already received. Cash-basis reports use it
// for partially paid orders.
func RealizedShare(figure, received, total decimal.Decimal) decimal.Decimal {
	if total.Sign() <= 0 {
		return decimal.Zero
	}
	return figure.Mul(received).Div(total)
}
