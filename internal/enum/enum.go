package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusDraft        = "DRAFT"
	OrderStatusScheduled    = "SCHEDULED"
	OrderStatusInProduction = "IN_PRODUCTION"
	OrderStatusReady        = "READY"
	OrderStatusDelivered    = "DELIVERED"
	OrderStatusCancelled    = "CANCELLED"
)

const (
	PaymentStatusUnpaid   = "UNPAID"
	PaymentStatusPartial  = "PARTIAL"
	PaymentStatusPaid     = "PAID"
	PaymentStatusReversed = "REVERSED"
)

const (
	MovementTypeIn         = "IN"
	MovementTypeOut        = "OUT"
	MovementTypeAdjustment = "ADJUSTMENT"
)

const (
	MovementOriginPurchase   = "PURCHASE"
	MovementOriginProduction = "PRODUCTION"
	MovementOriginManual     = "MANUAL"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin = "ADMIN"
	UserRoleStaff = "STAFF"
)

const (
	ChannelDirect    = "DIRECT"
	ChannelWholesale = "WHOLESALE"
)

const (
	DeliveryTypePickup   = "PICKUP"
	DeliveryTypeDelivery = "DELIVERY"
)

const (
	ClientTypePerson  = "PERSON"
	ClientTypeCompany = "COMPANY"
)

const (
	PriceTierRetail    = "RETAIL"
	PriceTierWholesale = "WHOLESALE"
)

const (
	RecipeItemKindIngredient = "INGREDIENT"
	RecipeItemKindPackaging  = "PACKAGING"
)

const (
	ThresholdModePackages  = "PACKAGES"
	ThresholdModeBaseUnits = "BASE_UNITS"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodPix      = "PIX"
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	ExpenseCategoryIngredients = "INGREDIENTS"
	ExpenseCategoryPackaging   = "PACKAGING"
	ExpenseCategoryDelivery    = "DELIVERY"
	ExpenseCategoryMarketing   = "MARKETING"
	ExpenseCategoryRent        = "RENT"
	ExpenseCategoryUtilities   = "UTILITIES"
	ExpenseCategoryOther       = "OTHER"
)
