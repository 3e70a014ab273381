package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	FullName       string
	HashedPassword string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Client struct {
	ID               uuid.UUID
	Name             string
	ClientType       string
	PreferredChannel string
	Phone            pgtype.Text
	Address          pgtype.Text
	Document         pgtype.Text
	PriceTier        string
	PaymentTermDays  int32
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Ingredient struct {
	ID            uuid.UUID
	Name          string
	Unit          string
	PackageQty    pgtype.Numeric
	PackageWeight pgtype.Numeric
	PackagePrice  pgtype.Numeric
	CurrentStock  pgtype.Numeric
	MinThreshold  pgtype.Numeric
	ThresholdMode string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Purchase struct {
	ID           uuid.UUID
	PurchaseDate pgtype.Date
	Supplier     pgtype.Text
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
	TotalCost    pgtype.Numeric
	Notes        pgtype.Text
	CreatedAt    time.Time
}

type Product struct {
	ID             uuid.UUID
	Name           string
	Sku            string
	Category       string
	SaleUnit       string
	RetailPrice    pgtype.Numeric
	WholesalePrice pgtype.Numeric
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Recipe struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	YieldUnits pgtype.Numeric
	LaborCost  pgtype.Numeric
	LossPct    pgtype.Numeric
	MarginPct  pgtype.Numeric
	UpdatedAt  time.Time
}

type RecipeItem struct {
	ID           uuid.UUID
	RecipeID     uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
	Kind         string
	Position     int32
}

type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	ClientID        uuid.UUID
	CreatedBy       pgtype.UUID
	Channel         string
	OrderDate       pgtype.Date
	ScheduledAt     pgtype.Timestamptz
	DeliveryType    string
	DeliveryAddress pgtype.Text
	Status          string
	PaymentStatus   string
	Discount        pgtype.Numeric
	DeliveryFee     pgtype.Numeric
	Notes           pgtype.Text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  pgtype.Numeric
	UnitPrice pgtype.Numeric
}

type Payment struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ReceivedOn pgtype.Date
	Method     string
	Amount     pgtype.Numeric
	CardFee    pgtype.Numeric
	Notes      pgtype.Text
	CreatedAt  time.Time
}

type StockMovement struct {
	ID           uuid.UUID
	MovedAt      time.Time
	MovementType string
	Origin       string
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
	OrderID      pgtype.UUID
	PurchaseID   pgtype.UUID
	Notes        pgtype.Text
}

type Expense struct {
	ID          uuid.UUID
	SpentOn     pgtype.Date
	Category    string
	Description string
	Amount      pgtype.Numeric
	Method      string
	Recurring   bool
	Notes       pgtype.Text
	CreatedAt   time.Time
}
