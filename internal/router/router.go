package router

import (
	"log"
	"net/http"

	"github.com/casabrownie/api/internal/config"
	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/handler"
	mw "github.com/casabrownie/api/internal/middleware"
	"github.com/casabrownie/api/internal/service"
	"github.com/casabrownie/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, // admin dev server
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services. Each one builds its own tx-scoped store off the pool.
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, cfg.OrderPrefix)
	productionService := service.NewProductionService(pool, func(db database.DBTX) service.ProductionStore {
		return database.New(db)
	})
	paymentService := service.NewPaymentService(pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	})
	purchaseService := service.NewPurchaseService(pool, func(db database.DBTX) service.PurchaseStore {
		return database.New(db)
	})
	reportService := service.NewReportService(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)

		// Clients
		clientHandler := handler.NewClientHandler(queries)
		r.Route("/clients", clientHandler.RegisterRoutes)

		// Ingredients (stock adjustments run in-handler transactions)
		ingredientHandler := handler.NewIngredientHandler(queries, pool, func(db database.DBTX) handler.AdjustmentStore {
			return database.New(db)
		})
		r.Route("/ingredients", ingredientHandler.RegisterRoutes)

		// Purchases
		purchaseHandler := handler.NewPurchaseHandler(queries, purchaseService)
		r.Route("/purchases", purchaseHandler.RegisterRoutes)

		// Products and their recipes
		productHandler := handler.NewProductHandler(queries)
		recipeHandler := handler.NewRecipeHandler(queries, pool, func(db database.DBTX) handler.RecipeWriteStore {
			return database.New(db)
		})
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterRoutes(r)
			r.Route("/{id}/recipe", recipeHandler.RegisterRoutes)
		})

		// Orders, status transitions, and per-order payments
		orderHandler := handler.NewOrderHandler(queries, orderService, productionService, hub)
		paymentHandler := handler.NewPaymentHandler(paymentService)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			paymentHandler.RegisterOrderRoutes(r)
		})

		// Standalone payment edits
		r.Route("/payments", paymentHandler.RegisterRoutes)

		// Expenses
		expenseHandler := handler.NewExpenseHandler(queries)
		r.Route("/expenses", expenseHandler.RegisterRoutes)

		// Finance dashboard and operational reports
		financeHandler := handler.NewFinanceHandler(reportService)
		financeHandler.RegisterRoutes(r)
	})

	log.Println("Router initialized with all handlers")
	return r
}
