package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"plant-shop-platform/internal/config"
	"plant-shop-platform/internal/database"
	"plant-shop-platform/internal/handlers"
	"plant-shop-platform/internal/middleware"
	"plant-shop-platform/internal/repositories"
	"plant-shop-platform/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database connection
	db, err := database.NewConnection(database.Config{
		URL:          cfg.Database.URL,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		DBName:       cfg.Database.DBName,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Println("Database connection established successfully")

	// Run pending migrations on startup
	if err := db.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Session management for cart ownership
	sessionManager := middleware.NewSessionManager(cfg.Session.Secret, cfg.Server.Env == "production")

	// Initialize repositories
	plantRepo := repositories.NewPlantRepository(db.DB)
	cartRepo := repositories.NewCartRepository(db.DB)
	inventoryRepo := repositories.NewInventoryRepository(db.DB)
	orderRepo := repositories.NewOrderRepository(db.DB)
	paymentRepo := repositories.NewPaymentRepository(db.DB)

	// Gateway adapters fall back to in-memory mocks when unconfigured
	paymentService := services.NewMockPaymentService(&cfg.Stripe)
	emailService := services.NewMockEmailService(context.Background(), &cfg.SES)

	checkoutService := services.NewCheckoutService(
		cartRepo,
		inventoryRepo,
		orderRepo,
		paymentRepo,
		paymentService,
		emailService,
		cfg.Checkout.GatewayTimeout,
	)

	// Initialize handlers
	plantHandler := handlers.NewPlantHandler(plantRepo)
	cartHandler := handlers.NewCartHandler(cartRepo, sessionManager)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, orderRepo, sessionManager)
	orderHandler := handlers.NewOrderHandler(orderRepo, paymentRepo, checkoutService)

	// Set up router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoverMiddleware)
	r.Use(sessionManager.WithOwner)

	r.Route("/api", func(r chi.Router) {
		r.Get("/plants", plantHandler.ListPlants)
		r.Get("/plants/{id}", plantHandler.GetPlant)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.ShowCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddToCart)
			r.Put("/items/{plantID}", cartHandler.UpdateCartItem)
			r.Delete("/items/{plantID}", cartHandler.RemoveCartItem)
		})

		r.Post("/checkout", checkoutHandler.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.GetOrder)
			r.Get("/number/{orderNumber}", orderHandler.GetOrderByNumber)
			r.Post("/{id}/retry-payment", checkoutHandler.RetryPayment)
			r.Post("/{id}/resend-confirmation", orderHandler.ResendConfirmation)
		})
	})

	// Gateway return redirects land here
	r.Get("/checkout/payment/completed", checkoutHandler.PaymentCompleted)
	r.Get("/checkout/payment/cancelled", checkoutHandler.PaymentCancelled)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "Database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("Server failed:", err)
	}
}
