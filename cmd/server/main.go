package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/convertia/backend/internal/config"
	"github.com/convertia/backend/internal/converter"
	"github.com/convertia/backend/internal/handler"
	appMiddleware "github.com/convertia/backend/internal/middleware"
	"github.com/convertia/backend/internal/repository"
	"github.com/convertia/backend/internal/service"
	"github.com/convertia/backend/internal/upload"
	"github.com/convertia/backend/pkg/payment"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx := context.Background()

	// Stores: postgres when DATABASE_URL is set, in-memory otherwise.
	var pool *pgxpool.Pool
	var accountRepo repository.AccountRepository
	var entitlementRepo repository.EntitlementRepository
	var transactionRepo repository.TransactionRepository
	var conversionRepo repository.ConversionRepository

	if cfg.DatabaseURL != "" {
		pool, err = repository.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Database error: %v", err)
		}
		defer pool.Close()

		if err := repository.RunMigrations(ctx, pool); err != nil {
			log.Fatalf("❌ Migration error: %v", err)
		}
		log.Println("✅ Database connected & migrated")

		accountRepo = repository.NewPostgresAccountRepository(pool)
		entitlementRepo = repository.NewPostgresEntitlementRepository(pool)
		transactionRepo = repository.NewPostgresTransactionRepository(pool)
		conversionRepo = repository.NewPostgresConversionRepository(pool)
	} else {
		log.Println("⚠️  DATABASE_URL not set, using in-memory stores (data is lost on restart)")
		accountRepo = repository.NewMemoryAccountRepository()
		entitlementRepo = repository.NewMemoryEntitlementRepository()
		transactionRepo = repository.NewMemoryTransactionRepository()
		conversionRepo = repository.NewMemoryConversionRepository()
	}

	// Upload store with TTL purge
	uploads := upload.NewStore(cfg.UploadTTL, cfg.MaxUploadBytes, cfg.MaxUploadPages)
	defer uploads.Close()

	// Payment gateway: PayPal when credentials are set, mock otherwise.
	var gateway payment.Gateway
	if cfg.PayPalClientID != "" && cfg.PayPalClientSecret != "" {
		gateway = payment.NewPayPalClient(
			cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalEnv,
			getEnv("PAYPAL_RETURN_URL", "https://convertia.mx/pago/completado"),
			getEnv("PAYPAL_CANCEL_URL", "https://convertia.mx/pago/cancelado"),
			cfg.PayPalPlanIDs,
		)
		log.Printf("✅ PayPal gateway configured (%s)", cfg.PayPalEnv)
	} else {
		gateway = payment.NewMockGateway()
		log.Println("⚠️  PayPal credentials not set, using mock gateway")
	}

	// Artifact generator: model-backed extractor when a key is set.
	var extractor converter.Extractor
	if cfg.ExtractorAPIKey != "" {
		extractor = converter.NewOpenAIExtractor(cfg.ExtractorAPIKey)
		log.Println("✅ Extractor API configured")
	} else {
		extractor = converter.NewStaticExtractor()
		log.Println("⚠️  EXTRACTOR_API_KEY not set, using static extractor")
	}
	statementConverter := converter.NewStatementConverter(extractor)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, service.NewGoogleVerifier(cfg.GoogleClientID), accountRepo)
	paymentSvc := service.NewPaymentService(gateway, transactionRepo, cfg.OneTimePrice, cfg.Currency)
	subscriptionSvc := service.NewSubscriptionService(gateway, entitlementRepo, transactionRepo, conversionRepo)
	convertSvc := service.NewConvertService(uploads, paymentSvc, subscriptionSvc, statementConverter, conversionRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	uploadHandler := handler.NewUploadHandler(uploads, cfg.MaxUploadBytes)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, convertSvc)
	convertHandler := handler.NewConvertHandler(convertSvc)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc, authSvc)
	plansHandler := handler.NewPlansHandler()
	healthHandler := handler.NewHealthHandler(pool)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Public routes
	r.Get("/health", healthHandler.Check)
	r.Get("/api/plans", plansHandler.List)

	// Login (strict rate limit)
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/google", authHandler.GoogleLogin)
	})

	// Pay-per-use routes: anonymous allowed, identity attached when present
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.OptionalAuth(authSvc))
		r.Post("/api/upload", uploadHandler.Upload)
		r.Post("/api/payment/capture-and-convert", paymentHandler.CaptureAndConvert)

		// Order creation hits the gateway; keep it on the strict limiter.
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.StrictRateLimiter())
			r.Post("/api/payment/order", paymentHandler.CreateOrder)
		})
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)
		r.Post("/api/convert", convertHandler.Convert)
		r.Post("/api/subscription", subscriptionHandler.Create)
		r.Post("/api/subscription/confirm", subscriptionHandler.Confirm)
		r.Delete("/api/subscription/{id}", subscriptionHandler.Cancel)
		r.Get("/api/entitlement", subscriptionHandler.Entitlement)
		r.Get("/api/dashboard", subscriptionHandler.Dashboard)
	})

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  60 * time.Second, // uploads can be slow on bad links
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("🛑 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("🚀 Convertia backend listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("❌ Server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
