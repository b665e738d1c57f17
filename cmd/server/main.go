package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deedflowhq/deedflow/internal/config"
	"github.com/deedflowhq/deedflow/internal/database"
	"github.com/deedflowhq/deedflow/internal/handlers"
	"github.com/deedflowhq/deedflow/internal/logging"
	"github.com/deedflowhq/deedflow/internal/metrics"
	"github.com/deedflowhq/deedflow/internal/middleware"
	"github.com/deedflowhq/deedflow/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("Starting DeedFlow server...")

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Metrics registry
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(dbAdapter, redisAdapter)
	deedService := services.NewDeedService(dbAdapter)
	notifier := services.NewNotifier(&cfg.Email)
	shareService := services.NewShareService(dbAdapter, notifier, collector)
	adminService := services.NewAdminService(dbAdapter)

	var billing services.BillingProvider
	if cfg.Stripe.Stub || cfg.Stripe.SecretKey == "" {
		logger.Warn("Using stub billing provider; no Stripe key configured")
		billing = services.NewStubBilling()
	} else {
		billing = services.NewStripeBilling(cfg.Stripe.SecretKey)
	}
	paymentService := services.NewPaymentService(dbAdapter, billing)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(userService, authService, cfg.Server.Secure)
	deedHandler := handlers.NewDeedHandler(deedService)
	shareHandler := handlers.NewShareHandler(shareService)
	approvalHandler := handlers.NewApprovalHandler(shareService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)
	authLimiter := middleware.NewAuthRateLimiter(redisDB.Client)
	approvalLimiter := middleware.NewApprovalRateLimiter(redisDB.Client)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(h)
	}

	// Set up router
	mux := http.NewServeMux()

	// Health and metrics endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.Handle("GET /metrics", metrics.Handler(registry))

	// Auth endpoints
	mux.Handle("POST /api/auth/register", authLimiter.Limit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authLimiter.Limit(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/me", requireAuth(authHandler.Me))

	// Deed endpoints
	mux.Handle("POST /api/deeds", requireAuth(deedHandler.Create))
	mux.Handle("GET /api/deeds", requireAuth(deedHandler.List))
	mux.Handle("GET /api/deeds/{id}", requireAuth(deedHandler.Get))
	mux.Handle("PUT /api/deeds/{id}", requireAuth(deedHandler.Update))
	mux.Handle("POST /api/deeds/{id}/finalize", requireAuth(deedHandler.Finalize))
	mux.Handle("DELETE /api/deeds/{id}", requireAuth(deedHandler.Delete))

	// Owner-facing share endpoints
	mux.Handle("POST /api/shared-deeds", requireAuth(shareHandler.Create))
	mux.Handle("GET /api/shared-deeds", requireAuth(shareHandler.List))
	mux.Handle("POST /api/shared-deeds/{id}/resend", requireAuth(shareHandler.Resend))
	mux.Handle("DELETE /api/shared-deeds/{id}", requireAuth(shareHandler.Revoke))

	// Public approval endpoints (token is the credential)
	mux.Handle("GET /approve/{token}", approvalLimiter.Limit(http.HandlerFunc(approvalHandler.View)))
	mux.Handle("POST /approve/{token}", approvalLimiter.Limit(http.HandlerFunc(approvalHandler.Respond)))

	// Payment method endpoints
	mux.Handle("POST /api/payment-methods", requireAuth(paymentHandler.Attach))
	mux.Handle("GET /api/payment-methods", requireAuth(paymentHandler.List))
	mux.Handle("PUT /api/payment-methods/{id}/default", requireAuth(paymentHandler.SetDefault))
	mux.Handle("DELETE /api/payment-methods/{id}", requireAuth(paymentHandler.Detach))

	// Admin endpoints
	mux.Handle("GET /api/admin/report", authMiddleware.RequireAdmin(http.HandlerFunc(adminHandler.Report)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
