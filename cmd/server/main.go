package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reviewdeck/reviewdeck/internal"
	"github.com/reviewdeck/reviewdeck/internal/cache"
	"github.com/reviewdeck/reviewdeck/internal/handler"
	"github.com/reviewdeck/reviewdeck/internal/metrics"
	"github.com/reviewdeck/reviewdeck/internal/middleware"
	"github.com/reviewdeck/reviewdeck/internal/service"
	"github.com/reviewdeck/reviewdeck/internal/storage"
	"github.com/reviewdeck/reviewdeck/internal/store"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Run migrations over database/sql; the app itself uses pgx directly.
	migrateDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := internal.RunMigrations(migrateDB); err != nil {
		migrateDB.Close()
		return fmt.Errorf("migration failed: %w", err)
	}
	migrateDB.Close()

	// Initialize connection pool and document store
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database pool failed: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database ready")

	docs := store.NewPostgresStore(pool, logger)

	// Optional Redis cache for review statistics.
	// snapshots stays a nil interface when caching is disabled; a typed nil
	// *cache.Cache would not count as disabled in the review service.
	var snapshots service.SnapshotCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.New(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisCache.Close()
		snapshots = redisCache
		logger.Info("Review cache enabled", "addr", cfg.RedisAddr)
	} else {
		logger.Info("Review cache disabled")
	}

	// Blob storage for business logos
	var blobs storage.Storage
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		blobs, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		blobs, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		TemplatesDir: cfg.TemplatesDir,
		Logger:       logger,
		IsDev:        cfg.Env == "development",
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}

	// Initialize services
	userService := service.NewUserService(docs, logger)
	accountService := service.NewAccountService(docs, blobs, logger)
	reviewService := service.NewReviewService(docs, snapshots, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	accessMw := middleware.NewAccessMiddleware(accountService, logger, isSecure)
	authLimiter := middleware.NewAuthRateLimiter(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	// Initialize handlers
	homeHandler := handler.NewHomeHandler(renderer, logger)
	authHandler := handler.NewAuthHandler(userService, authLimiter, renderer, logger, isSecure)
	dashboardHandler := handler.NewDashboardHandler(reviewService, renderer, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, renderer, logger)
	settingsHandler := handler.NewSettingsHandler(accountService, renderer, logger, isSecure)
	upgradeHandler := handler.NewUpgradeHandler(renderer, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Middleware stacks. Every page shares logging, security headers, and
	// request metrics. Gated pages additionally require an active trial or
	// subscription; /settings and /upgrade stay reachable when locked out.
	base := middleware.Stack(loggingMw.Handler, securityMw.Handler, metrics.Middleware)
	public := middleware.Stack(loggingMw.Handler, securityMw.Handler, metrics.Middleware, authMw.WithUser)
	signedIn := middleware.Stack(loggingMw.Handler, securityMw.Handler, metrics.Middleware, authMw.WithUser, authMw.RequireUser, accessMw.WithAccess)
	gated := middleware.Stack(loggingMw.Handler, securityMw.Handler, metrics.Middleware, authMw.WithUser, authMw.RequireUser, accessMw.WithAccess, accessMw.RequireActiveAccess)

	// Static files
	staticFS := http.FileServer(http.Dir(cfg.StaticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticFS))

	// Logo files when running on local storage
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Health check and metrics
	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Public pages
	mux.Handle("GET /", public(http.HandlerFunc(homeHandler.Show)))
	mux.Handle("GET /login", base(http.HandlerFunc(authHandler.ShowLogin)))
	mux.Handle("POST /login", base(authLimiter.LimitLogin(http.HandlerFunc(authHandler.Login))))
	mux.Handle("GET /register", base(http.HandlerFunc(authHandler.ShowRegister)))
	mux.Handle("POST /register", base(authLimiter.LimitRegister(http.HandlerFunc(authHandler.Register))))
	mux.Handle("POST /logout", base(http.HandlerFunc(authHandler.Logout)))

	// Gated pages (active trial or subscription required)
	mux.Handle("GET /dashboard", gated(http.HandlerFunc(dashboardHandler.Show)))
	mux.Handle("GET /reviews", gated(http.HandlerFunc(reviewHandler.Index)))

	// Signed-in pages that stay reachable after the trial ends
	mux.Handle("GET /settings/profile", signedIn(http.HandlerFunc(settingsHandler.ShowProfile)))
	mux.Handle("POST /settings/profile", signedIn(http.HandlerFunc(settingsHandler.UpdateProfile)))
	mux.Handle("POST /settings/logo", signedIn(http.HandlerFunc(settingsHandler.UploadLogo)))
	mux.Handle("GET /upgrade", signedIn(http.HandlerFunc(upgradeHandler.Show)))

	// ==========================================================================
	// Session janitor
	// ==========================================================================

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go runSessionJanitor(janitorCtx, userService, cfg.SessionCleanupInterval, logger)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	stopJanitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// runSessionJanitor periodically purges expired session documents.
func runSessionJanitor(ctx context.Context, users service.UserService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := users.DeleteExpiredSessions(ctx); err != nil {
				metrics.JanitorFailed()
				logger.Error("session cleanup failed", "error", err)
				continue
			}
			metrics.JanitorCompleted(time.Since(start))
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
