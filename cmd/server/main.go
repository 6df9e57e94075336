package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/directory"
	"github.com/lobbytrack/lobbytrack/internal/events"
	"github.com/lobbytrack/lobbytrack/internal/featureflags"
	"github.com/lobbytrack/lobbytrack/internal/handler"
	"github.com/lobbytrack/lobbytrack/internal/infrastructure/logger"
	"github.com/lobbytrack/lobbytrack/internal/infrastructure/redis"
	"github.com/lobbytrack/lobbytrack/internal/observability/metrics"
	"github.com/lobbytrack/lobbytrack/internal/observability/tracing"
	"github.com/lobbytrack/lobbytrack/internal/repository"
	"github.com/lobbytrack/lobbytrack/internal/security"
	"github.com/lobbytrack/lobbytrack/internal/security/audit"
	"github.com/lobbytrack/lobbytrack/internal/security/auth"
	"github.com/lobbytrack/lobbytrack/internal/security/middleware"
	"github.com/lobbytrack/lobbytrack/internal/security/ratelimit"
	"github.com/lobbytrack/lobbytrack/internal/service"
	"github.com/lobbytrack/lobbytrack/internal/worker"
	"github.com/lobbytrack/lobbytrack/pkg/config"
	"github.com/lobbytrack/lobbytrack/pkg/database"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBody = 8 << 20

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting lobbytrack server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "lobbytrack", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Initialize PostgreSQL and run migrations
	pool, err := database.NewConnectionPool(ctx, &database.Config{DSN: cfg.DatabaseURL}, log)
	if err != nil {
		log.Error("failed to connect to PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Redis client
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize repositories
	db := pool.GetDB()
	profileRepo := repository.NewPostgresProfileRepository(db, log)
	identityRepo := repository.NewPostgresIdentityRepository(db, log)
	vendorRepo := repository.NewPostgresVendorRepository(db, log)
	settingsRepo := repository.NewPostgresSettingsRepository(db, log)
	auditRepo := repository.NewPostgresAuditRepository(db, log)
	avatarRepo := repository.NewPostgresAvatarRepository(db)
	previewRepo := repository.NewPreviewRepository(redisClient, cfg.PreviewTTL, log)

	// 6. Initialize directory clients
	httpClient := tracing.NewHTTPClient(cfg.UpstreamTimeout)
	envCreds := directory.EnvCredentials{
		AzureTenantID:     cfg.AzureTenantID,
		AzureClientID:     cfg.AzureClientID,
		AzureClientSecret: cfg.AzureClientSecret,
		RampAPIToken:      cfg.RampAPIToken,
		RampClientID:      cfg.RampClientID,
		RampClientSecret:  cfg.RampClientSecret,
	}
	azureClient := directory.NewAzureClient(directory.AzureOptions{
		Settings:   settingsRepo,
		Env:        envCreds,
		HTTPClient: httpClient,
		LoginURL:   cfg.AzureLoginURL,
		GraphURL:   cfg.GraphURL,
		Logger:     log,
	})
	rampClient := directory.NewRampClient(directory.RampOptions{
		Settings:   settingsRepo,
		Env:        envCreds,
		HTTPClient: httpClient,
		BaseURL:    cfg.RampURL,
		Logger:     log,
	})

	// 7. Initialize services
	auditLogger := audit.NewLogger(auditRepo, log)
	hub := events.NewHub(32)
	reconciler := service.NewReconciler(profileRepo, identityRepo, vendorRepo, avatarRepo, log)
	syncService := service.NewSyncService(
		settingsRepo,
		azureClient,
		rampClient,
		reconciler,
		auditLogger,
		hub,
		featureflags.ParsePlan(cfg.PlanTier),
		log,
	)
	importService := service.NewImportService(
		azureClient,
		rampClient,
		profileRepo,
		vendorRepo,
		previewRepo,
		settingsRepo,
		reconciler,
		syncService,
		auditLogger,
		log,
	)
	settingsService := service.NewSettingsService(settingsRepo, auditLogger, log)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "lobbytrack")
	authService := service.NewAuthService(identityRepo, profileRepo, tokenManager, cfg.TokenTTL, log)
	if err := authService.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error("failed to seed admin", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Initialize handlers
	cronHandler := handler.NewCronSyncHandler(syncService, log)
	integrationsHandler := handler.NewIntegrationsHandler(importService, log)
	settingsHandler := handler.NewSettingsHandler(settingsService, log)
	auditHandler := handler.NewAuditHandler(auditRepo, log)
	avatarHandler := handler.NewAvatarHandler(avatarRepo, log)
	eventsHandler := handler.NewEventsHandler(hub, log, cfg.CORSAllowedOrigins)
	authHandler := handler.NewAuthHandler(authService, log)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"postgres": handler.PingFunc(pool.Health),
		"redis":    redisClient,
	}, log)

	// 8a. Initialize security components
	authz := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute)
	jwt := middleware.JWTMiddleware(tokenManager, log)
	limit := middleware.RateLimitMiddleware(rateLimiter, log)
	guarded := func(perm security.Permission, h http.Handler) http.Handler {
		return middleware.Chain(h, jwt, limit, middleware.RequirePermission(authz, perm, auditLogger))
	}

	// 9. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /api/auth/login", limit(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/password", middleware.Chain(http.HandlerFunc(authHandler.ChangePassword), jwt, limit))
	mux.Handle("POST /api/cron/sync", middleware.CronSecretMiddleware(cfg.CronSecret, log)(cronHandler))

	mux.Handle("GET /api/integrations/azure/users", guarded(security.PermManageIntegrations, http.HandlerFunc(integrationsHandler.PreviewUsers)))
	mux.Handle("GET /api/integrations/ramp/vendors", guarded(security.PermManageIntegrations, http.HandlerFunc(integrationsHandler.PreviewVendors)))
	mux.Handle("POST /api/integrations/azure/import", guarded(security.PermManageIntegrations, http.HandlerFunc(integrationsHandler.ImportUsers)))
	mux.Handle("POST /api/integrations/ramp/import", guarded(security.PermManageIntegrations, http.HandlerFunc(integrationsHandler.ImportVendors)))

	mux.Handle("GET /api/settings/sync", guarded(security.PermManageSettings, http.HandlerFunc(settingsHandler.GetSync)))
	mux.Handle("PUT /api/settings/sync/{lane}", guarded(security.PermManageSettings, http.HandlerFunc(settingsHandler.PutSync)))
	mux.Handle("GET /api/audit", guarded(security.PermViewAuditLog, auditHandler))
	mux.Handle("GET /api/avatars/{id}", avatarHandler)
	mux.Handle("GET /ws/sync/events", middleware.Chain(eventsHandler, jwt, middleware.RequirePermission(authz, security.PermViewSyncEvents, auditLogger)))

	// Chain middleware: request ID -> CORS -> tracing -> body limits -> metrics -> mux
	rootHandler := middleware.Chain(
		metrics.HTTPMetricsMiddleware(mux),
		middleware.RequestID(log),
		middleware.CORS(cfg.CORSAllowedOrigins),
		func(next http.Handler) http.Handler { return tracing.Handler(next, "lobbytrack") },
		middleware.MaxBodyBytes(maxRequestBody),
		middleware.ValidateJSONContentType(log),
	)

	// 10. Start the in-process sync ticker when configured
	syncWorker := worker.NewSyncWorker(syncService, log, cfg.SyncTickInterval)
	go syncWorker.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           rootHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Scheduled syncs page through whole directories inside the request
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("plan", cfg.PlanTier),
		slog.Int("rate_limit_per_minute", cfg.RateLimitPerMinute),
		slog.Duration("sync_tick_interval", cfg.SyncTickInterval),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop sync worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
