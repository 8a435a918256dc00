package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/service-desk-sla/internal/adapters/primary/http"
	mw "github.com/lorrc/service-desk-sla/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-sla/internal/adapters/secondary/cache"
	"github.com/lorrc/service-desk-sla/internal/adapters/secondary/email"
	"github.com/lorrc/service-desk-sla/internal/adapters/secondary/postgres"
	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/config"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/services"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Initialize Database Pool and Schema
	if cfg.Database.MigrationsDir != "" {
		applied, err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsDir)
		if err != nil {
			logger.Error("database migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database schema up to date", "applied", applied)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Breach Ledger (Redis when configured, otherwise in-process)
	var (
		ledger      ports.BreachLedger
		redisHealth httpAdapter.HealthChecker
	)
	if cfg.Redis.Addr != "" {
		redisClient := cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		defer func() {
			_ = redisClient.Close()
		}()
		ledger = cache.NewRedisBreachLedger(redisClient, cfg.SLA.BreachLedgerTTL)
		redisHealth = httpAdapter.HealthCheckFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	} else {
		logger.Warn("REDIS_ADDR not set, breach alerts are deduplicated in memory only")
		ledger = cache.NewMemoryBreachLedger(cfg.SLA.BreachLedgerTTL)
	}

	// 5. Tenant provisioning defaults
	defaults := domain.DefaultTenantDefaults()
	if cfg.SLA.DefaultsFile != "" {
		defaults, err = config.LoadTenantDefaults(cfg.SLA.DefaultsFile)
		if err != nil {
			logger.Error("failed to load sla defaults", "path", cfg.SLA.DefaultsFile, "error", err)
			os.Exit(1)
		}
		logger.Info("sla defaults loaded", "path", cfg.SLA.DefaultsFile)
	}

	// 6. Dependency Injection (Wiring the Hexagon)
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	if cfg.JWT.Issuer != "" {
		tokenManager = tokenManager.WithIssuer(cfg.JWT.Issuer)
	}

	// Repositories (Secondary Adapters)
	txManager := postgres.NewTransactionManager(pool)
	userRepo := postgres.NewUserRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	tenantRepo := postgres.NewTenantRepository(pool)
	eventRepo := postgres.NewTicketEventRepository(pool)
	authzRepo := postgres.NewAuthorizationRepository(pool)
	commentRepo := postgres.NewCommentRepository(pool)
	reportRepo := postgres.NewSLAReportRepository(pool)

	// Notifier (Secondary Adapter)
	notifier := email.NewLogNotifier(userRepo, logger)

	// The hub authorizes subscriptions through the ticket service, which in
	// turn broadcasts through the hub.
	var ticketService *services.TicketService
	hub := websocket.NewHub(websocket.HubConfig{
		PingInterval: cfg.WebSocket.PingInterval,
		PongWait:     cfg.WebSocket.PongWait,
	}, func(ctx context.Context, tenantID, userID uuid.UUID, ticketID int64) error {
		return websocket.TicketAuthorizer(ticketService)(ctx, tenantID, userID, ticketID)
	}, logger)

	// Services (Core)
	opts := []services.Option{services.WithLogger(logger)}
	authzService := services.NewAuthorizationService(authzRepo)
	hub.WithAlertAuthorizer(websocket.PermissionAlertAuthorizer(authzService, "sla:read"))
	ticketService = services.NewTicketService(ticketRepo, tenantRepo, eventRepo, userRepo, authzService, notifier, hub, txManager, opts...)
	commentService := services.NewCommentService(commentRepo, eventRepo, ticketService, authzService, notifier, hub, txManager, opts...)
	eventService := services.NewEventService(eventRepo, ticketService)
	tenantService := services.NewTenantService(tenantRepo, authzService, defaults, opts...)
	slaService := services.NewSLAService(ticketService, tenantRepo, reportRepo, authzService,
		append(opts, services.WithSnapshots(txManager))...)
	userService := services.NewUserService(userRepo, authzRepo, authzService)
	breachMonitor := services.NewBreachMonitor(tenantRepo, ticketRepo, eventRepo, ledger, notifier, hub,
		cfg.SLA.SweepInterval, opts...)

	go hub.Run(ctx)
	go breachMonitor.Run(ctx)

	// Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	commentHandler := httpAdapter.NewCommentHandler(commentService, errorHandler, logger)
	slaHandler := httpAdapter.NewSLAHandler(slaService, errorHandler, logger)
	ticketHandler := httpAdapter.NewTicketHandler(ticketService, eventService, commentHandler, slaHandler, errorHandler, logger)
	tenantHandler := httpAdapter.NewTenantHandler(tenantService, errorHandler, logger)
	userHandler := httpAdapter.NewUserHandler(authzService, userService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)
	if redisHealth != nil {
		healthHandler.WithCheck("redis", redisHealth)
	}

	// 7. Initialize Rate Limiters
	var (
		generalRateLimiter *mw.RateLimiter
		tenantWriteLimiter func(http.Handler) http.Handler
	)
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
		})
		tenantWriteLimiter = mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AdminRPS,
			BurstSize:         cfg.RateLimit.AdminBurst,
			TTL:               5 * time.Minute,
			Key:               mw.TenantKey,
		}).Middleware
	}

	// 8. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// API routes, all authenticated by the identity provider's tokens
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.JWTMiddleware(tokenManager))

		r.Get("/ws", wsHandler.ServeHTTP)
		r.Mount("/tickets", ticketHandler.Router())
		r.Mount("/tenant", tenantHandler.Router(tenantWriteLimiter))
		r.Mount("/sla", slaHandler.Router())
		userHandler.RegisterRoutes(r)
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		exitCode = 1
	}

	// Stop background workers, then drain pending notifications.
	stop()
	ticketService.Shutdown()
	commentService.Shutdown()

	logger.Info("server shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
