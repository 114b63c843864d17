package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	httpAdapter "github.com/lorrc/complaint-desk-bff/internal/adapters/primary/http"
	mw "github.com/lorrc/complaint-desk-bff/internal/adapters/primary/http/middleware"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/primary/websocket"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/secondary/postgres"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/secondary/restapi"
	"github.com/lorrc/complaint-desk-bff/internal/auth"
	"github.com/lorrc/complaint-desk-bff/internal/config"
	"github.com/lorrc/complaint-desk-bff/internal/core/ports"
	"github.com/lorrc/complaint-desk-bff/internal/core/services"
	"github.com/lorrc/complaint-desk-bff/internal/infrastructure/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func newLogger(cfg *config.Config) *slog.Logger {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	if cfg.App.Name != "" {
		logCfg.ServiceName = cfg.App.Name
	}
	logCfg.Environment = cfg.App.Environment
	logCfg.AddSource = cfg.App.Environment == "development"
	return logging.NewLogger(logCfg)
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Structured Logger
	logger := newLogger(cfg)
	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 2. Initialize the optional preferences database
	var (
		prefsRepo ports.PreferencesRepository
		dbChecker ports.HealthChecker
	)
	if cfg.Database.URL != "" {
		pool, err := openPool(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return err
		}
		defer pool.Close()
		logger.Info("database connection established")

		if cfg.Database.AutoMigrate {
			if err := postgres.MigrateUp(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
				logger.Error("failed to apply migrations", "error", err)
				return err
			}
			logger.Info("database migrations applied")
		}

		prefsRepo = postgres.NewPreferencesRepository(pool)
		dbChecker = pool
	} else {
		logger.Warn("DATABASE_URL not set, UI preferences will not be persisted")
	}

	// 3. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(websocket.Config{
		PingInterval:   cfg.WebSocket.PingInterval,
		PongWait:       cfg.WebSocket.PongWait,
		SendBufferSize: cfg.WebSocket.SendBufferSize,
	}, logger)
	go hub.Run(hubCtx)

	// 4. Initialize Rate Limiters
	var generalRateLimiter, upstreamRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		defer generalRateLimiter.Stop()

		upstreamRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.UpstreamRPS,
			BurstSize:         cfg.RateLimit.UpstreamBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
			ByUser:            true,
		})
		defer upstreamRateLimiter.Stop()
	}

	// 5. Dependency Injection (Wiring the Hexagon)
	apiClient := restapi.NewClient(restapi.Config{
		BaseURL:      cfg.Upstream.BaseURL,
		Timeout:      cfg.Upstream.Timeout,
		ServiceToken: cfg.Upstream.ServiceToken,
		HealthPath:   cfg.Upstream.HealthPath,
	}, logger)

	manager := services.NewSessionManager(apiClient, prefsRepo, hub, services.SessionConfig{
		FetchTimeout:         cfg.Upstream.FetchTimeout,
		NotificationDuration: cfg.Store.NotificationDuration,
		IdleTimeout:          cfg.Store.IdleTimeout,
		PersistTimeout:       cfg.Store.PersistTimeout,
	}, logger)
	go manager.Run(ctx)

	errorHandler := httpAdapter.NewErrorHandler(logger)
	healthHandler := httpAdapter.NewHealthHandler(dbChecker, apiClient, cfg.App.Version).
		WithGauge("active_sessions", manager.ActiveSessions).
		WithGauge("websocket_clients", hub.GetClientCount)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:          logger,
		TokenManager:    tokenManager,
		CORS:            cfg.CORS,
		GeneralLimiter:  generalRateLimiter,
		UpstreamLimiter: upstreamRateLimiter,
		Health:          healthHandler,
		State:           httpAdapter.NewStateHandler(manager, errorHandler, logger),
		Plainte:         httpAdapter.NewPlainteHandler(manager, errorHandler, logger),
		Admin:           httpAdapter.NewAdminHandler(manager, errorHandler, logger),
		UI:              httpAdapter.NewUIHandler(manager, errorHandler, logger),
		Notification:    httpAdapter.NewNotificationHandler(manager, errorHandler, logger),
		WebSocket:       httpAdapter.NewWebSocketHandler(hub, manager, manager, errorHandler, cfg, logger),
	})

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Hijacked WebSocket connections are not covered by srv.Shutdown.
	stopHub()
	manager.Shutdown()

	logger.Info("server shutdown complete")
	return nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
