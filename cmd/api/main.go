package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bimakw/volume-tracker/internal/application/services"
	"github.com/bimakw/volume-tracker/internal/config"
	"github.com/bimakw/volume-tracker/internal/infrastructure/cache"
	"github.com/bimakw/volume-tracker/internal/infrastructure/database"
	"github.com/bimakw/volume-tracker/internal/infrastructure/market"
	"github.com/bimakw/volume-tracker/internal/presentation/handlers"
	"github.com/bimakw/volume-tracker/internal/presentation/middleware"
	"github.com/bimakw/volume-tracker/internal/reconcile"
	"github.com/bimakw/volume-tracker/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	// Volumes and prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Both were validated by config.Load
	scheduleLoc, _ := cfg.Schedule.Location()
	reportingLoc, _ := cfg.Schedule.ReportingLocation()

	logger.Info("Starting volume-tracker API",
		zap.Int("port", cfg.API.Port),
		zap.String("reporting_timezone", reportingLoc.String()),
	)
	if cfg.Admin.Password == "" {
		logger.Warn("ADMIN_PASSWORD is not set, all admin requests will be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Connect to Redis cache (optional)
	var redisCache *cache.RedisCache
	redisCache, err = cache.NewRedisCache(cfg.Redis, cfg.API.CacheTTL, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Create repositories
	tokenRepo := database.NewTokenRepo(db.DB())
	historyRepo := database.NewHistoryRepo(db.DB())

	// Market data
	marketClient := market.NewClient(cfg.Market, logger)
	fetcher := market.NewFetcher(marketClient, cfg.Market.TokenListTTL, logger)

	clock := reconcile.NewClock(reportingLoc)
	updateMetrics := middleware.NewVolumeUpdateMetrics(prometheus.DefaultRegisterer)

	// Create services
	adminService := services.NewAdminService(cfg.Admin.Password)
	tokenService := services.NewTokenService(tokenRepo, historyRepo, redisCache, clock, logger)
	statsService := services.NewStatsService(tokenRepo, historyRepo, redisCache, logger)
	volumeService := services.NewVolumeService(tokenRepo, fetcher, redisCache, clock, cfg.Schedule, updateMetrics, logger)
	marketService := services.NewMarketService(fetcher, logger)
	scheduleService := services.NewScheduleService(cfg.Schedule.Spec, scheduleLoc)

	// Create handlers
	tokenHandler := handlers.NewTokenHandler(tokenService, adminService, logger)
	statsHandler := handlers.NewStatsHandler(statsService, logger)
	adminHandler := handlers.NewAdminHandler(adminService, volumeService, logger)
	marketHandler := handlers.NewMarketHandler(marketService, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, logger)

	var cacheChecker handlers.HealthChecker
	if redisCache != nil {
		cacheChecker = redisCache
	}
	healthHandler := handlers.NewHealthHandler(db, cacheChecker, volumeService)

	// Daily volume update
	sched := scheduler.New(ctx, scheduleLoc, logger)
	if cfg.Schedule.Enabled {
		id, err := sched.Add(cfg.Schedule.Spec, func(ctx context.Context) {
			if _, err := volumeService.RunDailyUpdate(ctx); err != nil {
				logger.Error("Scheduled volume update failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("Failed to schedule daily volume update", zap.Error(err))
		}
		sched.Start()

		logger.Info("Daily volume update scheduled",
			zap.String("cron", cfg.Schedule.Spec),
			zap.String("timezone", scheduleLoc.String()),
			zap.Time("next_run", sched.NextRun(id, clock.Read().Now)),
		)
	} else {
		logger.Info("Daily volume update schedule disabled")
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.API.CORSOrigins))

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))

		r.Get("/tokens/stats", statsHandler.GetStats)
		tokenHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)
		marketHandler.RegisterRoutes(r)
		r.Get("/schedule-info", scheduleHandler.GetScheduleInfo)
	})

	// Dashboard assets
	if cfg.API.StaticDir != "" {
		if _, err := os.Stat(cfg.API.StaticDir); err == nil {
			r.Handle("/*", http.FileServer(http.Dir(cfg.API.StaticDir)))
		} else {
			logger.Warn("Static directory not found, not serving assets",
				zap.String("dir", cfg.API.StaticDir),
			)
		}
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		logger.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Interrupt a running batch between tokens, then wait for it
	cancel()
	sched.Stop()
	volumeService.Close()

	logger.Info("Server stopped")
}

func setupLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoding := "json"
	if format == "console" {
		encoding = "console"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}
