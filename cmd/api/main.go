package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fanlinkhq/fanlink/internal/cache"
	"github.com/fanlinkhq/fanlink/internal/config"
	"github.com/fanlinkhq/fanlink/internal/database"
	"github.com/fanlinkhq/fanlink/internal/logging"
	"github.com/fanlinkhq/fanlink/internal/monitoring"
	"github.com/fanlinkhq/fanlink/internal/realtime"
	"github.com/fanlinkhq/fanlink/internal/server"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logging.Setup(&cfg.Logging, cfg.Server.Env)

	log.Info().
		Str("env", cfg.Server.Env).
		Msg("Starting FanLink API server")

	// Without a database the server still comes up: reads serve empty
	// results and writes fail with a configuration error.
	db, err := database.New(cfg.Database.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Database unavailable, starting with an unconfigured store")
		db = nil
	} else {
		defer db.Close()
	}

	// Redis backs the unread badge cache only. The API stays up without
	// it; badge reads then fall through to the database.
	redisCache, err := cache.New(cfg.Redis.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, unread badge cache disabled")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Initialize Prometheus metrics
	monitoring.Init()
	log.Info().Msg("Prometheus metrics initialized")

	// Start metrics server if enabled
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(cfg.Monitoring.PrometheusPort)
	}

	var pool *pgxpool.Pool
	if db != nil {
		pool = db.Pool

		// Keep the pool gauges fresh
		poolPoller := realtime.NewPoller("db_pool_stats", 30*time.Second, func(ctx context.Context) error {
			stat := pool.Stat()
			monitoring.RecordDBPoolStats(stat.AcquiredConns(), stat.IdleConns())
			return nil
		})
		if err := poolPoller.Start(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Pool stats poller failed to start")
		}
		defer poolPoller.Stop()
	}

	// Create and start server
	srv := server.NewAPIServer(cfg, pool, redisCache)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Msg("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().
		Str("signal", sig.String()).
		Msg("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())

	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info().
		Int("port", port).
		Msg("Prometheus metrics server listening")

	if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server error")
	}
}
