package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/go-logistics-backoffice/app/db"
	appLogger "github.com/FACorreiaa/go-logistics-backoffice/app/logger"
	"github.com/FACorreiaa/go-logistics-backoffice/app/tracer"
	"github.com/FACorreiaa/go-logistics-backoffice/config"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/container"
)

// @title						Logistics Backoffice API
// @version					1.0
// @description				Authentication, password recovery and role-based access control.
// @BasePath					/api/v1
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	// standard log until slog is configured
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := appLogger.Setup(cfg.Mode)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings() {
		logger.Warn("Unsafe configuration", slog.String("mode", cfg.Mode), slog.String("detail", w))
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Application exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	telemetry, err := tracer.InitTracingAndMetrics(cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		return fmt.Errorf("generating database config: %w", err)
	}
	// migrations run before the main pool is opened
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		return fmt.Errorf("initializing database pool: %w", err)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		return errors.New("database not ready after waiting")
	}

	c, err := container.NewContainer(&cfg, pool, logger)
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}
	defer c.Close()

	if err := c.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrapping: %w", err)
	}

	timeout := cfg.Server.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", c.Router())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.MetricsHandler)
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Observability.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr), slog.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}
