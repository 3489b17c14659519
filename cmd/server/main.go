package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/calcengine/internal/catalog"
	"github.com/Simplici0/calcengine/internal/config"
	"github.com/Simplici0/calcengine/internal/db"
	"github.com/Simplici0/calcengine/internal/migrations"
	"github.com/Simplici0/calcengine/internal/observability"
	"github.com/Simplici0/calcengine/internal/pricing"
	"github.com/Simplici0/calcengine/internal/quoting"
	"github.com/Simplici0/calcengine/internal/seed"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load(".env")

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings {
		logger.Warn("configuration value ignored", zap.String("detail", w))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return err
	}

	store := catalog.NewStore(database)
	if cfg.SeedCatalog {
		stats, err := seed.Run(context.Background(), store)
		if err != nil {
			return err
		}
		logger.Info("demo catalog seeded", zap.Int("inserts", stats.Inserts), zap.Int("skipped", stats.Skipped))
	}

	opts := pricing.Options{Logger: logger}
	if cfg.TablesPath != "" {
		tables, err := pricing.LoadTablesFile(cfg.TablesPath)
		if err != nil {
			return err
		}
		opts.Tables = &tables
		logger.Info("pricing tables loaded", zap.String("path", cfg.TablesPath))
	}
	registry := pricing.NewRegistry(opts)
	if _, err := registry.Lookup(cfg.DefaultCalculator); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	srv := &server{
		quotes: quoting.NewService(quoting.Options{
			Registry:          registry,
			Products:          store,
			Logger:            logger,
			Metrics:           metrics,
			DefaultCalculator: cfg.DefaultCalculator,
			Workers:           cfg.BatchWorkers,
		}),
		products: store,
		metrics:  metrics,
		logger:   logger,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("listening",
		zap.String("addr", httpServer.Addr),
		zap.String("env", cfg.Env),
		zap.String("defaultCalculator", cfg.DefaultCalculator),
		zap.Strings("calculators", registry.Names()),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
