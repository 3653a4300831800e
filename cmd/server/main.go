package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpadapter "github.com/dfranco/finref-backend/internal/adapter/http"
	"github.com/dfranco/finref-backend/internal/adapter/repository/postgres"
	"github.com/dfranco/finref-backend/internal/config"
	"github.com/dfranco/finref-backend/internal/usecase/exposure"
	"github.com/dfranco/finref-backend/internal/usecase/search"
	"github.com/dfranco/finref-backend/internal/usecase/seeder"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// 2. Setup database
	db, err := postgres.NewDB(cfg.DBConnStr)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 3. Initialize repositories (Postgres)
	recordStore := postgres.NewRecordStore(db)
	fxRepo := postgres.NewFxRepository(db)

	// 4. Seed the exchange-rate table on a fresh install
	if cfg.SeedRates {
		ratesSeeder := seeder.NewRatesSeeder(fxRepo, logger)
		if err := ratesSeeder.Seed(context.Background()); err != nil {
			logger.Fatal("failed to seed exchange rates", zap.Error(err))
		}
	}

	// 5. Initialize services (use cases)
	searchService := search.NewService(recordStore, logger)
	exposureService := exposure.NewService(recordStore, fxRepo, logger)

	// 6. Start HTTP server
	server := httpadapter.NewServer(
		logger,
		searchService,
		exposureService,
		cfg.CollaboratorTimeout,
		cfg.DefaultReferenceCurrency,
	)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Router(),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()

	waitForShutdown(httpServer, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the
// server
func waitForShutdown(httpServer *http.Server, logger *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down gracefully", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown did not complete cleanly", zap.Error(err))
	}
	logger.Info("HTTP server stopped")
}
