// Package main is the entry point for the fakturo API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"fakturo/internal/config"
	"fakturo/internal/domain/client"
	"fakturo/internal/domain/invoice"
	v1 "fakturo/internal/infrastructure/http/v1"
	"fakturo/internal/infrastructure/storage/postgres"
	"fakturo/internal/infrastructure/storage/postgres/client_repo"
	"fakturo/internal/infrastructure/storage/postgres/invoice_repo"
	"fakturo/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("FAKTURO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	log.Info("starting fakturo server")

	if err := postgres.Migrate(ctx, cfg.Database.DSN); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}
	log.Info("database schema up to date")

	pool, err := postgres.NewPool(ctx, cfg.Database.PoolConfig())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// Serializable writes: the store's isolation is the only coordination
	// between concurrent invoice operations.
	txManager := postgres.NewTxManager(pool, postgres.SerializableTxOptions())

	invoiceRepo := invoice_repo.NewInvoiceRepo(txManager)
	sequenceRepo := invoice_repo.NewSequenceRepo(txManager)
	revisionRepo, err := invoice_repo.NewRevisionRepo(txManager)
	if err != nil {
		log.Fatalw("failed to initialize revision archive", "error", err)
	}
	clientRepo := client_repo.NewClientRepo(txManager)

	invoiceService := invoice.NewService(
		invoiceRepo,
		sequenceRepo,
		revisionRepo,
		txManager,
		cfg.Invoicing.StartNumber,
	)
	clientService := client.NewService(clientRepo, txManager)

	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		InvoiceService: invoiceService,
		ClientService:  clientService,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "address", cfg.Server.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
