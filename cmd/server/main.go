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

	"github.com/homefin/homefin-backend/internal/adapter/httpapi"
	"github.com/homefin/homefin-backend/internal/adapter/repository/postgres"
	"github.com/homefin/homefin-backend/internal/logging"
	"github.com/homefin/homefin-backend/internal/usecase/balance"
	"github.com/homefin/homefin-backend/internal/usecase/carddebt"
	"github.com/homefin/homefin-backend/internal/usecase/networth"
	"github.com/homefin/homefin-backend/internal/usecase/performance"
	"github.com/homefin/homefin-backend/internal/usecase/recurring"
	"github.com/homefin/homefin-backend/internal/usecase/valuation"
)

const defaultHTTPAddr = ":8080"

func main() {
	logger := logging.NewLogger(slog.LevelInfo)

	// 1. Setup Database
	dbConnStr := os.Getenv("DB_CONN_STR")
	if dbConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		host := envOr("DB_HOST", "localhost")
		port := envOr("DB_PORT", "5432")
		user := envOr("DB_USER", "postgres")
		password := envOr("DB_PASSWORD", "postgres")
		dbname := envOr("DB_NAME", "homefin")

		dbConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}

	db, err := postgres.NewDB(dbConnStr)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// 2. Initialize Repositories (Postgres)
	walletRepo := postgres.NewWalletRepository(db)
	transactionRepo := postgres.NewWalletTransactionRepository(db)
	securityRepo := postgres.NewSecurityRepository(db)
	bondRepo := postgres.NewBondRepository(db)
	cardPaymentRepo := postgres.NewCardPaymentRepository(db)
	recurringRepo := postgres.NewRecurringTransactionRepository(db)
	netWorthSnapshotRepo := postgres.NewNetWorthSnapshotRepository(db)
	performanceSnapshotRepo := postgres.NewPerformanceSnapshotRepository(db)

	// 3. Initialize Services (Use Cases)
	cardDebtService := carddebt.NewService(cardPaymentRepo)
	balanceService := balance.NewService(transactionRepo, cardDebtService, logger)
	valuationService := valuation.NewService(securityRepo, logger)
	projector := recurring.NewProjector(recurringRepo, logger)

	netWorthService := networth.NewService(
		walletRepo, transactionRepo, securityRepo, bondRepo, netWorthSnapshotRepo,
		balanceService, cardDebtService, valuationService, projector,
		logger,
	)
	performanceService := performance.NewService(
		securityRepo, bondRepo, performanceSnapshotRepo, valuationService,
		logger,
	)

	// 4. Warm empty snapshot caches in the background
	if _, started, err := netWorthService.RecalculateIfEmpty(context.Background()); err != nil {
		logger.Error("failed to check net worth snapshot cache", "error", err)
	} else if started {
		logger.Info("net worth snapshot cache empty, rebuild started")
	}
	if _, started, err := performanceService.RecalculateIfEmpty(context.Background()); err != nil {
		logger.Error("failed to check performance snapshot cache", "error", err)
	} else if started {
		logger.Info("performance snapshot cache empty, rebuild started")
	}

	// 5. Start HTTP Server
	addr := envOr("HTTP_ADDR", defaultHTTPAddr)
	server := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(netWorthService, performanceService),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(server, logger)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down gracefully", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
