package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rsi-trade-ledger-go/internal/config"
	"rsi-trade-ledger-go/internal/database"
	"rsi-trade-ledger-go/internal/ledger"
	"rsi-trade-ledger-go/internal/logger"
	"rsi-trade-ledger-go/internal/notifier"
	"rsi-trade-ledger-go/internal/server"
	signalsource "rsi-trade-ledger-go/internal/signal"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful, schema migrated and balances seeded.")

	// Wire up the core and its collaborators
	executor := ledger.NewExecutor(db, log.Named("executor"))
	signals := signalsource.NewMockSource()
	notif := notifier.New(&cfg.Telegram, log.Named("notifier"))

	apiServer := server.New(&cfg, executor, signals, notif, log)
	apiServer.Start()

	// Wait for shutdown signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server cleanly", zap.Error(err))
	}

	log.Info("Ledger has been shut down.")
}
