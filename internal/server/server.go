package server

import (
	"context"
	"fmt"
	"net/http"

	"rsi-trade-ledger-go/internal/config"
	"rsi-trade-ledger-go/internal/ledger"
	"rsi-trade-ledger-go/internal/notifier"
	"rsi-trade-ledger-go/internal/signal"

	"go.uber.org/zap"
)

// Server exposes the trade executor over HTTP.
type Server struct {
	server   *http.Server
	handlers *Handlers
	logger   *zap.Logger
}

// New creates the API server and registers all routes.
func New(cfg *config.Config, executor *ledger.Executor, signals signal.Source, notif *notifier.Notifier, logger *zap.Logger) *Server {
	handlers := NewHandlers(cfg, executor, signals, notif, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handlers.RootHandler)
	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.HandleFunc("/status", handlers.StatusHandler)
	mux.HandleFunc("/buy", handlers.BuyHandler)
	mux.HandleFunc("/sell", handlers.SellHandler)
	mux.HandleFunc("/trades", handlers.TradesHandler)
	mux.HandleFunc("/balances", handlers.BalancesHandler)
	mux.HandleFunc("/notify", handlers.NotifyHandler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	return &Server{
		server:   server,
		handlers: handlers,
		logger:   logger.Named("api-server"),
	}
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
