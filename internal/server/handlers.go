package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"rsi-trade-ledger-go/internal/config"
	"rsi-trade-ledger-go/internal/ledger"
	"rsi-trade-ledger-go/internal/models"
	"rsi-trade-ledger-go/internal/notifier"
	"rsi-trade-ledger-go/internal/signal"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeRequest is the client payload for /buy and /sell. Every field is
// optional; defaults come from configuration and the ledger's own
// sequence tracking.
type TradeRequest struct {
	Pair           string `json:"pair,omitempty"`
	Quantity       string `json:"quantity,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
	SequenceNumber int64  `json:"sequence_number,omitempty"`
	ClientRef      string `json:"client_ref,omitempty"`
}

// TradeResponse is returned for every terminal trade decision.
type TradeResponse struct {
	Pair      string  `json:"pair"`
	Side      string  `json:"side"`
	RSI       float64 `json:"rsi"`
	Price     string  `json:"price"`
	Quantity  string  `json:"quantity"`
	RequestID string  `json:"request_id"`
	*ledger.Outcome
}

// Handlers holds the dependencies for the API endpoints.
type Handlers struct {
	cfg      *config.Config
	executor *ledger.Executor
	signals  signal.Source
	notifier *notifier.Notifier
	logger   *zap.Logger
}

// NewHandlers wires the API endpoints to their collaborators.
func NewHandlers(cfg *config.Config, executor *ledger.Executor, signals signal.Source, notif *notifier.Notifier, logger *zap.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		executor: executor,
		signals:  signals,
		notifier: notif,
		logger:   logger,
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// RootHandler describes the API.
func (h *Handlers) RootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"name":        "RSI Trade Ledger",
		"version":     "1.0.0",
		"description": "Simulated RSI-based trading with an exactly-once execution ledger",
		"endpoints": map[string]string{
			"health":   "/health",
			"status":   "/status",
			"buy":      "/buy (POST)",
			"sell":     "/sell (POST)",
			"trades":   "/trades",
			"balances": "/balances",
			"notify":   "/notify (POST)",
		},
	})
}

// HealthHandler reports liveness.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "rsi-trade-ledger",
	})
}

// StatusHandler returns the current signal reading, thresholds, trade
// summary and balances.
func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	pair := h.cfg.Trading.Pair

	snapshot, err := h.signals.Snapshot(pair)
	if err != nil {
		h.logger.Error("Failed to read signal snapshot", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get status")
		return
	}

	summary, err := h.executor.Audit().Summarize()
	if err != nil {
		h.logger.Error("Failed to summarize trades", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get status")
		return
	}

	balances, err := h.executor.Balances()
	if err != nil {
		h.logger.Error("Failed to read balances", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get status")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"pair":           pair,
		"rsi":            snapshot.RSI,
		"price":          snapshot.Price,
		"rsi_oversold":   h.cfg.Trading.OversoldThreshold,
		"rsi_overbought": h.cfg.Trading.OverboughtThreshold,
		"trades":         summary,
		"balances":       balances,
	})
}

// BuyHandler submits a BUY intent.
func (h *Handlers) BuyHandler(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, models.SideBuy)
}

// SellHandler submits a SELL intent.
func (h *Handlers) SellHandler(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, models.SideSell)
}

func (h *Handlers) handleTrade(w http.ResponseWriter, r *http.Request, side string) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Pair == "" {
		req.Pair = h.cfg.Trading.Pair
	}
	if req.Quantity == "" {
		req.Quantity = h.cfg.Trading.DefaultQuantity
	}
	// Every request gets an identity for deduplication, caller-supplied
	// or generated.
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	if req.SequenceNumber == 0 {
		next, err := h.executor.NextSequence(req.Pair, side)
		if err != nil {
			h.logger.Error("Failed to compute next sequence", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to execute trade")
			return
		}
		req.SequenceNumber = next
	}

	snapshot, err := h.signals.Snapshot(req.Pair)
	if err != nil {
		h.logger.Error("Failed to read signal snapshot", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to execute trade")
		return
	}

	intent := ledger.TradeIntent{
		Pair:           req.Pair,
		Side:           side,
		Quantity:       quantity,
		RequestID:      req.RequestID,
		ClientRef:      req.ClientRef,
		SequenceNumber: req.SequenceNumber,
		Signal:         snapshot,
	}
	thresholds := ledger.Thresholds{
		Oversold:   h.cfg.Trading.OversoldThreshold,
		Overbought: h.cfg.Trading.OverboughtThreshold,
	}

	outcome, err := h.executor.Submit(r.Context(), intent, thresholds)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidIntent) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to execute trade", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "trade outcome indeterminate, retry with the same request_id")
		return
	}

	if outcome.Executed() && !outcome.Duplicate {
		message := notifier.FormatTradeNotification(intent.Pair, side, snapshot.RSI, snapshot.Price)
		result := h.notifier.Send(r.Context(), message)
		if result.Status == notifier.StatusError {
			h.logger.Warn("Trade notification failed", zap.String("error", result.Error))
		}
	}

	h.writeJSON(w, http.StatusOK, TradeResponse{
		Pair:      intent.Pair,
		Side:      side,
		RSI:       snapshot.RSI,
		Price:     snapshot.Price.String(),
		Quantity:  quantity.String(),
		RequestID: req.RequestID,
		Outcome:   outcome,
	})
}

// TradesHandler lists recent trades, most recent first.
func (h *Handlers) TradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	trades, err := h.executor.Audit().ListRecent(limit)
	if err != nil {
		h.logger.Error("Failed to list trades", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get trades")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}

// BalancesHandler returns the committed balance of every asset.
func (h *Handlers) BalancesHandler(w http.ResponseWriter, r *http.Request) {
	balances, err := h.executor.Balances()
	if err != nil {
		h.logger.Error("Failed to read balances", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to get balances")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

// NotifyHandler sends a test notification.
func (h *Handlers) NotifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result := h.notifier.Send(r.Context(), "Test notification from RSI Trade Ledger\n\nThis is a test message to verify Telegram integration.")
	h.writeJSON(w, http.StatusOK, result)
}
