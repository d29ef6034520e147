package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rsi-trade-ledger-go/internal/config"
	"rsi-trade-ledger-go/internal/database"
	"rsi-trade-ledger-go/internal/ledger"
	"rsi-trade-ledger-go/internal/models"
	"rsi-trade-ledger-go/internal/notifier"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubSource returns a fixed signal snapshot, making trade decisions
// deterministic in tests.
type stubSource struct {
	rsi   float64
	price decimal.Decimal
}

func (s stubSource) Snapshot(pair string) (ledger.Snapshot, error) {
	return ledger.Snapshot{RSI: s.rsi, Price: s.price}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Trading: config.Trading{
			Pair:                "BTCUSDT",
			DefaultQuantity:     "0.01",
			OversoldThreshold:   20,
			OverboughtThreshold: 80,
			InitialBaseBalance:  "1.0",
			InitialQuoteBalance: "45000",
		},
	}
}

// setupHandlers builds the full handler stack over an in-memory
// database, with a deterministic signal source and an inert notifier.
func setupHandlers(t *testing.T, source stubSource) *Handlers {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cfg := testConfig()
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedBalances(db, cfg))

	executor := ledger.NewExecutor(db, zap.NewNop())
	notif := notifier.New(&config.Telegram{RateLimit: 1, RateLimitBurst: 1}, zap.NewNop())

	return NewHandlers(cfg, executor, source, notif, zap.NewNop())
}

func postTrade(t *testing.T, handler http.HandlerFunc, body any) (*httptest.ResponseRecorder, TradeResponse) {
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/buy", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler(rec, req)

	var resp TradeResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestBuyHandler_Executed(t *testing.T) {
	// Arrange
	h := setupHandlers(t, stubSource{rsi: 18.4, price: decimal.RequireFromString("45000")})

	// Act
	rec, resp := postTrade(t, h.BuyHandler, TradeRequest{RequestID: "req-1"})

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TradeStatusExecuted, resp.Status)
	assert.Equal(t, "BTCUSDT", resp.Pair)
	assert.Equal(t, models.SideBuy, resp.Side)
	assert.Equal(t, 18.4, resp.RSI)
	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, int64(1), resp.SequenceNumber)
	assert.True(t, resp.Balances["BTC"].Equal(decimal.RequireFromString("1.01")))
	assert.True(t, resp.Balances["USDT"].Equal(decimal.RequireFromString("44550")))
}

func TestBuyHandler_DuplicateRequest(t *testing.T) {
	// Arrange
	h := setupHandlers(t, stubSource{rsi: 18.4, price: decimal.RequireFromString("45000")})

	// Act - same request id twice; the second must replay, not re-execute
	_, first := postTrade(t, h.BuyHandler, TradeRequest{RequestID: "req-1", SequenceNumber: 1})
	_, second := postTrade(t, h.BuyHandler, TradeRequest{RequestID: "req-1", SequenceNumber: 1})

	// Assert
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.True(t, second.Duplicate)
	assert.True(t, second.Balances["BTC"].Equal(decimal.RequireFromString("1.01")))
}

func TestBuyHandler_SignalRejected(t *testing.T) {
	// Arrange - RSI well above the oversold threshold
	h := setupHandlers(t, stubSource{rsi: 55.0, price: decimal.RequireFromString("45000")})

	// Act
	rec, resp := postTrade(t, h.BuyHandler, TradeRequest{RequestID: "req-1"})

	// Assert - rejection is a valid outcome, still HTTP 200
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TradeStatusRejected, resp.Status)
	assert.Equal(t, ledger.ReasonSignalThreshold, resp.Reason)
}

func TestSellHandler_InsufficientFunds(t *testing.T) {
	// Arrange - overbought market but only 1.0 BTC held
	h := setupHandlers(t, stubSource{rsi: 85.0, price: decimal.RequireFromString("45000")})

	raw, err := json.Marshal(TradeRequest{RequestID: "req-1", Quantity: "2.0"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/sell", bytes.NewReader(raw))
	rec := httptest.NewRecorder()

	// Act
	h.SellHandler(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp TradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.TradeStatusRejected, resp.Status)
	assert.Equal(t, ledger.ReasonInsufficientFunds, resp.Reason)
	assert.True(t, resp.Balances["BTC"].Equal(decimal.RequireFromString("1.0")))
}

func TestBuyHandler_DefaultsApplied(t *testing.T) {
	// Arrange
	h := setupHandlers(t, stubSource{rsi: 15.0, price: decimal.RequireFromString("45000")})

	// Act - empty body: pair, quantity, request id and sequence all default
	req := httptest.NewRequest(http.MethodPost, "/buy", nil)
	rec := httptest.NewRecorder()
	h.BuyHandler(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp TradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.TradeStatusExecuted, resp.Status)
	assert.Equal(t, "0.01", resp.Quantity)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, int64(1), resp.SequenceNumber)
}

func TestBuyHandler_InvalidQuantity(t *testing.T) {
	h := setupHandlers(t, stubSource{rsi: 15.0, price: decimal.RequireFromString("45000")})

	rec, _ := postTrade(t, h.BuyHandler, TradeRequest{RequestID: "req-1", Quantity: "not-a-number"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuyHandler_MethodNotAllowed(t *testing.T) {
	h := setupHandlers(t, stubSource{rsi: 15.0, price: decimal.RequireFromString("45000")})

	req := httptest.NewRequest(http.MethodGet, "/buy", nil)
	rec := httptest.NewRecorder()
	h.BuyHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTradesHandler_ListsRecent(t *testing.T) {
	// Arrange
	h := setupHandlers(t, stubSource{rsi: 15.0, price: decimal.RequireFromString("45000")})
	postTrade(t, h.BuyHandler, TradeRequest{RequestID: "req-1"})
	postTrade(t, h.BuyHandler, TradeRequest{RequestID: "req-2"})

	// Act
	req := httptest.NewRequest(http.MethodGet, "/trades?limit=1", nil)
	rec := httptest.NewRecorder()
	h.TradesHandler(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Trades []models.Trade `json:"trades"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "req-2", resp.Trades[0].RequestID)
}

func TestStatusHandler(t *testing.T) {
	// Arrange
	h := setupHandlers(t, stubSource{rsi: 42.0, price: decimal.RequireFromString("45123.5")})

	// Act
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BTCUSDT", resp["pair"])
	assert.Equal(t, 42.0, resp["rsi"])
	assert.Contains(t, resp, "trades")
	assert.Contains(t, resp, "balances")
}

func TestHealthHandler(t *testing.T) {
	h := setupHandlers(t, stubSource{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HealthHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestNotifyHandler_SkippedWithoutCredentials(t *testing.T) {
	h := setupHandlers(t, stubSource{})

	req := httptest.NewRequest(http.MethodPost, "/notify", nil)
	rec := httptest.NewRecorder()
	h.NotifyHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp notifier.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, notifier.StatusSkipped, resp.Status)
}

func TestBalancesHandler(t *testing.T) {
	h := setupHandlers(t, stubSource{})

	req := httptest.NewRequest(http.MethodGet, "/balances", nil)
	rec := httptest.NewRecorder()
	h.BalancesHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Balances map[string]decimal.Decimal `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Balances["BTC"].Equal(decimal.RequireFromString("1.0")))
	assert.True(t, resp.Balances["USDT"].Equal(decimal.RequireFromString("45000")))
}
