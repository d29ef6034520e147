package notifier

import (
	"context"
	"fmt"
	"strings"

	"rsi-trade-ledger-go/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const telegramBaseURL = "https://api.telegram.org"

// Delivery statuses returned by Send. A skipped or failed delivery is
// reported, never escalated: notifications are best effort and must
// not disturb the ledger.
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Result describes the outcome of one delivery attempt.
type Result struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// telegramResponse is the subset of the Telegram API response we read.
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Notifier delivers trade alerts to a Telegram chat.
type Notifier struct {
	client  *resty.Client
	token   string
	chatID  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// New creates a Telegram notifier. With empty or placeholder
// credentials it stays inert and reports every send as skipped.
func New(cfg *config.Telegram, logger *zap.Logger) *Notifier {
	client := resty.New().SetBaseURL(telegramBaseURL)

	// rate.Limit is messages per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	n := &Notifier{
		client:  client,
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		logger:  logger,
		limiter: limiter,
	}

	if !n.configured() {
		logger.Warn("Telegram credentials not configured, notifications will be skipped",
			zap.String("token", maskSecret(cfg.Token)))
	}
	return n
}

// configured reports whether real-looking credentials were provided.
func (n *Notifier) configured() bool {
	if n.token == "" || n.chatID == "" {
		return false
	}
	// Guard against committed placeholder values from sample configs.
	if strings.Contains(strings.ToLower(n.token), "your_telegram") ||
		strings.Contains(strings.ToLower(n.chatID), "your_telegram") {
		return false
	}
	return true
}

// Send delivers a message to the configured chat.
func (n *Notifier) Send(ctx context.Context, message string) Result {
	if !n.configured() {
		return Result{Status: StatusSkipped, Reason: "Telegram credentials not configured"}
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return Result{Status: StatusError, Error: fmt.Sprintf("rate limiter wait failed: %v", err)}
	}

	var tgResp telegramResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"chat_id": n.chatID,
			"text":    message,
		}).
		SetResult(&tgResp).
		SetError(&tgResp).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.token))
	if err != nil {
		n.logger.Error("Failed to send Telegram notification", zap.Error(err))
		return Result{Status: StatusError, Error: err.Error()}
	}

	if resp.IsError() || !tgResp.OK {
		description := tgResp.Description
		if description == "" {
			description = resp.Status()
		}
		n.logger.Error("Telegram API rejected notification",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("description", description))
		return Result{Status: StatusError, Error: description}
	}

	n.logger.Info("Telegram notification sent", zap.String("chat_id", n.chatID))
	return Result{Status: StatusSent}
}

// FormatTradeNotification builds the alert text for an executed trade.
func FormatTradeNotification(pair, side string, rsi float64, price decimal.Decimal) string {
	emoji := "🔴"
	if side == "BUY" {
		emoji = "🟢"
	}

	message := fmt.Sprintf("%s Trade Executed\n\nPair: %s\nAction: %s\nRSI: %.2f", emoji, pair, side, rsi)
	if price.IsPositive() {
		message += fmt.Sprintf("\nPrice: $%s", price.StringFixed(2))
	}
	message += "\n\nThis is a simulated trade for testing purposes."
	return message
}

// maskSecret renders a secret safe for logs.
func maskSecret(secret string) string {
	if secret == "" {
		return "<not-set>"
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:2] + "***" + secret[len(secret)-2:]
}
