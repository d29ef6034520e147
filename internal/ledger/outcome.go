package ledger

import (
	"encoding/json"
	"fmt"

	"rsi-trade-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Snapshot is the opaque signal reading attached to a trade intent: one
// oscillator value and one price, taken together. The core never
// computes these itself.
type Snapshot struct {
	RSI   float64
	Price decimal.Decimal
}

// TradeIntent is a request to trade, immutable once received.
type TradeIntent struct {
	Pair           string
	Side           string
	Quantity       decimal.Decimal
	RequestID      string
	ClientRef      string
	SequenceNumber int64
	Signal         Snapshot
}

// Thresholds gate acceptance: a BUY needs the signal below Oversold, a
// SELL needs it above Overbought.
type Thresholds struct {
	Oversold   float64
	Overbought float64
}

// Rejection reason codes. The human-readable message travels alongside
// in Outcome.Message and in the audit record.
const (
	ReasonSequenceViolation = "sequence_violation"
	ReasonSignalThreshold   = "signal_threshold_not_met"
	ReasonInsufficientFunds = "insufficient_funds"
)

// Outcome is the terminal result of submitting a trade intent. A
// rejection is a valid outcome, not an error; only a failed durable
// write surfaces as an error from Submit.
type Outcome struct {
	Status         string                     `json:"status"`
	TradeID        uint                       `json:"trade_id,omitempty"`
	TransactionID  string                     `json:"transaction_id,omitempty"`
	SequenceNumber int64                      `json:"sequence_number"`
	Reason         string                     `json:"reason,omitempty"`
	Message        string                     `json:"message,omitempty"`
	Fingerprint    string                     `json:"fingerprint"`
	Duplicate      bool                       `json:"duplicate,omitempty"`
	Balances       map[string]decimal.Decimal `json:"balances"`
}

// Executed reports whether the intent resulted in a real transfer.
func (o *Outcome) Executed() bool {
	return o.Status == models.TradeStatusExecuted
}

// encodeBalances serializes a balance snapshot for the audit record.
func encodeBalances(balances map[string]decimal.Decimal) (string, error) {
	raw, err := json.Marshal(balances)
	if err != nil {
		return "", fmt.Errorf("failed to encode balance snapshot: %w", err)
	}
	return string(raw), nil
}

// decodeBalances restores the snapshot stored on an audit record.
func decodeBalances(raw string) (map[string]decimal.Decimal, error) {
	if raw == "" {
		return map[string]decimal.Decimal{}, nil
	}
	balances := make(map[string]decimal.Decimal)
	if err := json.Unmarshal([]byte(raw), &balances); err != nil {
		return nil, fmt.Errorf("failed to decode balance snapshot: %w", err)
	}
	return balances, nil
}

// outcomeFromTrade rebuilds the outcome recorded for a terminal trade,
// used when a duplicate request replays to its original result.
func outcomeFromTrade(trade *models.Trade, duplicate bool) (*Outcome, error) {
	balances, err := decodeBalances(trade.Balances)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Status:         trade.Status,
		TradeID:        trade.ID,
		TransactionID:  trade.TransactionID,
		SequenceNumber: trade.SequenceNumber,
		Reason:         trade.Reason,
		Message:        trade.Message,
		Fingerprint:    trade.Fingerprint,
		Duplicate:      duplicate,
		Balances:       balances,
	}, nil
}
