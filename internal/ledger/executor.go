package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"rsi-trade-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalidIntent marks an intent the executor refuses to decide on:
// malformed side, missing request id, or a non-positive quantity. This
// is a caller bug, not a terminal trade state, so nothing is recorded.
var ErrInvalidIntent = errors.New("invalid trade intent")

// Executor owns the trade decision pipeline. Every mutation of
// sequence state, balances and the audit trail happens under its mutex
// and inside a single database transaction, so concurrent submissions
// for the same key can never interleave their check and apply steps.
type Executor struct {
	mu     sync.Mutex
	db     *gorm.DB
	audit  *AuditStore
	logger *zap.Logger
}

// NewExecutor creates a trade executor over the given database.
func NewExecutor(db *gorm.DB, logger *zap.Logger) *Executor {
	return &Executor{
		db:     db,
		audit:  NewAuditStore(db),
		logger: logger,
	}
}

// Audit exposes the read side of the audit trail.
func (e *Executor) Audit() *AuditStore {
	return e.audit
}

// Submit drives an intent to a terminal state and returns the outcome.
// Duplicate requests replay the recorded outcome; sequence, signal and
// funds rejections are outcomes too, each with its own audit record.
// An error means the decision did not commit: nothing was recorded and
// the caller may safely retry with the same request id.
func (e *Executor) Submit(ctx context.Context, intent TradeIntent, thresholds Thresholds) (*Outcome, error) {
	if err := validateIntent(intent); err != nil {
		return nil, err
	}
	intent.Pair = strings.ToUpper(intent.Pair)
	intent.Side = strings.ToUpper(intent.Side)

	fingerprint := Fingerprint(intent)
	l := e.logger.With(
		zap.String("pair", intent.Pair),
		zap.String("side", intent.Side),
		zap.String("request_id", intent.RequestID),
		zap.String("fingerprint", fingerprint),
	)

	// Fast path: a terminal record already exists, no exclusive section
	// needed to replay it.
	if cached, err := e.audit.FindByFingerprint(fingerprint); err != nil {
		return nil, err
	} else if cached != nil {
		l.Info("Duplicate request resolved to recorded outcome",
			zap.String("transaction_id", cached.TransactionID))
		return outcomeFromTrade(cached, true)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Re-check under the lock: an identical request may have committed
	// between the fast-path lookup and here.
	if cached, err := e.audit.FindByFingerprint(fingerprint); err != nil {
		return nil, err
	} else if cached != nil {
		return outcomeFromTrade(cached, true)
	}

	var outcome *Outcome
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		decided, err := e.decide(tx, intent, thresholds, fingerprint)
		if err != nil {
			return err
		}
		outcome = decided
		return nil
	})
	if err != nil {
		l.Error("Trade decision did not commit", zap.Error(err))
		return nil, fmt.Errorf("trade decision not committed: %w", err)
	}

	if outcome.Executed() {
		l.Info("Trade executed",
			zap.String("transaction_id", outcome.TransactionID),
			zap.Int64("sequence_number", outcome.SequenceNumber))
	} else {
		l.Warn("Trade rejected",
			zap.String("reason", outcome.Reason),
			zap.String("message", outcome.Message))
	}
	return outcome, nil
}

// decide runs the ordered checks and writes exactly one audit record
// for whichever terminal state is reached.
func (e *Executor) decide(tx *gorm.DB, intent TradeIntent, thresholds Thresholds, fingerprint string) (*Outcome, error) {
	last, ok, err := checkSequence(tx, intent.Pair, intent.Side, intent.SequenceNumber)
	if err != nil {
		return nil, err
	}
	if !ok {
		message := fmt.Sprintf("sequence number %d is not greater than last accepted %d for %s %s",
			intent.SequenceNumber, last, intent.Pair, intent.Side)
		return e.reject(tx, intent, fingerprint, ReasonSequenceViolation, message)
	}

	if message, accepted := checkSignal(intent.Side, intent.Signal.RSI, thresholds); !accepted {
		return e.reject(tx, intent, fingerprint, ReasonSignalThreshold, message)
	}

	base, quote := ParsePair(intent.Pair)
	if err := applyTransfer(tx, intent.Side, base, quote, intent.Quantity, intent.Signal.Price); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return e.reject(tx, intent, fingerprint, ReasonInsufficientFunds, err.Error())
		}
		return nil, err
	}

	if err := advanceSequence(tx, intent.Pair, intent.Side, intent.SequenceNumber); err != nil {
		return nil, err
	}

	return e.record(tx, intent, fingerprint, models.TradeStatusExecuted, "", "")
}

// reject records a terminal rejection without touching sequence state
// or balances.
func (e *Executor) reject(tx *gorm.DB, intent TradeIntent, fingerprint, reason, message string) (*Outcome, error) {
	return e.record(tx, intent, fingerprint, models.TradeStatusRejected, reason, message)
}

// record appends the single audit record for a terminal state and
// builds the outcome around it. The transaction id is minted here:
// only once per unique fingerprint, never before a terminal state.
func (e *Executor) record(tx *gorm.DB, intent TradeIntent, fingerprint, status, reason, message string) (*Outcome, error) {
	balances, err := balanceSnapshot(tx)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeBalances(balances)
	if err != nil {
		return nil, err
	}

	trade := &models.Trade{
		TransactionID:  uuid.New().String(),
		Fingerprint:    fingerprint,
		RequestID:      intent.RequestID,
		ClientRef:      intent.ClientRef,
		SequenceNumber: intent.SequenceNumber,
		Pair:           intent.Pair,
		Side:           intent.Side,
		RSI:            intent.Signal.RSI,
		Price:          intent.Signal.Price,
		Quantity:       intent.Quantity,
		Status:         status,
		Reason:         reason,
		Message:        message,
		Balances:       encoded,
	}
	if err := e.audit.Append(tx, trade); err != nil {
		return nil, err
	}

	return &Outcome{
		Status:         status,
		TradeID:        trade.ID,
		TransactionID:  trade.TransactionID,
		SequenceNumber: trade.SequenceNumber,
		Reason:         reason,
		Message:        message,
		Fingerprint:    fingerprint,
		Balances:       balances,
	}, nil
}

// checkSignal applies the acceptance rule: BUY wants an oversold
// market, SELL wants an overbought one.
func checkSignal(side string, rsi float64, thresholds Thresholds) (message string, accepted bool) {
	switch side {
	case models.SideBuy:
		if rsi < thresholds.Oversold {
			return "", true
		}
		return fmt.Sprintf("RSI (%.2f) is not below oversold threshold (%.2f)", rsi, thresholds.Oversold), false
	case models.SideSell:
		if rsi > thresholds.Overbought {
			return "", true
		}
		return fmt.Sprintf("RSI (%.2f) is not above overbought threshold (%.2f)", rsi, thresholds.Overbought), false
	default:
		return fmt.Sprintf("unknown trade side %q", side), false
	}
}

func validateIntent(intent TradeIntent) error {
	side := strings.ToUpper(intent.Side)
	if side != models.SideBuy && side != models.SideSell {
		return fmt.Errorf("%w: side must be %s or %s, got %q", ErrInvalidIntent, models.SideBuy, models.SideSell, intent.Side)
	}
	if intent.Pair == "" {
		return fmt.Errorf("%w: pair is required", ErrInvalidIntent)
	}
	if intent.RequestID == "" {
		return fmt.Errorf("%w: request id is required", ErrInvalidIntent)
	}
	if !intent.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidIntent, intent.Quantity)
	}
	if intent.Signal.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative, got %s", ErrInvalidIntent, intent.Signal.Price)
	}
	return nil
}

// NextSequence suggests the next sequence number for a key, for
// callers that do not track their own counters.
func (e *Executor) NextSequence(pair, side string) (int64, error) {
	last, err := lastSequence(e.db, strings.ToUpper(pair), strings.ToUpper(side))
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Balances returns the current committed balance of every asset.
func (e *Executor) Balances() (map[string]decimal.Decimal, error) {
	return balanceSnapshot(e.db)
}
