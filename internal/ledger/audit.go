package ledger

import (
	"errors"
	"fmt"

	"rsi-trade-ledger-go/internal/models"

	"gorm.io/gorm"
)

// AuditStore is the append-only record of every terminal trade
// decision. Append is its only mutation and runs inside the executor's
// transaction; everything else reads committed history.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore creates an audit store over the given database.
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Summary aggregates trade counts by status and side.
type Summary struct {
	TotalTrades    int64 `json:"total_trades"`
	ExecutedTrades int64 `json:"executed_trades"`
	RejectedTrades int64 `json:"rejected_trades"`
	BuyTrades      int64 `json:"buy_trades"`
	SellTrades     int64 `json:"sell_trades"`
}

// Append persists a terminal trade record inside the caller's
// transaction. The record is immutable from here on.
func (s *AuditStore) Append(tx *gorm.DB, trade *models.Trade) error {
	if err := tx.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to append trade record: %w", err)
	}
	return nil
}

// FindByFingerprint returns the terminal record for a request
// fingerprint, or nil when the fingerprint has never reached a
// decision.
func (s *AuditStore) FindByFingerprint(fingerprint string) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.Where("fingerprint = ?", fingerprint).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up trade by fingerprint: %w", err)
	}
	return &trade, nil
}

// ListRecent returns up to limit trades, most recent first.
func (s *AuditStore) ListRecent(limit int) ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Order("id DESC").Limit(limit).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent trades: %w", err)
	}
	return trades, nil
}

// Summarize counts committed trades by status and side.
func (s *AuditStore) Summarize() (*Summary, error) {
	summary := &Summary{}

	counts := []struct {
		target *int64
		query  *gorm.DB
	}{
		{&summary.TotalTrades, s.db.Model(&models.Trade{})},
		{&summary.ExecutedTrades, s.db.Model(&models.Trade{}).Where("status = ?", models.TradeStatusExecuted)},
		{&summary.RejectedTrades, s.db.Model(&models.Trade{}).Where("status = ?", models.TradeStatusRejected)},
		{&summary.BuyTrades, s.db.Model(&models.Trade{}).Where("side = ?", models.SideBuy)},
		{&summary.SellTrades, s.db.Model(&models.Trade{}).Where("side = ?", models.SideSell)},
	}

	for _, count := range counts {
		if err := count.query.Count(count.target).Error; err != nil {
			return nil, fmt.Errorf("failed to summarize trades: %w", err)
		}
	}

	return summary, nil
}
