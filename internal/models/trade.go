package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade statuses. A trade record is written for every terminal decision,
// rejected ones included, and is never updated afterwards.
const (
	TradeStatusExecuted = "executed"
	TradeStatusRejected = "rejected"
)

// Trade sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade is the append-only audit record of a trade decision.
type Trade struct {
	gorm.Model
	TransactionID  string          `gorm:"uniqueIndex;not null" json:"transaction_id"`
	Fingerprint    string          `gorm:"uniqueIndex;not null" json:"fingerprint"`
	RequestID      string          `json:"request_id"`
	ClientRef      string          `json:"client_ref,omitempty"`
	SequenceNumber int64           `gorm:"not null" json:"sequence_number"`
	Pair           string          `gorm:"index:idx_trades_pair_side;not null" json:"pair"`
	Side           string          `gorm:"index:idx_trades_pair_side;not null" json:"side"`
	RSI            float64         `json:"rsi"`
	Price          decimal.Decimal `gorm:"type:text" json:"price"`
	Quantity       decimal.Decimal `gorm:"type:text" json:"quantity"`
	Status         string          `gorm:"index;not null" json:"status"`
	Reason         string          `json:"reason,omitempty"`
	Message        string          `json:"message,omitempty"`
	// Balances holds the post-decision balance snapshot as JSON.
	Balances string `gorm:"type:text" json:"balances,omitempty"`
}
