package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Balance tracks the quantity held of a single asset.
// Amounts are fixed-precision decimals stored as text; they must never
// go negative.
type Balance struct {
	gorm.Model
	Asset  string          `gorm:"uniqueIndex;not null" json:"asset"`
	Amount decimal.Decimal `gorm:"type:text;not null" json:"amount"`
}
