package ledger

import (
	"errors"
	"fmt"

	"rsi-trade-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientFunds marks a transfer the available balance cannot
// cover. The executor turns it into a rejected outcome.
var ErrInsufficientFunds = errors.New("insufficient funds")

// assetBalance returns the held amount for an asset, zero if the asset
// has never been credited.
func assetBalance(tx *gorm.DB, asset string) (decimal.Decimal, error) {
	var balance models.Balance
	err := tx.Where("asset = ?", asset).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance for %s: %w", asset, err)
	}
	return balance.Amount, nil
}

// setBalance writes the exact amount held for an asset.
func setBalance(tx *gorm.DB, asset string, amount decimal.Decimal) error {
	var balance models.Balance
	err := tx.Where("asset = ?", asset).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = models.Balance{Asset: asset, Amount: amount}
		if err := tx.Create(&balance).Error; err != nil {
			return fmt.Errorf("failed to create balance for %s: %w", asset, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read balance for %s: %w", asset, err)
	}

	if err := tx.Model(&balance).Update("amount", amount).Error; err != nil {
		return fmt.Errorf("failed to update balance for %s: %w", asset, err)
	}
	return nil
}

// applyTransfer performs the debit/credit pair for one trade inside the
// caller's transaction. A BUY spends quantity×price of the quote asset
// for quantity of the base asset; a SELL is the inverse. Both legs are
// written or, on ErrInsufficientFunds, neither.
func applyTransfer(tx *gorm.DB, side, base, quote string, quantity, price decimal.Decimal) error {
	baseHeld, err := assetBalance(tx, base)
	if err != nil {
		return err
	}
	quoteHeld, err := assetBalance(tx, quote)
	if err != nil {
		return err
	}

	quoteAmount := quantity.Mul(price)

	switch side {
	case models.SideBuy:
		if quoteHeld.LessThan(quoteAmount) {
			return fmt.Errorf("%w: need %s %s, have %s", ErrInsufficientFunds, quoteAmount, quote, quoteHeld)
		}
		if err := setBalance(tx, quote, quoteHeld.Sub(quoteAmount)); err != nil {
			return err
		}
		return setBalance(tx, base, baseHeld.Add(quantity))
	case models.SideSell:
		if baseHeld.LessThan(quantity) {
			return fmt.Errorf("%w: need %s %s, have %s", ErrInsufficientFunds, quantity, base, baseHeld)
		}
		if err := setBalance(tx, base, baseHeld.Sub(quantity)); err != nil {
			return err
		}
		return setBalance(tx, quote, quoteHeld.Add(quoteAmount))
	default:
		return fmt.Errorf("unknown trade side %q", side)
	}
}

// balanceSnapshot reads every tracked balance.
func balanceSnapshot(tx *gorm.DB) (map[string]decimal.Decimal, error) {
	var balances []models.Balance
	if err := tx.Find(&balances).Error; err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}

	snapshot := make(map[string]decimal.Decimal, len(balances))
	for _, balance := range balances {
		snapshot[balance.Asset] = balance.Amount
	}
	return snapshot, nil
}
