package database

import (
	"errors"
	"fmt"

	"rsi-trade-ledger-go/internal/config"
	"rsi-trade-ledger-go/internal/ledger"
	"rsi-trade-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection, performs auto-migration
// and seeds the initial balances.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := SeedBalances(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema for all ledger tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Trade{}, &models.Balance{}, &models.SequenceState{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// SeedBalances ensures the configured base and quote assets start with
// their initial balances. Existing balances are left untouched so a
// restart never resets a live ledger.
func SeedBalances(db *gorm.DB, cfg *config.Config) error {
	base, quote := ledger.ParsePair(cfg.Trading.Pair)

	initialBase, err := decimal.NewFromString(cfg.Trading.InitialBaseBalance)
	if err != nil {
		return fmt.Errorf("invalid initial_base_balance %q: %w", cfg.Trading.InitialBaseBalance, err)
	}
	initialQuote, err := decimal.NewFromString(cfg.Trading.InitialQuoteBalance)
	if err != nil {
		return fmt.Errorf("invalid initial_quote_balance %q: %w", cfg.Trading.InitialQuoteBalance, err)
	}

	seeds := []models.Balance{
		{Asset: base, Amount: initialBase},
		{Asset: quote, Amount: initialQuote},
	}

	for _, seed := range seeds {
		var existing models.Balance
		err := db.Where("asset = ?", seed.Asset).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&seed).Error; err != nil {
				return fmt.Errorf("failed to seed balance for %s: %w", seed.Asset, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to check balance for %s: %w", seed.Asset, err)
		}
	}

	return nil
}
