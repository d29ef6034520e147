package ledger

import (
	"errors"
	"fmt"

	"rsi-trade-ledger-go/internal/models"

	"gorm.io/gorm"
)

// lastSequence returns the last accepted sequence number for a
// (pair, side) key, zero for a never-seen key.
func lastSequence(tx *gorm.DB, pair, side string) (int64, error) {
	var state models.SequenceState
	err := tx.Where("pair = ? AND side = ?", pair, side).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence state for %s %s: %w", pair, side, err)
	}
	return state.LastSequence, nil
}

// checkSequence validates that a proposed sequence number is strictly
// greater than the last accepted one. It never mutates state; the
// advance happens separately so that only executed trades consume a
// sequence slot.
func checkSequence(tx *gorm.DB, pair, side string, proposed int64) (last int64, ok bool, err error) {
	last, err = lastSequence(tx, pair, side)
	if err != nil {
		return 0, false, err
	}
	return last, proposed >= 1 && proposed > last, nil
}

// advanceSequence records a newly accepted sequence number for the key.
func advanceSequence(tx *gorm.DB, pair, side string, sequence int64) error {
	var state models.SequenceState
	err := tx.Where("pair = ? AND side = ?", pair, side).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.SequenceState{Pair: pair, Side: side, LastSequence: sequence}
		if err := tx.Create(&state).Error; err != nil {
			return fmt.Errorf("failed to create sequence state for %s %s: %w", pair, side, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read sequence state for %s %s: %w", pair, side, err)
	}

	if err := tx.Model(&state).Update("last_sequence", sequence).Error; err != nil {
		return fmt.Errorf("failed to advance sequence for %s %s: %w", pair, side, err)
	}
	return nil
}
