package models

import "gorm.io/gorm"

// SequenceState records the last accepted sequence number for a
// (pair, side) key. Only executed trades advance it.
type SequenceState struct {
	gorm.Model
	Pair         string `gorm:"uniqueIndex:idx_sequence_pair_side;not null"`
	Side         string `gorm:"uniqueIndex:idx_sequence_pair_side;not null"`
	LastSequence int64  `gorm:"not null"`
}
