// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import (
	"math"
	"math/bits"
)

// maxLockoutExponent is the first exponent whose lockout no longer fits in a slot.
const maxLockoutExponent = 64

// Entry is a single vote on the tower.
type Entry struct {
	// Slot is the slot voted for.
	Slot uint64
	// Lockout is the exponent of the lockout period. Doubling the lockout
	// period of a vote increments it by one.
	Lockout uint32
}

// LockoutDuration is the number of slots the vote commits the validator for.
func (e Entry) LockoutDuration() uint64 {
	if e.Lockout >= maxLockoutExponent {
		return math.MaxUint64
	}
	return uint64(1) << e.Lockout
}

// ExpirationSlot is the last slot still covered by the vote's lockout.
func (e Entry) ExpirationSlot() uint64 {
	sum, carry := bits.Add64(e.Slot, e.LockoutDuration(), 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func (e Entry) expiredBy(slot uint64) bool {
	return slot > e.ExpirationSlot()
}

// EntryView is a read-only rendition of an Entry with its derived values.
type EntryView struct {
	Slot            uint64
	Lockout         uint32
	LockoutDuration uint64
	ExpirationSlot  uint64
}

func (e Entry) view() EntryView {
	return EntryView{
		Slot:            e.Slot,
		Lockout:         e.Lockout,
		LockoutDuration: e.LockoutDuration(),
		ExpirationSlot:  e.ExpirationSlot(),
	}
}
