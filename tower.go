// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import (
	"fmt"
)

// MaxLockoutHistory is the number of votes kept on the tower. A vote pushed
// below this depth becomes the root.
const MaxLockoutHistory = 32

// VoteResult describes the effects of a single vote on the tower.
type VoteResult struct {
	// NewRoot is the slot evicted from the bottom of the tower, if any.
	NewRoot *uint64
	// ExpiredSlots are the slots whose lockout was abandoned by the vote,
	// in ascending order.
	ExpiredSlots []uint64
}

// Tower is the lockout stack of a single validator.
// It is not safe for concurrent use, see Keeper.
type Tower struct {
	stack   []Entry // oldest first
	root    uint64
	hasRoot bool
}

// New returns an empty tower without a root.
func New() *Tower {
	return &Tower{
		stack: make([]Entry, 0, MaxLockoutHistory+1),
	}
}

// Restore builds a tower from persisted entries (oldest first) and root.
// The result is checked with Validate, a tower that fails the check is never returned.
func Restore(entries []Entry, root *uint64) (*Tower, error) {
	t := New()
	t.stack = append(t.stack, entries...)
	if root != nil {
		t.root = *root
		t.hasRoot = true
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// RecordVote records a vote for the given slot.
func (t *Tower) RecordVote(slot uint64) (VoteResult, error) {
	if last, ok := t.LastVotedSlot(); ok && slot <= last {
		return VoteResult{}, fmt.Errorf("%w: slot %d, last voted %d", ErrInvalidVoteOrder, slot, last)
	}

	survivors, expired := expire(t.stack, slot)

	survivors = append(survivors, Entry{Slot: slot, Lockout: 1})
	double(survivors, slot)

	var result VoteResult
	result.ExpiredSlots = expired

	if len(survivors) > MaxLockoutHistory {
		newRoot := survivors[0].Slot
		survivors = survivors[1:]
		t.root = newRoot
		t.hasRoot = true
		result.NewRoot = &newRoot
	}

	t.stack = survivors
	return result, nil
}

// expire marks the entries whose lockout the vote abandons, cascades the
// marks up the doubling ladders built on them, and returns a fresh stack
// holding the survivors along with the expired slots.
func expire(stack []Entry, slot uint64) ([]Entry, []uint64) {
	expired := make([]bool, len(stack))
	var roots []int
	for i, e := range stack {
		if e.expiredBy(slot) {
			expired[i] = true
			roots = append(roots, i)
		}
	}

	for _, i := range roots {
		curr := stack[i].Lockout
		for j := i + 1; j < len(stack); j++ {
			if stack[j].Lockout+1 != curr {
				break
			}
			expired[j] = true
			curr = stack[j].Lockout
		}
	}

	survivors := make([]Entry, 0, MaxLockoutHistory+1)
	var expiredSlots []uint64
	for i, e := range stack {
		if expired[i] {
			expiredSlots = append(expiredSlots, e.Slot)
			continue
		}
		survivors = append(survivors, e)
	}
	return survivors, expiredSlots
}

// double walks from the top of the stack toward the bottom and doubles the
// lockout of every vote the new slot reconfirms. The walk reads the exponents
// it has already updated and stops at the first pair that does not qualify.
func double(stack []Entry, slot uint64) {
	for i := len(stack) - 1; i > 0; i-- {
		older, newer := &stack[i-1], stack[i]
		if older.Lockout != newer.Lockout || slot >= older.ExpirationSlot() {
			return
		}
		older.Lockout++
	}
}

// Root returns the root slot, if the tower has one.
func (t *Tower) Root() (uint64, bool) {
	return t.root, t.hasRoot
}

// LastVotedSlot returns the slot of the most recent vote on the tower.
func (t *Tower) LastVotedSlot() (uint64, bool) {
	if len(t.stack) == 0 {
		return 0, false
	}
	return t.stack[len(t.stack)-1].Slot, true
}

// Depth is the number of votes on the tower.
func (t *Tower) Depth() int {
	return len(t.stack)
}

// Entries returns a copy of the stack, oldest first.
func (t *Tower) Entries() []Entry {
	entries := make([]Entry, len(t.stack))
	copy(entries, t.stack)
	return entries
}

// Snapshot returns the votes on the tower oldest first, along with their
// lockout durations and expiration slots.
func (t *Tower) Snapshot() []EntryView {
	views := make([]EntryView, len(t.stack))
	for i, e := range t.stack {
		views[i] = e.view()
	}
	return views
}

// Clone returns a deep copy of the tower.
func (t *Tower) Clone() *Tower {
	c := New()
	c.stack = append(c.stack, t.stack...)
	c.root = t.root
	c.hasRoot = t.hasRoot
	return c
}

// Validate checks the invariants that every tower built by RecordVote holds.
func (t *Tower) Validate() error {
	if len(t.stack) > MaxLockoutHistory {
		return fmt.Errorf("%w: %d entries exceed the maximum of %d", ErrCorruptState, len(t.stack), MaxLockoutHistory)
	}

	for i, e := range t.stack {
		if e.Lockout == 0 || e.Lockout >= maxLockoutExponent {
			return fmt.Errorf("%w: slot %d has lockout exponent %d", ErrCorruptState, e.Slot, e.Lockout)
		}
		if i == 0 {
			continue
		}
		prev := t.stack[i-1]
		if prev.Slot >= e.Slot {
			return fmt.Errorf("%w: slot %d is stacked after slot %d", ErrCorruptState, e.Slot, prev.Slot)
		}
		// Exponents only grow by matching the vote above, so they never increase going up the tower.
		if prev.Lockout < e.Lockout {
			return fmt.Errorf("%w: slot %d has lockout exponent %d above slot %d with exponent %d",
				ErrCorruptState, e.Slot, e.Lockout, prev.Slot, prev.Lockout)
		}
	}

	if t.hasRoot && len(t.stack) > 0 && t.root >= t.stack[0].Slot {
		return fmt.Errorf("%w: root %d is not below the oldest vote %d", ErrCorruptState, t.root, t.stack[0].Slot)
	}

	return nil
}
