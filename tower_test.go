// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func voteAll(t *testing.T, tower *Tower, slots ...uint64) []VoteResult {
	results := make([]VoteResult, 0, len(slots))
	for _, slot := range slots {
		result, err := tower.RecordVote(slot)
		require.NoError(t, err)
		results = append(results, result)
	}
	return results
}

func sequence(from, to uint64) []uint64 {
	slots := make([]uint64, 0, to-from+1)
	for s := from; s <= to; s++ {
		slots = append(slots, s)
	}
	return slots
}

func TestEntry(t *testing.T) {
	for _, testCase := range []struct {
		name       string
		entry      Entry
		duration   uint64
		expiration uint64
	}{
		{
			name:       "single vote",
			entry:      Entry{Slot: 4, Lockout: 1},
			duration:   2,
			expiration: 6,
		},
		{
			name:       "doubled vote",
			entry:      Entry{Slot: 1, Lockout: 4},
			duration:   16,
			expiration: 17,
		},
		{
			name:       "expiration saturates",
			entry:      Entry{Slot: math.MaxUint64 - 1, Lockout: 2},
			duration:   4,
			expiration: math.MaxUint64,
		},
		{
			name:       "duration saturates",
			entry:      Entry{Slot: 1, Lockout: 64},
			duration:   math.MaxUint64,
			expiration: math.MaxUint64,
		},
		{
			name:       "largest exact duration",
			entry:      Entry{Slot: 0, Lockout: 63},
			duration:   1 << 63,
			expiration: 1 << 63,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.duration, testCase.entry.LockoutDuration())
			require.Equal(t, testCase.expiration, testCase.entry.ExpirationSlot())
		})
	}
}

func TestRecordVoteScenarios(t *testing.T) {
	tower := New()

	// Consecutive votes double every vote below them.
	results := voteAll(t, tower, 1, 2, 3, 4)
	for _, result := range results {
		require.Empty(t, result.ExpiredSlots)
		require.Nil(t, result.NewRoot)
	}
	require.Equal(t, []Entry{{1, 4}, {2, 3}, {3, 2}, {4, 1}}, tower.Entries())
	_, hasRoot := tower.Root()
	require.False(t, hasRoot)

	// Slot 9 is past the lockout of slots 3 and 4.
	result, err := tower.RecordVote(9)
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 4}, result.ExpiredSlots)
	require.Nil(t, result.NewRoot)
	require.Equal(t, []Entry{{1, 4}, {2, 3}, {9, 1}}, tower.Entries())

	// Slot 10 reconfirms slot 9 but lands on the expiration of slot 2.
	result, err = tower.RecordVote(10)
	require.NoError(t, err)
	require.Empty(t, result.ExpiredSlots)
	require.Equal(t, []Entry{{1, 4}, {2, 3}, {9, 2}, {10, 1}}, tower.Entries())

	// Slot 11 expires slot 2, and the votes doubled on top of it go with it.
	result, err = tower.RecordVote(11)
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 9, 10}, result.ExpiredSlots)
	require.Equal(t, []Entry{{1, 4}, {11, 1}}, tower.Entries())
}

func TestRecordVoteCascadeStopsAtGap(t *testing.T) {
	tower := New()
	voteAll(t, tower, 1, 2, 3, 4, 9)
	require.Equal(t, []Entry{{1, 4}, {2, 3}, {9, 1}}, tower.Entries())

	// Slot 2 expires, but slot 9 was not doubled on top of it.
	result, err := tower.RecordVote(11)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, result.ExpiredSlots)
	// Slot 11 is the expiration slot of slot 9, so slot 9 is not doubled.
	require.Equal(t, []Entry{{1, 4}, {9, 1}, {11, 1}}, tower.Entries())

	result, err = tower.RecordVote(12)
	require.NoError(t, err)
	require.Equal(t, []uint64{9}, result.ExpiredSlots)
	require.Equal(t, []Entry{{1, 4}, {11, 2}, {12, 1}}, tower.Entries())
}

func TestRecordVoteRoot(t *testing.T) {
	tower := New()

	results := voteAll(t, tower, sequence(1, MaxLockoutHistory)...)
	for _, result := range results {
		require.Empty(t, result.ExpiredSlots)
		require.Nil(t, result.NewRoot)
	}
	require.Equal(t, MaxLockoutHistory, tower.Depth())
	_, hasRoot := tower.Root()
	require.False(t, hasRoot)

	result, err := tower.RecordVote(MaxLockoutHistory + 1)
	require.NoError(t, err)
	require.NotNil(t, result.NewRoot)
	require.Equal(t, uint64(1), *result.NewRoot)
	require.Empty(t, result.ExpiredSlots)
	require.Equal(t, MaxLockoutHistory, tower.Depth())

	root, hasRoot := tower.Root()
	require.True(t, hasRoot)
	require.Equal(t, uint64(1), root)

	entries := tower.Entries()
	for i, e := range entries {
		require.Equal(t, uint64(i+2), e.Slot)
		require.Equal(t, uint32(MaxLockoutHistory-i), e.Lockout)
	}

	result, err = tower.RecordVote(MaxLockoutHistory + 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), *result.NewRoot)
	require.Equal(t, MaxLockoutHistory, tower.Depth())
}

func TestRecordVoteRejectsOldSlots(t *testing.T) {
	tower := New()

	// The first vote can be for any slot.
	_, err := tower.RecordVote(0)
	require.NoError(t, err)

	voteAll(t, tower, 1, 2, 3, 4, 9)

	before := tower.Entries()
	for _, slot := range []uint64{0, 4, 8, 9} {
		_, err := tower.RecordVote(slot)
		require.ErrorIs(t, err, ErrInvalidVoteOrder)
		require.Equal(t, before, tower.Entries())
		_, hasRoot := tower.Root()
		require.False(t, hasRoot)
	}

	last, ok := tower.LastVotedSlot()
	require.True(t, ok)
	require.Equal(t, uint64(9), last)
}

func TestSnapshot(t *testing.T) {
	tower := New()
	require.Empty(t, tower.Snapshot())

	voteAll(t, tower, 1, 2, 3, 4)

	require.Equal(t, []EntryView{
		{Slot: 1, Lockout: 4, LockoutDuration: 16, ExpirationSlot: 17},
		{Slot: 2, Lockout: 3, LockoutDuration: 8, ExpirationSlot: 10},
		{Slot: 3, Lockout: 2, LockoutDuration: 4, ExpirationSlot: 7},
		{Slot: 4, Lockout: 1, LockoutDuration: 2, ExpirationSlot: 6},
	}, tower.Snapshot())

	// Snapshots and entries are copies.
	snapshot := tower.Snapshot()
	snapshot[0].Lockout = 1
	entries := tower.Entries()
	entries[0].Lockout = 1
	require.Equal(t, uint32(4), tower.Snapshot()[0].Lockout)
}

func TestClone(t *testing.T) {
	tower := New()
	voteAll(t, tower, sequence(1, MaxLockoutHistory+1)...)

	clone := tower.Clone()
	_, err := clone.RecordVote(100)
	require.NoError(t, err)

	require.NotEqual(t, tower.Entries(), clone.Entries())
	last, _ := tower.LastVotedSlot()
	require.Equal(t, uint64(MaxLockoutHistory+1), last)
}

func randomSlots(seed int64, n int) []uint64 {
	r := rand.New(rand.NewSource(seed))
	slots := make([]uint64, n)
	var slot uint64
	for i := range slots {
		// Mostly consecutive votes, with an occasional jump over a fork.
		gap := uint64(1)
		if r.Intn(4) == 0 {
			gap += uint64(r.Intn(40))
		}
		slot += gap
		slots[i] = slot
	}
	return slots
}

func TestRecordVoteInvariants(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		tower := New()
		var prevRoot uint64
		var hadRoot bool

		for _, slot := range randomSlots(seed, 500) {
			result, err := tower.RecordVote(slot)
			require.NoError(t, err)

			require.LessOrEqual(t, tower.Depth(), MaxLockoutHistory)
			require.NoError(t, tower.Validate())

			root, hasRoot := tower.Root()
			if hadRoot {
				require.True(t, hasRoot)
				require.GreaterOrEqual(t, root, prevRoot)
			}
			if result.NewRoot != nil {
				require.Equal(t, root, *result.NewRoot)
			}
			prevRoot, hadRoot = root, hasRoot

			for _, v := range tower.Snapshot() {
				require.Equal(t, v.Slot+(uint64(1)<<v.Lockout), v.ExpirationSlot)
			}

			last, _ := tower.LastVotedSlot()
			require.Equal(t, slot, last)
		}
	}
}

func TestRecordVoteDeterministic(t *testing.T) {
	slots := randomSlots(42, 1000)

	t1, t2 := New(), New()
	voteAll(t, t1, slots...)
	voteAll(t, t2, slots...)

	require.Equal(t, t1.Entries(), t2.Entries())
	r1, ok1 := t1.Root()
	r2, ok2 := t2.Root()
	require.Equal(t, ok1, ok2)
	require.Equal(t, r1, r2)
}

func TestRestore(t *testing.T) {
	tower := New()
	voteAll(t, tower, randomSlots(7, 300)...)
	last, _ := tower.LastVotedSlot()
	voteAll(t, tower, sequence(last+1, last+MaxLockoutHistory+1)...)

	root, ok := tower.Root()
	require.True(t, ok)

	restored, err := Restore(tower.Entries(), &root)
	require.NoError(t, err)
	require.Equal(t, tower.Entries(), restored.Entries())

	last, _ = tower.LastVotedSlot()
	_, err = tower.RecordVote(last + 3)
	require.NoError(t, err)
	_, err = restored.RecordVote(last + 3)
	require.NoError(t, err)
	require.Equal(t, tower.Entries(), restored.Entries())

	empty, err := Restore(nil, nil)
	require.NoError(t, err)
	require.Zero(t, empty.Depth())
}

func TestRestoreCorruptState(t *testing.T) {
	root := func(r uint64) *uint64 { return &r }

	tooDeep := make([]Entry, MaxLockoutHistory+1)
	for i := range tooDeep {
		tooDeep[i] = Entry{Slot: uint64(i + 1), Lockout: uint32(len(tooDeep) - i)}
	}

	for _, testCase := range []struct {
		name    string
		entries []Entry
		root    *uint64
	}{
		{
			name:    "too many entries",
			entries: tooDeep,
		},
		{
			name:    "unsorted slots",
			entries: []Entry{{2, 2}, {1, 1}},
		},
		{
			name:    "duplicate slots",
			entries: []Entry{{1, 2}, {1, 1}},
		},
		{
			name:    "zero exponent",
			entries: []Entry{{1, 0}},
		},
		{
			name:    "exponent out of range",
			entries: []Entry{{1, 64}},
		},
		{
			name:    "exponent grows up the tower",
			entries: []Entry{{1, 1}, {2, 2}},
		},
		{
			name:    "root not below the oldest vote",
			entries: []Entry{{5, 2}, {6, 1}},
			root:    root(5),
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Restore(testCase.entries, testCase.root)
			require.ErrorIs(t, err, ErrCorruptState)
		})
	}
}
