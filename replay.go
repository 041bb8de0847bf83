// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import (
	"fmt"

	"github.com/luxfi/tower/record"
)

// Replay rebuilds a tower from the records of a vote log. Checkpoints replace
// the tower built so far, votes are applied on top of it.
func Replay(records []record.Record) (*Tower, error) {
	t := New()

	for i, r := range records {
		if r.Version != record.CurrentVersion {
			return nil, fmt.Errorf("%w: record %d has version %d", ErrCorruptState, i, r.Version)
		}

		switch r.Type {
		case record.VoteRecordType:
			slot, err := record.VoteSlot(r)
			if err != nil {
				return nil, fmt.Errorf("%w: record %d: %w", ErrCorruptState, i, err)
			}
			if _, err := t.RecordVote(slot); err != nil {
				return nil, fmt.Errorf("%w: record %d: %w", ErrCorruptState, i, err)
			}
		case record.CheckpointRecordType:
			restored, err := restoreCheckpoint(r)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			if err := checkSuccession(t, restored); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			t = restored
		default:
			return nil, fmt.Errorf("%w: record %d has unknown type %d", ErrCorruptState, i, r.Type)
		}
	}

	return t, nil
}

func restoreCheckpoint(r record.Record) (*Tower, error) {
	cp, err := record.DecodeCheckpoint(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}

	entries := make([]Entry, len(cp.Entries))
	for i, e := range cp.Entries {
		entries[i] = Entry{Slot: e.Slot, Lockout: e.Lockout}
	}
	return Restore(entries, cp.Root)
}

// checkSuccession rejects a checkpoint that would move the root or the last
// vote backwards.
func checkSuccession(prev, next *Tower) error {
	if prevRoot, ok := prev.Root(); ok {
		nextRoot, ok := next.Root()
		if !ok || nextRoot < prevRoot {
			return fmt.Errorf("%w: checkpoint root precedes root %d", ErrCorruptState, prevRoot)
		}
	}
	if prevLast, ok := prev.LastVotedSlot(); ok {
		nextLast, ok := next.LastVotedSlot()
		if !ok || nextLast < prevLast {
			return fmt.Errorf("%w: checkpoint last vote precedes slot %d", ErrCorruptState, prevLast)
		}
	}
	return nil
}
