// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luxfi/tower/record"
	"go.uber.org/zap"
)

// State is an immutable view of the tower published after a vote.
type State struct {
	// Entries are the votes on the tower, oldest first.
	Entries []EntryView
	// Root is nil until a vote is rooted.
	Root *uint64
}

// Keeper owns the tower of a validator. Votes are applied by a single writer
// at a time, while readers load the last published State without blocking.
// When a WAL is configured, a vote is durable before it is published.
type Keeper struct {
	Config

	lock    sync.Mutex
	tower   *Tower
	halted  error
	state   atomic.Pointer[State]
	metrics *metrics
}

// OpenKeeper rebuilds the tower from the configured WAL, if any, and returns
// a keeper ready to accept votes. A log that does not replay into a valid
// tower yields ErrCorruptState.
func OpenKeeper(conf Config) (*Keeper, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}

	m, err := newMetrics(conf.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed registering metrics: %w", err)
	}

	k := &Keeper{
		Config:  conf,
		tower:   New(),
		metrics: m,
	}

	if conf.WAL != nil {
		records, err := conf.WAL.ReadAll()
		if errors.Is(err, record.ErrInvalidCRC) || errors.Is(err, record.ErrMalformed) {
			return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed reading WAL: %w", err)
		}
		t, err := Replay(records)
		if err != nil {
			k.Logger.Error("Failed rebuilding the tower from the WAL", zap.Int("records", len(records)), zap.Error(err))
			return nil, err
		}
		k.tower = t
		k.Logger.Info("Rebuilt the tower from the WAL", zap.Int("records", len(records)), zap.Int("depth", t.Depth()))
	}

	k.metrics.setState(k.tower)
	k.publish()
	return k, nil
}

// Vote records a vote for the given slot.
func (k *Keeper) Vote(slot uint64) (VoteResult, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	if k.halted != nil {
		return VoteResult{}, fmt.Errorf("%w: %w", ErrKeeperHalted, k.halted)
	}

	next := k.tower.Clone()
	result, err := next.RecordVote(slot)
	if err != nil {
		if errors.Is(err, ErrInvalidVoteOrder) {
			k.metrics.rejected.Inc()
			k.Logger.Warn("Rejected vote", zap.Uint64("slot", slot), zap.Error(err))
		}
		return VoteResult{}, err
	}

	if k.WAL != nil {
		if err := k.persist(next, slot, result); err != nil {
			return VoteResult{}, err
		}
	}

	k.tower = next
	k.publish()
	k.metrics.observe(next, result)

	k.Logger.Verbo("Recorded vote", zap.Uint64("slot", slot), zap.Int("depth", next.Depth()))
	if len(result.ExpiredSlots) > 0 {
		k.Logger.Debug("Votes expired", zap.Uint64("slot", slot), zap.Uint64s("expired", result.ExpiredSlots))
	}
	if result.NewRoot != nil {
		k.Logger.Info("New root", zap.Uint64("root", *result.NewRoot), zap.Uint64("slot", slot))
	}

	return result, nil
}

// persist makes the vote durable. When the vote advanced the root, a checkpoint
// of the resulting tower follows the vote so replay can start from it.
// A failed append halts the keeper, the log may end in a partial frame and
// nothing may be appended behind it.
func (k *Keeper) persist(t *Tower, slot uint64, result VoteResult) error {
	if err := k.WAL.Append(record.NewVote(slot)); err != nil {
		k.halted = err
		k.Logger.Error("Failed appending vote to the WAL", zap.Uint64("slot", slot), zap.Error(err))
		return fmt.Errorf("failed persisting vote for slot %d: %w", slot, err)
	}

	if result.NewRoot == nil {
		return nil
	}

	// The vote is durable past this point, so it is published even when the
	// checkpoint is not.
	cp, err := record.NewCheckpoint(checkpointOf(t))
	if err == nil {
		err = k.WAL.Append(cp)
	}
	if err != nil {
		k.halted = err
		k.Logger.Error("Failed appending checkpoint to the WAL", zap.Uint64("slot", slot), zap.Error(err))
	}
	return nil
}

func (k *Keeper) publish() {
	state := &State{
		Entries: k.tower.Snapshot(),
	}
	if root, ok := k.tower.Root(); ok {
		state.Root = &root
	}
	k.state.Store(state)
}

// State returns the last published state of the tower.
func (k *Keeper) State() State {
	s := k.state.Load()
	entries := make([]EntryView, len(s.Entries))
	copy(entries, s.Entries)

	state := State{Entries: entries}
	if s.Root != nil {
		root := *s.Root
		state.Root = &root
	}
	return state
}

// Root returns the root of the last published state.
func (k *Keeper) Root() (uint64, bool) {
	s := k.state.Load()
	if s.Root == nil {
		return 0, false
	}
	return *s.Root, true
}

func checkpointOf(t *Tower) record.Checkpoint {
	var cp record.Checkpoint
	if root, ok := t.Root(); ok {
		cp.Root = &root
	}
	cp.Entries = make([]record.CheckpointEntry, 0, t.Depth())
	for _, e := range t.stack {
		cp.Entries = append(cp.Entries, record.CheckpointEntry{Slot: e.Slot, Lockout: e.Lockout})
	}
	return cp
}
