// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package record

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Checkpoint is the full tower state at some point of the vote log.
// Votes appended after it are replayed on top of it.
type Checkpoint struct {
	Root    *uint64           `cbor:"1,keyasint,omitempty"`
	Entries []CheckpointEntry `cbor:"2,keyasint"`
}

type CheckpointEntry struct {
	Slot    uint64 `cbor:"1,keyasint"`
	Lockout uint32 `cbor:"2,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1024,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func NewCheckpoint(cp Checkpoint) (Record, error) {
	payload, err := encMode.Marshal(cp)
	if err != nil {
		return Record{}, fmt.Errorf("failed encoding checkpoint: %w", err)
	}
	return Record{
		Version: CurrentVersion,
		Type:    CheckpointRecordType,
		Payload: payload,
	}, nil
}

// DecodeCheckpoint returns the checkpoint carried by a checkpoint record.
// The returned state is not validated.
func DecodeCheckpoint(r Record) (Checkpoint, error) {
	var cp Checkpoint
	if r.Type != CheckpointRecordType {
		return cp, fmt.Errorf("%w: expected checkpoint record, got type %d", ErrMalformed, r.Type)
	}
	if err := decMode.Unmarshal(r.Payload, &cp); err != nil {
		return cp, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return cp, nil
}
