// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package record

import (
	"encoding/binary"
	"fmt"
)

const voteSlotLen = 8

func NewVote(slot uint64) Record {
	payload := make([]byte, voteSlotLen)
	binary.BigEndian.PutUint64(payload, slot)
	return Record{
		Version: CurrentVersion,
		Type:    VoteRecordType,
		Payload: payload,
	}
}

// VoteSlot returns the slot carried by a vote record.
func VoteSlot(r Record) (uint64, error) {
	if r.Type != VoteRecordType {
		return 0, fmt.Errorf("%w: expected vote record, got type %d", ErrMalformed, r.Type)
	}
	if len(r.Payload) != voteSlotLen {
		return 0, fmt.Errorf("%w: vote payload is %d bytes, expected %d", ErrMalformed, len(r.Payload), voteSlotLen)
	}
	return binary.BigEndian.Uint64(r.Payload), nil
}
