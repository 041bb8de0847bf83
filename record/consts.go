// Copyright (C) 2019-2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package record

const (
	UndefinedRecordType uint16 = iota
	VoteRecordType
	CheckpointRecordType
)

// CurrentVersion is the version written into new records.
const CurrentVersion uint8 = 1
