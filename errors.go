// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import "errors"

var (
	// ErrInvalidVoteOrder is returned when a vote is not for a slot newer than
	// the most recent vote on the tower. The tower is left unchanged.
	ErrInvalidVoteOrder = errors.New("vote slot is not greater than the last voted slot")

	// ErrCorruptState is returned when a loaded tower violates an invariant.
	// Callers must not proceed with such a tower.
	ErrCorruptState = errors.New("corrupt tower state")

	// ErrKeeperHalted is returned by a keeper that failed to make a vote durable.
	ErrKeeperHalted = errors.New("keeper halted")
)
