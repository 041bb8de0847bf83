// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the dependencies of a Keeper.
type Config struct {
	Logger Logger
	// WAL is where votes are made durable before they are published.
	// Votes are kept only in memory when nil.
	WAL VoteLog
	// Registerer receives the tower metrics. Metrics are not exported when nil.
	Registerer prometheus.Registerer
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("no logger configured")
	}
	return nil
}
