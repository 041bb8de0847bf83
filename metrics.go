// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tower"

type metrics struct {
	votes        prometheus.Counter
	rejected     prometheus.Counter
	expired      prometheus.Counter
	roots        prometheus.Counter
	depth        prometheus.Gauge
	root         prometheus.Gauge
	lastVoteSlot prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		votes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "votes_total",
			Help:      "Number of votes recorded on the tower.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejected_votes_total",
			Help:      "Number of votes rejected for not being newer than the last vote.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "expired_votes_total",
			Help:      "Number of votes removed from the tower because their lockout expired.",
		}),
		roots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "roots_total",
			Help:      "Number of votes that became the tower root.",
		}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "depth",
			Help:      "Number of votes on the tower.",
		}),
		root: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "root_slot",
			Help:      "Slot of the tower root.",
		}),
		lastVoteSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_vote_slot",
			Help:      "Slot of the most recent vote.",
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.votes, m.rejected, m.expired, m.roots, m.depth, m.root, m.lastVoteSlot} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observe(t *Tower, result VoteResult) {
	m.votes.Inc()
	m.expired.Add(float64(len(result.ExpiredSlots)))
	if result.NewRoot != nil {
		m.roots.Inc()
	}
	m.setState(t)
}

func (m *metrics) setState(t *Tower) {
	m.depth.Set(float64(t.Depth()))
	if root, ok := t.Root(); ok {
		m.root.Set(float64(root))
	}
	if last, ok := t.LastVotedSlot(); ok {
		m.lastVoteSlot.Set(float64(last))
	}
}
