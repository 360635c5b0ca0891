// Package metrics exports round statistics to prometheus.
package metrics

import (
	"context"

	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evaluator_rounds_total",
		Help: "The number of completed probe rounds.",
	})
	probedPeers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evaluator_probed_peers_total",
		Help: "The number of peers probed across all rounds.",
	})
	verifiedPeers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evaluator_verified_peers_total",
		Help: "The number of peer replies that passed verification.",
	})
	roundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "evaluator_round_duration_seconds",
		Help:    "Wall time of a probe round.",
		Buckets: prometheus.DefBuckets,
	})
	peerReward = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "evaluator_peer_reward",
		Help: "The reward share of each peer in the latest round.",
	}, []string{"address"})
)

// Sink records every finished round.
type Sink struct{}

func (Sink) Update(_ context.Context, round *model.Round) error {
	roundsTotal.Inc()
	probedPeers.Add(float64(len(round.Peers)))
	verifiedPeers.Add(float64(round.Verified))
	if !round.StartedAt.IsZero() && round.FinishedAt.After(round.StartedAt) {
		roundDuration.Observe(round.FinishedAt.Sub(round.StartedAt).Seconds())
	}

	peerReward.Reset()
	for i, p := range round.Peers {
		if i < len(round.Rewards) {
			peerReward.WithLabelValues(p.Address).Set(round.Rewards[i])
		}
	}
	return nil
}
