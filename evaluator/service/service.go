// Package service drives probe rounds: sample peers, probe and verify,
// score, then hand the round to every sink.
package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"github.com/gridprotocol/computing-evaluator/evaluator/reward"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
	"golang.org/x/xerrors"
)

var logger = logc.Logger("service")

// Sink receives the outcome of every round.
type Sink interface {
	Update(ctx context.Context, round *model.Round) error
}

// Prober probes peers with a fresh nonce and returns verified reports in
// peer order, nil for absent peers.
type Prober interface {
	Round(ctx context.Context, peers []model.Peer) (string, []*protocol.Report, error)
}

type PeerSource interface {
	Peers(ctx context.Context) ([]model.Peer, error)
}

type Config struct {
	// SampleSize is the number of peers probed per round; 0 probes all.
	SampleSize int
	Interval   time.Duration
	Reward     reward.Params
}

type Service struct {
	cfg    Config
	prober Prober
	peers  PeerSource
	sinks  []Sink

	mu  sync.Mutex // one round at a time
	rnd *rand.Rand
	now func() time.Time
}

func New(cfg Config, prober Prober, peers PeerSource, sinks ...Sink) *Service {
	return &Service{
		cfg:    cfg,
		prober: prober,
		peers:  peers,
		sinks:  sinks,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// sample picks n peers uniformly at random, keeping registry order among
// the chosen ones.
func (s *Service) sample(peers []model.Peer) []model.Peer {
	n := s.cfg.SampleSize
	if n <= 0 || n >= len(peers) {
		return peers
	}
	idx := s.rnd.Perm(len(peers))[:n]
	chosen := make([]bool, len(peers))
	for _, i := range idx {
		chosen[i] = true
	}
	out := make([]model.Peer, 0, n)
	for i, p := range peers {
		if chosen[i] {
			out = append(out, p)
		}
	}
	return out
}

// RunRound performs one complete round. Sink failures are logged and do
// not fail the round.
func (s *Service) RunRound(ctx context.Context) (*model.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.peers.Peers(ctx)
	if err != nil {
		return nil, xerrors.Errorf("load peers: %w", err)
	}
	peers := s.sample(all)

	round := &model.Round{Peers: peers, StartedAt: s.now()}
	nonce, results, err := s.prober.Round(ctx, peers)
	if err != nil {
		return nil, err
	}
	round.Nonce = nonce
	round.Results = results
	for _, r := range results {
		if r != nil {
			round.Verified++
		}
	}
	round.Rewards = reward.Compute(results, s.cfg.Reward)
	round.FinishedAt = s.now()
	round.Digest = round.ComputeDigest()

	logger.Infow("round finished",
		"peers", len(peers),
		"verified", round.Verified,
		"rewards", []float64(round.Rewards),
		"digest", round.Digest,
		"took", round.FinishedAt.Sub(round.StartedAt).String(),
	)

	for _, sink := range s.sinks {
		if err := sink.Update(ctx, round); err != nil {
			logger.Error("sink update: ", err)
		}
	}
	return round, nil
}

// Run starts a round immediately and then on every interval tick until
// ctx is done. A round that outlasts the interval is followed by at most
// one round on the next tick; the missed ticks are dropped.
func (s *Service) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	return s.loop(ctx, ticker.C)
}

func (s *Service) loop(ctx context.Context, tick <-chan time.Time) error {
	for {
		if _, err := s.RunRound(ctx); err != nil {
			logger.Error("round failed: ", err)
		}
		// a tick buffered during the round is stale
		select {
		case <-tick:
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
