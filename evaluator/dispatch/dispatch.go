// Package dispatch sends a probe to every peer concurrently, then keeps
// only the replies that are signed by the provider key, echo the nonce
// and are fresh.
package dispatch

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"github.com/gridprotocol/computing-evaluator/lib/attest"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

var logger = logc.Logger("dispatch")

var (
	errStatus       = xerrors.New("status flag not set")
	errNonce        = xerrors.New("nonce mismatch")
	errNoSignature  = xerrors.New("missing signature")
	errBadSignature = xerrors.New("signature verification failed")
	errStale        = xerrors.New("stale response")
)

type Config struct {
	// URL is echoed in every probe payload.
	URL     string
	Timeout time.Duration
	// FreshnessWindow is the max accepted age of a response timestamp,
	// in milliseconds.
	FreshnessWindow int64
	// Concurrency caps in-flight calls; 0 means one per peer.
	Concurrency int
}

type Dispatcher struct {
	tr  Transport
	pub ed25519.PublicKey
	cfg Config

	now func() time.Time
}

func New(tr Transport, pub ed25519.PublicKey, cfg Config) *Dispatcher {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = attest.DefaultFreshnessWindow
	}
	return &Dispatcher{
		tr:  tr,
		pub: pub,
		cfg: cfg,
		now: time.Now,
	}
}

// ProbeAll calls every peer with req and returns one slot per peer in
// peer order. A slot is nil when the call failed, panicked, or did not
// finish before timeout or ctx expired.
func (d *Dispatcher) ProbeAll(ctx context.Context, peers []model.Peer, req *protocol.ProbeRequest, timeout time.Duration) []*protocol.RawResponse {
	out := make([]*protocol.RawResponse, len(peers))
	if len(peers) == 0 {
		return out
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var g errgroup.Group
	if d.cfg.Concurrency > 0 {
		g.SetLimit(d.cfg.Concurrency)
	}
	for i, p := range peers {
		i, p := i, p
		g.Go(func() error {
			out[i] = d.probe(ctx, p, req)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

type callResult struct {
	resp *protocol.RawResponse
	err  error
}

// probe runs the transport call in its own goroutine so a call that
// ignores ctx cannot hold the slot past the deadline.
func (d *Dispatcher) probe(ctx context.Context, p model.Peer, req *protocol.ProbeRequest) *protocol.RawResponse {
	if ctx.Err() != nil {
		return nil
	}

	ch := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- callResult{err: &TransportError{Peer: p.Address, Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		resp, err := d.tr.Call(ctx, p, req)
		ch <- callResult{resp: resp, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			logger.Debugf("probe %s failed: %s", p.Address, res.err)
			return nil
		}
		// late replies count as absent
		if ctx.Err() != nil {
			return nil
		}
		return res.resp
	case <-ctx.Done():
		logger.Debugf("probe %s abandoned: %s", p.Address, ctx.Err())
		return nil
	}
}

// Validate returns the decoded report of a reply that passes every
// check, nil otherwise.
func (d *Dispatcher) Validate(raw *protocol.RawResponse, nonce string, nowMillis int64) *protocol.Report {
	rep, err := d.validate(raw, nonce, nowMillis)
	if err != nil {
		logger.Debug("reject response: ", err)
		return nil
	}
	return rep
}

func (d *Dispatcher) validate(raw *protocol.RawResponse, nonce string, nowMillis int64) (*protocol.Report, error) {
	if raw == nil || !raw.Status {
		return nil, errStatus
	}
	data := raw.Data

	got, _ := data.Field(attest.FieldNonce).AsString()
	if nonce == "" || got != nonce {
		return nil, errNonce
	}

	sig, ok := data.Field(attest.FieldSignature).AsString()
	if !ok || sig == "" {
		return nil, errNoSignature
	}
	if !attest.Verify(data, sig, d.pub) {
		return nil, errBadSignature
	}

	if !attest.CheckFreshness(data, nonce, nowMillis, d.cfg.FreshnessWindow) {
		return nil, errStale
	}

	rep, err := protocol.ReportFromRecord(data)
	if err != nil {
		return nil, xerrors.Errorf("malformed payload: %w", err)
	}
	return rep, nil
}

// Round probes peers with a fresh nonce and returns the verified reports
// in peer order. Only nonce generation can fail.
func (d *Dispatcher) Round(ctx context.Context, peers []model.Peer) (string, []*protocol.Report, error) {
	nonce, err := attest.NewNonce()
	if err != nil {
		return "", nil, xerrors.Errorf("generate nonce: %w", err)
	}

	req := protocol.NewProbeRequest(d.cfg.URL, nonce)
	raws := d.ProbeAll(ctx, peers, req, d.cfg.Timeout)

	now := d.now().UnixMilli()
	results := make([]*protocol.Report, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		results[i] = d.Validate(raw, nonce, now)
	}
	return nonce, results, nil
}
