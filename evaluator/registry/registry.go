// Package registry keeps the peer roster and the latest round snapshot
// in the local kv store.
package registry

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"github.com/gridprotocol/computing-evaluator/lib/kv"
	"golang.org/x/xerrors"
)

var (
	ErrInvalidAddress  = xerrors.New("invalid peer address")
	ErrInvalidEndpoint = xerrors.New("invalid peer endpoint")
	ErrPeerNotFound    = xerrors.New("peer not found")
	ErrNoRound         = xerrors.New("no round recorded yet")
)

var (
	peerPrefix  = []byte("peer/")
	latestRound = []byte("round/latest")
)

type Registry struct {
	db *kv.Database

	// guards the cached snapshot
	mu     sync.RWMutex
	latest *model.Round
}

func New(db *kv.Database) *Registry {
	return &Registry{db: db}
}

func peerKey(addr string) []byte {
	return append(append([]byte{}, peerPrefix...), addr...)
}

// NormalizeAddress checks a hex account address and returns its checksum
// form.
func NormalizeAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", xerrors.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

func checkEndpoint(ep string) error {
	u, err := url.Parse(ep)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return xerrors.Errorf("%w: %q", ErrInvalidEndpoint, ep)
	}
	return nil
}

// AddPeer stores or replaces a peer.
func (r *Registry) AddPeer(p model.Peer) (model.Peer, error) {
	addr, err := NormalizeAddress(p.Address)
	if err != nil {
		return model.Peer{}, err
	}
	if err := checkEndpoint(p.Endpoint); err != nil {
		return model.Peer{}, err
	}
	p.Address = addr

	b, err := json.Marshal(p)
	if err != nil {
		return model.Peer{}, err
	}
	if err := r.db.Put(peerKey(addr), b); err != nil {
		return model.Peer{}, xerrors.Errorf("store peer %s: %w", addr, err)
	}
	return p, nil
}

func (r *Registry) RemovePeer(addr string) error {
	a, err := NormalizeAddress(addr)
	if err != nil {
		return err
	}
	ok, err := r.db.Has(peerKey(a))
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Errorf("%w: %s", ErrPeerNotFound, a)
	}
	return r.db.Delete(peerKey(a))
}

func (r *Registry) Peer(addr string) (model.Peer, error) {
	a, err := NormalizeAddress(addr)
	if err != nil {
		return model.Peer{}, err
	}
	b, err := r.db.Get(peerKey(a))
	if xerrors.Is(err, kv.ErrNotFound) {
		return model.Peer{}, xerrors.Errorf("%w: %s", ErrPeerNotFound, a)
	}
	if err != nil {
		return model.Peer{}, err
	}
	var p model.Peer
	if err := json.Unmarshal(b, &p); err != nil {
		return model.Peer{}, xerrors.Errorf("decode peer %s: %w", a, err)
	}
	return p, nil
}

// Peers lists every registered peer ordered by address.
func (r *Registry) Peers(_ context.Context) ([]model.Peer, error) {
	var out []model.Peer
	err := r.db.Iterate(peerPrefix, func(_, value []byte) error {
		var p model.Peer
		if err := json.Unmarshal(value, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("list peers: %w", err)
	}
	return out, nil
}

// Update replaces the stored snapshot with round. Only the latest round
// is kept.
func (r *Registry) Update(_ context.Context, round *model.Round) error {
	b, err := json.Marshal(round)
	if err != nil {
		return err
	}
	if err := r.db.Put(latestRound, b); err != nil {
		return xerrors.Errorf("store round: %w", err)
	}
	r.mu.Lock()
	r.latest = round
	r.mu.Unlock()
	return nil
}

func (r *Registry) LatestRound() (*model.Round, error) {
	r.mu.RLock()
	cached := r.latest
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	b, err := r.db.Get(latestRound)
	if xerrors.Is(err, kv.ErrNotFound) {
		return nil, ErrNoRound
	}
	if err != nil {
		return nil, err
	}
	var round model.Round
	if err := json.Unmarshal(b, &round); err != nil {
		return nil, xerrors.Errorf("decode round: %w", err)
	}

	r.mu.Lock()
	r.latest = &round
	r.mu.Unlock()
	return &round, nil
}
