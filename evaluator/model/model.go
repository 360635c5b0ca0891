package model

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/zeebo/blake3"
)

// Peer is a computing provider the evaluator probes.
type Peer struct {
	Address  string `json:"address"`
	Endpoint string `json:"endpoint"`
}

// RewardVector holds one share per probed peer, in probe order.
type RewardVector []float64

func (rv RewardVector) Sum() float64 {
	var s float64
	for _, v := range rv {
		s += v
	}
	return s
}

// Round is the outcome of one probe cycle.
type Round struct {
	Digest     string             `json:"digest"`
	Nonce      string             `json:"nonce"`
	Peers      []Peer             `json:"peers"`
	Results    []*protocol.Report `json:"results"`
	Rewards    RewardVector       `json:"rewards"`
	Verified   int                `json:"verified"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
}

// ComputeDigest hashes the nonce and the peer/reward pairs of the round.
func (r *Round) ComputeDigest() string {
	var sb strings.Builder
	sb.WriteString(r.Nonce)
	for i, p := range r.Peers {
		sb.WriteByte('|')
		sb.WriteString(p.Address)
		sb.WriteByte('=')
		if i < len(r.Rewards) {
			sb.WriteString(strconv.FormatFloat(r.Rewards[i], 'g', -1, 64))
		}
	}
	sum := blake3.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
