// Package reward turns a batch of probe results into a sum-normalized
// reward vector.
package reward

import (
	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/gridprotocol/computing-evaluator/evaluator/model"
)

// DefaultLongevityThreshold is seven days in seconds.
const DefaultLongevityThreshold int64 = 604800

type Params struct {
	// RarityRate maps a GPU model to its weight; unknown models weigh 0.
	RarityRate map[string]float64
	// LongevityBonus is added when the mean running-container uptime
	// exceeds LongevityThreshold seconds.
	LongevityBonus     float64
	LongevityThreshold int64
}

func (p Params) rarity(gpuModel string) float64 {
	return p.RarityRate[gpuModel]
}

func (p Params) threshold() int64 {
	if p.LongevityThreshold <= 0 {
		return DefaultLongevityThreshold
	}
	return p.LongevityThreshold
}

type totals struct {
	gpus   int
	uptime int64
}

func batchTotals(results []*protocol.Report) totals {
	var t totals
	for _, r := range results {
		if r == nil {
			continue
		}
		t.gpus += len(r.Gpus)
		for _, u := range r.RunningUptimes() {
			t.uptime += u
		}
	}
	return t
}

// Compute scores every result against the batch totals and normalizes
// the scores to sum to one. Absent results (nil) score zero; a batch in
// which nothing scored yields all zeros.
func Compute(results []*protocol.Report, p Params) model.RewardVector {
	t := batchTotals(results)

	raw := make(model.RewardVector, len(results))
	var sum float64
	for i, r := range results {
		raw[i] = score(r, t, p)
		sum += raw[i]
	}

	if sum <= 0 {
		return make(model.RewardVector, len(results))
	}
	for i := range raw {
		raw[i] /= sum
	}
	return raw
}

func score(r *protocol.Report, t totals, p Params) float64 {
	if r == nil {
		return 0
	}

	var gpuShare float64
	if t.gpus > 0 {
		gpuShare = float64(len(r.Gpus)) / float64(t.gpus)
	}

	uptimes := r.RunningUptimes()
	var uptime int64
	for _, u := range uptimes {
		uptime += u
	}
	var uptimeShare float64
	if t.uptime > 0 {
		uptimeShare = float64(uptime) / float64(t.uptime)
	}

	// mean over all running containers, not any single one
	var longevity float64
	if len(uptimes) > 0 && float64(uptime)/float64(len(uptimes)) > float64(p.threshold()) {
		longevity = p.LongevityBonus
	}

	var weight float64
	for _, g := range r.Gpus {
		weight += p.rarity(g.Model)
	}

	return (gpuShare + uptimeShare + longevity) * (1 + weight)
}
