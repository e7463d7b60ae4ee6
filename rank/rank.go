// Package rank builds randomized tie-broken rank vectors from merged-peak
// signals, following original_source/idr/idr.py's build_rank_vectors
// (numpy.lexsort on (random, signal) then argsort) but over an
// explicitly-seeded *rand.Rand instead of numpy's process-global state, per
// spec.md 9's "carry a seedable generator in the rank-builder context"
// design note.
package rank

import (
	"math/rand"
	"sort"

	"github.com/grailbio/idr/merge"
)

// Build returns, for each element of signals, its rank among all elements
// when sorted ascending by signal with ties broken by an independent uniform
// draw per element. Rank N-1 is the highest signal. The result is a
// permutation of {0, ..., len(signals)-1}.
func Build(rng *rand.Rand, signals []float64) []int {
	n := len(signals)
	tieBreak := make([]float64, n)
	for i := range tieBreak {
		tieBreak[i] = rng.Float64()
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if signals[ia] != signals[ib] {
			return signals[ia] < signals[ib]
		}
		return tieBreak[ia] < tieBreak[ib]
	})
	ranks := make([]int, n)
	for position, idx := range order {
		ranks[idx] = position
	}
	return ranks
}

// BuildVectors computes the two rank vectors for a merged-peak list's
// Signal1/Signal2 columns (spec.md 3, RankVectors).
func BuildVectors(rng *rand.Rand, merged []merge.MergedPeak) (r1, r2 []int) {
	n := len(merged)
	s1 := make([]float64, n)
	s2 := make([]float64, n)
	for i, m := range merged {
		s1[i] = m.Signal1
		s2[i] = m.Signal2
	}
	return Build(rng, s1), Build(rng, s2)
}
