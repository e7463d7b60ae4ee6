// Package idrcalc turns EM posterior membership probabilities into local and
// global IDR values (spec.md 4.G), following
// original_source/idr/idr.py:calc_IDR's local-idr / max-tie-break-rank /
// cumulative-mean construction.
package idrcalc

import (
	"fmt"
	"sort"

	"github.com/grailbio/idr/model"
	"github.com/grailbio/idr/numeric"
)

// LocalIDR computes localIDR_i = 1 - w_i (the posterior probability the
// peak is noise), optionally forcing peaks whose pseudo-values sum below
// zero to localIDR=1 (spec.md 4.G steps 1-2).
func LocalIDR(theta model.Params, z1, z2 []float64, filterBelowNoiseMean bool) ([]float64, error) {
	if len(z1) != len(z2) {
		return nil, fmt.Errorf("idrcalc: z1/z2 length mismatch (%d vs %d)", len(z1), len(z2))
	}
	local := make([]float64, len(z1))
	for i := range z1 {
		f1 := numeric.BivariateNormalPDF(z1[i], z2[i], theta.Mu, theta.Mu, theta.Sigma, theta.Rho)
		f0 := numeric.BivariateNormalPDF(z1[i], z2[i], 0, 0, 1, 0)
		denom := theta.Pi*f1 + (1-theta.Pi)*f0
		var w float64
		if denom != 0 {
			w = theta.Pi * f1 / denom
		}
		local[i] = 1 - w
		if filterBelowNoiseMean && z1[i]+z2[i] < 0 {
			local[i] = 1
		}
	}
	return local, nil
}

// GlobalIDR computes, for every peak, the mean of all localIDR values
// ranked at least as reproducible (ascending localIDR), using max
// tie-breaking on the rank so that tied localIDR values all receive the
// cumulative mean computed through the last tied position (spec.md 4.G
// steps 3-5).
func GlobalIDR(local []float64) []float64 {
	n := len(local)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return local[order[a]] < local[order[b]] })

	sortedLocal := make([]float64, n)
	for pos, idx := range order {
		sortedLocal[pos] = local[idx]
	}

	// maxRank[pos] is the 1-based rank of sortedLocal[pos] under "ties share
	// the largest position" (R's rank(..., ties.method="max")).
	maxRank := make([]int, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && sortedLocal[j+1] == sortedLocal[i] {
			j++
		}
		for k := i; k <= j; k++ {
			maxRank[k] = j + 1
		}
		i = j + 1
	}

	prefixSum := make([]float64, n+1)
	for i, v := range sortedLocal {
		prefixSum[i+1] = prefixSum[i] + v
	}

	cumMean := make([]float64, n)
	for pos := range sortedLocal {
		r := maxRank[pos]
		cumMean[pos] = prefixSum[r] / float64(r)
	}

	global := make([]float64, n)
	for pos, idx := range order {
		global[idx] = cumMean[pos]
	}
	return global
}

// Compute runs the full local/global IDR assembly for a fitted model against
// a pair of pseudo-value vectors (spec.md 4.G).
func Compute(theta model.Params, z1, z2 []float64, filterBelowNoiseMean bool) (local, global []float64, err error) {
	local, err = LocalIDR(theta, z1, z2, filterBelowNoiseMean)
	if err != nil {
		return nil, nil, err
	}
	global = GlobalIDR(local)
	return local, global, nil
}
