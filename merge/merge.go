// Package merge implements the per-contig sweep-line peak union described in
// spec.md 4.B, generalizing the interval-grouping sweep in
// interval.scanBEDUnion (which groups a single replicate's own
// touching/overlapping intervals) to three tagged origins (oracle, rep1,
// rep2) and signal aggregation, following original_source/idr/idr.py's
// merge_peaks_in_contig/merge_peaks.
package merge

import (
	"fmt"
	"sort"

	"github.com/grailbio/idr/peak"
)

// Origin identifies which input collection an interval being swept came
// from.
type Origin int

const (
	OriginOracle Origin = iota
	OriginRep1
	OriginRep2
)

// Aggregator combines the signals of the peaks contributing to one side of a
// merged peak.
type Aggregator int

const (
	Sum Aggregator = iota
	Mean
	Min
	Max
)

// ParseAggregator parses a --peak-merge-method argument. "avg" is accepted
// as a synonym for "mean" (the reference parser's choices are
// sum/avg/min/max; "avg" and "mean" name the same reduction).
func ParseAggregator(s string) (Aggregator, error) {
	switch s {
	case "sum":
		return Sum, nil
	case "mean", "avg":
		return Mean, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	default:
		return 0, fmt.Errorf("merge: unrecognized --peak-merge-method %q", s)
	}
}

// DefaultAggregator returns the spec.md 4.B documented default: sum for
// score/signal-value ranks, mean for p-value/q-value ranks.
func DefaultAggregator(rank peak.RankSpec) Aggregator {
	switch rank.Column {
	case peak.RankPValue, peak.RankQValue:
		return Mean
	default:
		return Sum
	}
}

func (a Aggregator) apply(signals []float64) float64 {
	if len(signals) == 0 {
		return 0
	}
	switch a {
	case Sum:
		var s float64
		for _, v := range signals {
			s += v
		}
		return s
	case Mean:
		var s float64
		for _, v := range signals {
			s += v
		}
		return s / float64(len(signals))
	case Min:
		m := signals[0]
		for _, v := range signals[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case Max:
		m := signals[0]
		for _, v := range signals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	default:
		panic(fmt.Sprintf("merge: unknown aggregator %d", a))
	}
}

// JointScore combines two aggregated replicate signals into the score that
// the final merged peak list is sorted by, using the same aggregator as the
// per-replicate reduction (matching the reference's
// `pk_agg_fn((x[4],x[5]))` call).
func (a Aggregator) JointScore(signal1, signal2 float64) float64 {
	return a.apply([]float64{signal1, signal2})
}

// MergedPeak is the bounding interval and aggregated signal for one group of
// overlapping input peaks, per spec.md 3.
type MergedPeak struct {
	Contig string
	Strand string

	MergedStart, MergedStop int

	Signal1, Signal2 float64
	Members1         []peak.Peak
	Members2         []peak.Peak
}

// Options configures the sweep-line merge.
type Options struct {
	Aggregator             Aggregator
	UseNonoverlappingPeaks bool
	// HasOracle is true when an oracle peak set should gate merged-peak
	// membership (spec.md 4.B step 3-4).
	HasOracle bool
}

type taggedInterval struct {
	start, stop int
	signal      float64
	origin      Origin
	member      peak.Peak
}

// Contig merges the peaks for a single (contig, strand) group, implementing
// spec.md 4.B steps 1-5.
func Contig(rep1, rep2, oracle []peak.Peak, opts Options) []MergedPeak {
	all := make([]taggedInterval, 0, len(rep1)+len(rep2)+len(oracle))
	for _, p := range rep1 {
		all = append(all, taggedInterval{p.Start, p.Stop, p.Signal, OriginRep1, p})
	}
	for _, p := range rep2 {
		all = append(all, taggedInterval{p.Start, p.Stop, p.Signal, OriginRep2, p})
	}
	for _, p := range oracle {
		all = append(all, taggedInterval{p.Start, p.Stop, p.Signal, OriginOracle, p})
	}
	if len(all) == 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })

	// Sweep: group intervals whose start is less than the running max stop.
	var groups [][]taggedInterval
	curGroup := []taggedInterval{all[0]}
	curStop := all[0].stop
	for _, x := range all[1:] {
		if x.start < curStop {
			curGroup = append(curGroup, x)
			if x.stop > curStop {
				curStop = x.stop
			}
		} else {
			groups = append(groups, curGroup)
			curGroup = []taggedInterval{x}
			curStop = x.stop
		}
	}
	groups = append(groups, curGroup)

	var contigName, strandName string
	if len(rep1) > 0 {
		contigName, strandName = rep1[0].Contig, rep1[0].Strand
	} else if len(rep2) > 0 {
		contigName, strandName = rep2[0].Contig, rep2[0].Strand
	} else if len(oracle) > 0 {
		contigName, strandName = oracle[0].Contig, oracle[0].Strand
	}

	var merged []MergedPeak
	for _, group := range groups {
		var rep1Members, rep2Members, oracleMembers []taggedInterval
		start, stop := 0, -1
		haveBound := false
		for _, x := range group {
			// The merged interval bounds come from oracle members only when an
			// oracle is in use; otherwise from every member (spec.md 4.B.3).
			if !opts.HasOracle || x.origin == OriginOracle {
				if !haveBound {
					start, stop = x.start, x.stop
					haveBound = true
				} else {
					if x.start < start {
						start = x.start
					}
					if x.stop > stop {
						stop = x.stop
					}
				}
			}
			switch x.origin {
			case OriginRep1:
				rep1Members = append(rep1Members, x)
			case OriginRep2:
				rep2Members = append(rep2Members, x)
			case OriginOracle:
				oracleMembers = append(oracleMembers, x)
			}
		}
		if !haveBound {
			// No oracle member contributed to this group even though an oracle is
			// in use: drop it (spec.md 4.B.3: "groups with no oracle member are
			// dropped").
			continue
		}
		if opts.HasOracle {
			// An oracle-defined peak that overlaps no sample peak at all
			// contributes nothing and is dropped (spec.md 8, invariant 1: merged
			// count with an oracle equals the number of oracle peaks overlapping
			// at least one sample peak).
			if len(rep1Members) == 0 && len(rep2Members) == 0 {
				continue
			}
		} else if !opts.UseNonoverlappingPeaks {
			if len(rep1Members) == 0 || len(rep2Members) == 0 {
				continue
			}
		}
		mp := MergedPeak{
			Contig:      contigName,
			Strand:      strandName,
			MergedStart: start,
			MergedStop:  stop,
		}
		mp.Signal1, mp.Members1 = aggregateMembers(rep1Members, opts.Aggregator)
		mp.Signal2, mp.Members2 = aggregateMembers(rep2Members, opts.Aggregator)
		merged = append(merged, mp)
	}
	return merged
}

func aggregateMembers(members []taggedInterval, agg Aggregator) (float64, []peak.Peak) {
	if len(members) == 0 {
		return 0, nil
	}
	signals := make([]float64, len(members))
	peaks := make([]peak.Peak, len(members))
	for i, m := range members {
		signals[i] = m.signal
		peaks[i] = m.member
	}
	return agg.apply(signals), peaks
}

// All merges peaks across every contig/strand group, iterating the oracle's
// groups when one is supplied (so replicate peaks on a contig/strand absent
// from the oracle contribute no merged peaks) and otherwise the union of the two replicates' groups, then
// sorts the result descending by the aggregator's joint score
// (spec.md 4.B "Across contigs").
func All(rep1, rep2, oracle peak.Bucket, opts Options) []MergedPeak {
	var keys []peak.Key
	if oracle != nil {
		opts.HasOracle = true
		for k := range oracle {
			keys = append(keys, k)
		}
	} else {
		seen := make(map[peak.Key]bool)
		for k := range rep1 {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		for k := range rep2 {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Contig != keys[j].Contig {
			return keys[i].Contig < keys[j].Contig
		}
		return keys[i].Strand < keys[j].Strand
	})

	var result []MergedPeak
	for _, k := range keys {
		var oraclePeaks []peak.Peak
		if oracle != nil {
			oraclePeaks = oracle[k]
		}
		result = append(result, Contig(rep1[k], rep2[k], oraclePeaks, opts)...)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return opts.Aggregator.JointScore(result[i].Signal1, result[i].Signal2) >
			opts.Aggregator.JointScore(result[j].Signal1, result[j].Signal2)
	})
	return result
}
