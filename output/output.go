// Package output formats the per-merged-peak IDR result lines (spec.md
// 4.H), following the counted-writer shape of markduplicates/metrics.go
// (a writer that also accumulates summary counts as it goes).
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/grailbio/idr/merge"
)

// Summary reports how many peaks were written and how many met the soft IDR
// threshold, resolving spec.md 9's open question about the "summary counter
// that appears undefined on one code path": it is defined here as the count
// of peaks with globalIDR <= softThresh.
type Summary struct {
	Total        int
	Written      int
	PassingSoft  int
}

// Write formats one tab-separated line per merged peak that passes
// hardThresh, in the column order of spec.md 4.H:
// contig, start_1, stop_1, signal_1, start_2, stop_2, signal_2, globalIDR,
// localIDR, strand. A replicate contributing no members gets -1/-1 for its
// start/stop. If local/global are nil, every peak is treated as having
// IDR 1.0 (matching the reference's "merge-only" output mode).
func Write(w io.Writer, merged []merge.MergedPeak, local, global []float64, hardThresh, softThresh float64) (Summary, error) {
	if local != nil && len(local) != len(merged) {
		return Summary{}, fmt.Errorf("output: local IDR length %d does not match merged-peak count %d", len(local), len(merged))
	}
	if global != nil && len(global) != len(merged) {
		return Summary{}, fmt.Errorf("output: global IDR length %d does not match merged-peak count %d", len(global), len(merged))
	}

	bw := bufio.NewWriter(w)
	summary := Summary{Total: len(merged)}
	for i, mp := range merged {
		g, l := 1.0, 1.0
		if global != nil {
			g, l = global[i], local[i]
		}
		if g > hardThresh {
			continue
		}
		summary.Written++
		if g <= softThresh {
			summary.PassingSoft++
		}
		if err := writeLine(bw, mp, g, l); err != nil {
			return summary, fmt.Errorf("output: writing line: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return summary, fmt.Errorf("output: flush: %w", err)
	}
	return summary, nil
}

func writeLine(bw *bufio.Writer, mp merge.MergedPeak, globalIDR, localIDR float64) error {
	start1, stop1 := "-1", "-1"
	if len(mp.Members1) > 0 {
		lo, hi := mp.Members1[0].Start, mp.Members1[0].Stop
		for _, m := range mp.Members1[1:] {
			if m.Start < lo {
				lo = m.Start
			}
			if m.Stop > hi {
				hi = m.Stop
			}
		}
		start1, stop1 = fmt.Sprintf("%d", lo), fmt.Sprintf("%d", hi)
	}
	start2, stop2 := "-1", "-1"
	if len(mp.Members2) > 0 {
		lo, hi := mp.Members2[0].Start, mp.Members2[0].Stop
		for _, m := range mp.Members2[1:] {
			if m.Start < lo {
				lo = m.Start
			}
			if m.Stop > hi {
				hi = m.Stop
			}
		}
		start2, stop2 = fmt.Sprintf("%d", lo), fmt.Sprintf("%d", hi)
	}
	_, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%.5f\t%s\t%s\t%.5f\t%.5f\t%.5f\t%s\n",
		mp.Contig, start1, stop1, mp.Signal1, start2, stop2, mp.Signal2, globalIDR, localIDR, mp.Strand)
	return err
}
