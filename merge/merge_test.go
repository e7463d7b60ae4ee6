package merge

import (
	"testing"

	"github.com/grailbio/idr/peak"
	"github.com/stretchr/testify/assert"
)

func pk(start, stop int, signal float64) peak.Peak {
	return peak.Peak{Contig: "chr1", Strand: "+", Start: start, Stop: stop, Signal: signal}
}

// TestContigThreePeakMerge is spec.md's S3 scenario.
func TestContigThreePeakMerge(t *testing.T) {
	rep1 := []peak.Peak{pk(10, 20, 5), pk(30, 40, 7)}
	rep2 := []peak.Peak{pk(15, 25, 4), pk(100, 110, 9)}

	noOverlapOnly := Contig(rep1, rep2, nil, Options{Aggregator: Sum})
	assert.Len(t, noOverlapOnly, 1)
	assert.Equal(t, 10, noOverlapOnly[0].MergedStart)
	assert.Equal(t, 25, noOverlapOnly[0].MergedStop)
	assert.Equal(t, 5.0, noOverlapOnly[0].Signal1)
	assert.Equal(t, 4.0, noOverlapOnly[0].Signal2)

	withNonoverlap := Contig(rep1, rep2, nil, Options{Aggregator: Sum, UseNonoverlappingPeaks: true})
	assert.Len(t, withNonoverlap, 3)
	assert.Equal(t, 10, withNonoverlap[0].MergedStart)
	assert.Equal(t, 25, withNonoverlap[0].MergedStop)
	assert.Equal(t, 30, withNonoverlap[1].MergedStart)
	assert.Equal(t, 40, withNonoverlap[1].MergedStop)
	assert.Equal(t, 7.0, withNonoverlap[1].Signal1)
	assert.Equal(t, 0.0, withNonoverlap[1].Signal2)
	assert.Equal(t, 100, withNonoverlap[2].MergedStart)
	assert.Equal(t, 110, withNonoverlap[2].MergedStop)
	assert.Equal(t, 0.0, withNonoverlap[2].Signal1)
	assert.Equal(t, 9.0, withNonoverlap[2].Signal2)
}

// TestContigOracleDrop is spec.md's S4 scenario: an oracle peak overlapping
// no sample peak contributes nothing.
func TestContigOracleDrop(t *testing.T) {
	oracle := []peak.Peak{pk(0, 100, 1)}
	rep1 := []peak.Peak{pk(200, 300, 1)}
	rep2 := []peak.Peak{pk(250, 350, 1)}

	merged := Contig(rep1, rep2, oracle, Options{Aggregator: Sum, HasOracle: true})
	assert.Empty(t, merged)
}

func TestContigOracleKeepsOverlapping(t *testing.T) {
	oracle := []peak.Peak{pk(0, 100, 1)}
	rep1 := []peak.Peak{pk(10, 50, 3)}
	rep2 := []peak.Peak{pk(20, 60, 4)}

	merged := Contig(rep1, rep2, oracle, Options{Aggregator: Sum, HasOracle: true})
	assert.Len(t, merged, 1)
	assert.Equal(t, 0, merged[0].MergedStart)
	assert.Equal(t, 100, merged[0].MergedStop)
	assert.Equal(t, 3.0, merged[0].Signal1)
	assert.Equal(t, 4.0, merged[0].Signal2)
}

func TestParseAggregatorAcceptsAvgAlias(t *testing.T) {
	agg, err := ParseAggregator("avg")
	assert.NoError(t, err)
	assert.Equal(t, Mean, agg)

	agg, err = ParseAggregator("mean")
	assert.NoError(t, err)
	assert.Equal(t, Mean, agg)

	_, err = ParseAggregator("bogus")
	assert.Error(t, err)
}

func TestAggregatorApply(t *testing.T) {
	tests := []struct {
		agg  Aggregator
		in   []float64
		want float64
	}{
		{Sum, []float64{1, 2, 3}, 6},
		{Mean, []float64{1, 2, 3}, 2},
		{Min, []float64{3, 1, 2}, 1},
		{Max, []float64{3, 1, 2}, 3},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.agg.apply(test.in))
	}
}

func TestAllSortsDescendingByJointScore(t *testing.T) {
	rep1 := peak.Bucket{
		{Contig: "chr1", Strand: "+"}: {pk(10, 20, 1)},
		{Contig: "chr2", Strand: "+"}: {{Contig: "chr2", Strand: "+", Start: 10, Stop: 20, Signal: 100}},
	}
	rep2 := peak.Bucket{
		{Contig: "chr1", Strand: "+"}: {pk(10, 20, 1)},
		{Contig: "chr2", Strand: "+"}: {{Contig: "chr2", Strand: "+", Start: 10, Stop: 20, Signal: 100}},
	}
	merged := All(rep1, rep2, nil, Options{Aggregator: Sum})
	assert.Len(t, merged, 2)
	assert.Equal(t, "chr2", merged[0].Contig)
	assert.Equal(t, "chr1", merged[1].Contig)
}
