package peak

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFileFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    FileFormat
		wantErr bool
	}{
		{"narrowPeak", NarrowPeak, false},
		{"broadPeak", BroadPeak, false},
		{"bed", Bed, false},
		{"gff", 0, true},
	}
	for _, test := range tests {
		got, err := ParseFileFormat(test.in)
		if test.wantErr {
			assert.Error(t, err)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, test.want, got)
	}
}

func TestParseRankSpec(t *testing.T) {
	tests := []struct {
		rank   string
		format FileFormat
		want   RankSpec
	}{
		{"", NarrowPeak, RankSpec{Column: RankSignalValue}},
		{"", Bed, RankSpec{Column: RankScore}},
		{"score", NarrowPeak, RankSpec{Column: RankScore}},
		{"p.value", NarrowPeak, RankSpec{Column: RankPValue}},
		{"q.value", NarrowPeak, RankSpec{Column: RankQValue}},
		{"9", NarrowPeak, RankSpec{Column: RankColumnIndex, Index: 9}},
	}
	for _, test := range tests {
		got, err := ParseRankSpec(test.rank, test.format)
		assert.NoError(t, err)
		assert.Equal(t, test.want, got)
	}

	_, err := ParseRankSpec("bogus", NarrowPeak)
	assert.Error(t, err)
}

func TestLoadBucket(t *testing.T) {
	input := "" +
		"# a comment\n" +
		"track name=foo\n" +
		"chr1\t100\t200\tpeak1\t10\t+\t5.5\t0.01\t0.02\n" +
		"chr1\t150\t250\tpeak2\t20\t+\t7.5\t0.01\t0.02\n" +
		"chr2\t10\t20\tpeak3\t30\t-\t1.0\t0.01\t0.02\n"
	bucket, err := LoadBucket(strings.NewReader(input), NarrowPeak, RankSpec{Column: RankSignalValue}, false)
	assert.NoError(t, err)
	assert.Len(t, bucket, 2)

	chr1Plus := bucket[Key{Contig: "chr1", Strand: "+"}]
	assert.Len(t, chr1Plus, 2)
	assert.Equal(t, 100, chr1Plus[0].Start)
	assert.Equal(t, 5.5, chr1Plus[0].Signal)

	chr2Minus := bucket[Key{Contig: "chr2", Strand: "-"}]
	assert.Len(t, chr2Minus, 1)
	assert.Equal(t, 1.0, chr2Minus[0].Signal)
}

func TestLoadBucketRejectsNegativeSignal(t *testing.T) {
	input := "chr1\t100\t200\tpeak1\t10\t+\t-5.5\t0.01\t0.02\n"
	_, err := LoadBucket(strings.NewReader(input), NarrowPeak, RankSpec{Column: RankSignalValue}, false)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "negative signal"))
}

func TestLoadBucketRejectsBadCoordinates(t *testing.T) {
	tests := []string{
		"chr1\t200\t100\tpeak1\t10\t+\t5.5\t0.01\t0.02\n", // stop <= start
		"chr1\tabc\t200\tpeak1\t10\t+\t5.5\t0.01\t0.02\n",  // non-numeric start
	}
	for _, in := range tests {
		_, err := LoadBucket(strings.NewReader(in), NarrowPeak, RankSpec{Column: RankSignalValue}, false)
		assert.Error(t, err)
	}
}

func TestBucketContigs(t *testing.T) {
	b := Bucket{
		{Contig: "chr1", Strand: "+"}: nil,
		{Contig: "chr1", Strand: "-"}: nil,
		{Contig: "chr2", Strand: "+"}: nil,
	}
	contigs := b.Contigs()
	assert.Len(t, contigs, 2)
	assert.Contains(t, contigs, "chr1")
	assert.Contains(t, contigs, "chr2")
}
