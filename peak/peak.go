// Package peak loads tab-delimited peak-call records (narrowPeak, broadPeak,
// or bed) into per-contig/strand buckets.
//
// The tokenizing and gzip-transparent file opening follow the same shape as
// interval.NewBEDUnion in the teacher repository, generalized to also carry
// a signal value and to tolerate narrowPeak/broadPeak/bed column layouts.
package peak

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// Peak is a single genomic interval with an associated signal. Immutable
// after construction.
type Peak struct {
	Contig string
	Strand string
	Start  int
	Stop   int
	Signal float64
}

// Key identifies the (contig, strand) group a Peak belongs to.
type Key struct {
	Contig string
	Strand string
}

// Bucket maps (contig, strand) to the peaks observed for that group, in the
// order they were read from the input.
type Bucket map[Key][]Peak

// Contigs returns the distinct contig names present in the bucket, in
// arbitrary order -- callers that need a deterministic order should sort the
// result.
func (b Bucket) Contigs() []string {
	seen := make(map[string]bool)
	var contigs []string
	for k := range b {
		if !seen[k.Contig] {
			seen[k.Contig] = true
			contigs = append(contigs, k.Contig)
		}
	}
	return contigs
}

// FileFormat identifies the column layout of an input file.
type FileFormat int

const (
	NarrowPeak FileFormat = iota
	BroadPeak
	Bed
)

// ParseFileFormat maps a --input-file-type argument to a FileFormat.
func ParseFileFormat(s string) (FileFormat, error) {
	switch s {
	case "narrowPeak":
		return NarrowPeak, nil
	case "broadPeak":
		return BroadPeak, nil
	case "bed":
		return Bed, nil
	default:
		return 0, fmt.Errorf("peak: unrecognized --input-file-type %q", s)
	}
}

// RankColumn identifies which column supplies a peak's signal.
type RankColumn int

const (
	RankScore RankColumn = iota
	RankSignalValue
	RankPValue
	RankQValue
	RankColumnIndex
)

// RankSpec selects the signal column for a given file format.
type RankSpec struct {
	Column RankColumn
	// Index is only meaningful when Column == RankColumnIndex.
	Index int
}

// defaultRankSpec returns the spec.md-documented default rank column for a
// file format when --rank is unset.
func defaultRankSpec(format FileFormat) RankSpec {
	switch format {
	case Bed:
		return RankSpec{Column: RankScore}
	default:
		return RankSpec{Column: RankSignalValue}
	}
}

// ParseRankSpec parses a --rank argument in the context of a file format.
// An empty string selects the format's documented default.
func ParseRankSpec(s string, format FileFormat) (RankSpec, error) {
	if s == "" {
		return defaultRankSpec(format), nil
	}
	switch s {
	case "score":
		return RankSpec{Column: RankScore}, nil
	case "signal.value":
		return RankSpec{Column: RankSignalValue}, nil
	case "p.value":
		return RankSpec{Column: RankPValue}, nil
	case "q.value":
		return RankSpec{Column: RankQValue}, nil
	default:
		idx, err := strconv.Atoi(s)
		if err != nil {
			return RankSpec{}, fmt.Errorf("peak: unrecognized --rank %q", s)
		}
		return RankSpec{Column: RankColumnIndex, Index: idx}, nil
	}
}

// column returns the 0-based column index the RankSpec selects.
func (r RankSpec) column() (int, error) {
	switch r.Column {
	case RankScore:
		return 4, nil
	case RankSignalValue:
		return 6, nil
	case RankPValue:
		return 7, nil
	case RankQValue:
		return 8, nil
	case RankColumnIndex:
		return r.Index, nil
	default:
		return 0, fmt.Errorf("peak: unknown rank column selector %v", r.Column)
	}
}

// ErrNegativeSignal is returned (wrapped with position information) when a
// record's signal value is negative.
var ErrNegativeSignal = fmt.Errorf("peak: negative signal value")

// LoadBucket reads whitespace-delimited peak records from r, skipping
// comment ("#") and UCSC "track" lines, and groups them by (contig, strand).
// Fields are (contig, start, stop, ..., strand at column 5, signal at the
// column selected by rank).
func LoadBucket(r io.Reader, format FileFormat, rank RankSpec, verbose bool) (Bucket, error) {
	signalCol, err := rank.column()
	if err != nil {
		return nil, err
	}
	minFields := signalCol + 1
	if minFields < 6 {
		minFields = 6
	}

	bucket := make(Bucket)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	nPeaks := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < minFields {
			return nil, fmt.Errorf("peak: line %d has %d fields, need at least %d for the selected --rank column", lineNum, len(fields), minFields)
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("peak: line %d: invalid start coordinate %q: %w", lineNum, fields[1], err)
		}
		stop, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("peak: line %d: invalid stop coordinate %q: %w", lineNum, fields[2], err)
		}
		if stop <= start {
			return nil, fmt.Errorf("peak: line %d: stop %d is not greater than start %d", lineNum, stop, start)
		}
		signal, err := strconv.ParseFloat(fields[signalCol], 64)
		if err != nil {
			return nil, fmt.Errorf("peak: line %d: invalid signal %q: %w", lineNum, fields[signalCol], err)
		}
		if signal < 0 {
			return nil, fmt.Errorf("%w: %v on line %d", ErrNegativeSignal, signal, lineNum)
		}
		strand := fields[5]
		key := Key{Contig: fields[0], Strand: strand}
		bucket[key] = append(bucket[key], Peak{
			Contig: fields[0],
			Strand: strand,
			Start:  start,
			Stop:   stop,
			Signal: signal,
		})
		nPeaks++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "peak: scanning input")
	}
	if verbose {
		log.Printf("peak: loaded %d peak(s) across %d contig/strand group(s)", nPeaks, len(bucket))
	}
	return bucket, nil
}

// Open opens path for reading, transparently decompressing it if it has a
// .gz suffix, the same way interval.NewBEDUnionFromPath does in the teacher
// repository.
func Open(path string) (io.ReadCloser, error) {
	ctx := vcontext.Background()
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "peak: opening", path)
	}
	reader := io.Reader(f.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			_ = f.Close(ctx)
			return nil, errors.E(err, "peak: opening gzip reader for", path)
		}
		return &gzipReadCloser{gz: gz, f: f, ctx: ctx}, nil
	}
	return &fileReadCloser{r: reader, f: f, ctx: ctx}, nil
}

// fileReadCloser adapts a grailbio/base/file.File plus its decoded reader to
// io.ReadCloser, closing the underlying file handle on Close.
type fileReadCloser struct {
	r   io.Reader
	f   file.File
	ctx context.Context
}

func (rc *fileReadCloser) Read(p []byte) (int, error) { return rc.r.Read(p) }
func (rc *fileReadCloser) Close() error                { return rc.f.Close(rc.ctx) }

type gzipReadCloser struct {
	gz  *gzip.Reader
	f   file.File
	ctx context.Context
}

func (rc *gzipReadCloser) Read(p []byte) (int, error) { return rc.gz.Read(p) }
func (rc *gzipReadCloser) Close() error {
	if err := rc.gz.Close(); err != nil {
		_ = rc.f.Close(rc.ctx)
		return err
	}
	return rc.f.Close(rc.ctx)
}
