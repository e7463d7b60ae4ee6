package idr

import (
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/idr/idrcalc"
	"github.com/grailbio/idr/merge"
	"github.com/grailbio/idr/model"
	"github.com/grailbio/idr/output"
	"github.com/grailbio/idr/peak"
	"github.com/grailbio/idr/pseudoval"
	"github.com/grailbio/idr/rank"
)

// Opts collects every --flag from spec.md 6, assembled by cmd/bio-idr/main.go
// the way cmd/doppelmark/main.go assembles markduplicates.Opts.
type Opts struct {
	Sample1Path, Sample2Path string
	PeakListPath             string // oracle peaks; "" if absent

	InputFileType string // narrowPeak | broadPeak | bed
	Rank          string // "", score, signal.value, p.value, q.value, or a column index

	OutputPath    string
	LogOutputPath string

	IdrThreshold     float64
	SoftIdrThreshold float64
	SoftIdrThresholdSet bool

	UseNonoverlappingPeaks bool
	PeakMergeMethod        string // "", sum, avg, min, max

	InitialMu, InitialSigma, InitialRho, InitialMixParam float64
	FixMu, FixSigma                                      bool

	MaxIter        int
	ConvergenceEPS float64

	OnlyMergePeaks bool
	Verbose, Quiet bool
	Plot           bool

	Seed int64
}

// DefaultOpts mirrors the reference parser's defaults (spec.md 6).
func DefaultOpts() Opts {
	return Opts{
		InputFileType:    "narrowPeak",
		OutputPath:       "idrValues.txt",
		IdrThreshold:     DefaultIdrThresh,
		SoftIdrThreshold: DefaultSoftIdrThresh,
		InitialMu:        DefaultMu,
		InitialSigma:     DefaultSigma,
		InitialRho:       DefaultRho,
		InitialMixParam:  DefaultMixParam,
		MaxIter:          MaxIterDefault,
		ConvergenceEPS:   ConvergenceEPS,
		Seed:             1,
	}
}

// ErrTooFewPeaks is returned when fewer than MinMergedPeaks peaks survive
// merging; the driver still writes the merged-only output before surfacing
// this (spec.md 7).
var ErrTooFewPeaks = fmt.Errorf("idr: fewer than %d merged peaks; EM skipped", MinMergedPeaks)

// Run executes the full pipeline: load, merge, (optionally) fit and score,
// and write results, per spec.md 2's component dependency order.
func Run(opts *Opts) error {
	format, err := peak.ParseFileFormat(opts.InputFileType)
	if err != nil {
		return err
	}
	rankSpec, err := peak.ParseRankSpec(opts.Rank, format)
	if err != nil {
		return err
	}
	aggregator := merge.DefaultAggregator(rankSpec)
	if opts.PeakMergeMethod != "" {
		aggregator, err = merge.ParseAggregator(opts.PeakMergeMethod)
		if err != nil {
			return err
		}
	}

	rep1, err := loadSample(opts.Sample1Path, format, rankSpec, opts.Verbose)
	if err != nil {
		return err
	}
	rep2, err := loadSample(opts.Sample2Path, format, rankSpec, opts.Verbose)
	if err != nil {
		return err
	}
	var oracle peak.Bucket
	if opts.PeakListPath != "" {
		oracle, err = loadSample(opts.PeakListPath, format, rankSpec, opts.Verbose)
		if err != nil {
			return err
		}
	}

	mergeOpts := merge.Options{
		Aggregator:             aggregator,
		UseNonoverlappingPeaks: opts.UseNonoverlappingPeaks,
	}
	merged := merge.All(rep1, rep2, oracle, mergeOpts)
	if !opts.Quiet {
		log.Printf("idr: merged %d peak(s)", len(merged))
	}

	out, err := openOutput(opts.OutputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if opts.OnlyMergePeaks {
		_, err := output.Write(out, merged, nil, nil, opts.IdrThreshold, opts.SoftIdrThreshold)
		return err
	}

	if len(merged) < MinMergedPeaks {
		if !opts.Quiet {
			log.Printf("idr: WARNING only %d merged peaks (< %d); writing merged set and skipping the EM", len(merged), MinMergedPeaks)
		}
		if _, err := output.Write(out, merged, nil, nil, opts.IdrThreshold, opts.SoftIdrThreshold); err != nil {
			return err
		}
		return ErrTooFewPeaks
	}

	rng := NewRunContext(opts.Seed, opts.Verbose, opts.Quiet).Rand
	r1, r2 := rank.BuildVectors(rng, merged)

	start := model.Params{Mu: opts.InitialMu, Sigma: opts.InitialSigma, Rho: opts.InitialRho, Pi: opts.InitialMixParam}
	theta, stats, err := model.Fit(r1, r2, start, model.FixFlags{FixMu: opts.FixMu, FixSigma: opts.FixSigma}, opts.MaxIter, opts.ConvergenceEPS, opts.Verbose)
	if err != nil {
		return fmt.Errorf("idr: %w", err)
	}
	if !stats.Converged && !opts.Quiet {
		log.Printf("idr: WARNING EM did not converge after %d iterations; using the last parameter estimate", stats.Iterations)
	}
	if opts.Verbose {
		log.Printf("idr: final parameters mu=%.4f sigma=%.4f rho=%.4f pi=%.4f (loglik=%.4f, %d iterations)",
			theta.Mu, theta.Sigma, theta.Rho, theta.Pi, stats.LogLikelihood, stats.Iterations)
	}

	z1, err := pseudoval.Vector(r1, theta.Mu, theta.Sigma, theta.Pi)
	if err != nil {
		return fmt.Errorf("idr: %w", err)
	}
	z2, err := pseudoval.Vector(r2, theta.Mu, theta.Sigma, theta.Pi)
	if err != nil {
		return fmt.Errorf("idr: %w", err)
	}
	local, global, err := idrcalc.Compute(theta, z1, z2, FilterPeaksBelowNoiseMean)
	if err != nil {
		return fmt.Errorf("idr: %w", err)
	}

	summary, err := output.Write(out, merged, local, global, opts.IdrThreshold, opts.SoftIdrThreshold)
	if err != nil {
		return err
	}
	if !stats.Converged {
		return model.ErrNonConvergence
	}
	if !opts.Quiet {
		log.Printf("idr: wrote %d/%d peaks (%.1f%%); %d passed the soft IDR threshold of %.2f",
			summary.Written, summary.Total, 100*float64(summary.Written)/float64(summary.Total),
			summary.PassingSoft, opts.SoftIdrThreshold)
	}
	return nil
}

func loadSample(path string, format peak.FileFormat, rankSpec peak.RankSpec, verbose bool) (peak.Bucket, error) {
	rc, err := peak.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return peak.LoadBucket(rc, format, rankSpec, verbose)
}

func openOutput(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("idr: creating output file %s: %w", path, err)
	}
	return f, nil
}
