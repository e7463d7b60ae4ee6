// Package idr computes the Irreproducible Discovery Rate between two
// replicate peak-call experiments.
//
// The pipeline is: peak (interval loading) -> merge (sweep-line union) ->
// rank (tie-broken rank vectors) -> model (copula-mixture EM, calling into
// pseudoval and numeric) -> idrcalc (local/global IDR) -> output (formatted
// writer). See the subpackages for each stage.
package idr

import "math/rand"

// Statistical defaults, mirrored from the reference implementation.
const (
	DefaultMu        = 0.1
	DefaultSigma     = 1.0
	DefaultRho       = 0.2
	DefaultMixParam  = 0.5
	MaxIterDefault   = 100
	ConvergenceEPS   = 1e-6
	PseudoValueEPS   = 1e-12
	SigmaMin         = 1e-4
	RhoMaxAbs        = 1 - 1e-6
	MixParamMin      = 1e-6
	MixParamMax      = 1 - 1e-6
	DefaultIdrThresh = 1.0
	// DefaultSoftIdrThresh mirrors the reference's DEFAULT_SOFT_IDR_THRESH.
	DefaultSoftIdrThresh = 0.05
	// MinMergedPeaks is the threshold below which the EM is skipped
	// entirely (spec.md error-handling: "insufficient data").
	MinMergedPeaks = 20
)

// FilterPeaksBelowNoiseMean mirrors idr.FILTER_PEAKS_BELOW_NOISE_MEAN in the
// reference: peaks whose summed pseudo-values fall below the noise
// component's mean are treated as definitively irreproducible.
const FilterPeaksBelowNoiseMean = true

// RunContext carries the per-run state that the reference implementation
// kept in module-level globals (verbosity, the log sink, and the tie-break
// random source). Run builds one per run from Opts and hands its Rand to the
// rank builder; the other stages receive the verbose flag as a plain
// argument. Nothing in this module reaches for a process-global generator or
// flag.
type RunContext struct {
	Verbose bool
	Quiet   bool

	// Rand is the tie-break source used by package rank. Callers that need
	// reproducible runs should construct it with a fixed seed.
	Rand *rand.Rand
}

// NewRunContext builds a RunContext seeded deterministically from seed.
func NewRunContext(seed int64, verbose, quiet bool) *RunContext {
	return &RunContext{
		Verbose: verbose,
		Quiet:   quiet,
		Rand:    rand.New(rand.NewSource(seed)),
	}
}
