// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-idr computes the Irreproducible Discovery Rate between two replicate
peak-call experiments. For more information, see
github.com/grailbio/idr's package doc.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/idr"
	"github.com/grailbio/idr/model"
)

// samplesFlag collects the two --samples paths; unlike Python's argparse
// nargs=2, the standard flag package has no notion of a multi-token flag
// value, so --samples is accepted twice (once per replicate), the same way
// a repeatable flag.Value is used elsewhere in this corpus for open-ended
// lists.
type samplesFlag []string

func (s *samplesFlag) String() string { return strings.Join(*s, ",") }
func (s *samplesFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

var (
	samples           samplesFlag
	peakList          = flag.String("peak-list", "", "If provided, all peaks will be taken from this file (the oracle peak set)")
	inputFileType     = flag.String("input-file-type", "narrowPeak", "File type of --samples and --peak-list: narrowPeak, broadPeak, or bed")
	rankArg           = flag.String("rank", "", "Which column to use to rank peaks: score, signal.value, p.value, q.value, or a 0-based column index")
	outputFile        = flag.String("output-file", "idrValues.txt", "File to write output to")
	logOutputFile     = flag.String("log-output-file", "", "File to write diagnostics to. Default: stderr")
	idrThreshold      = flag.Float64("idr-threshold", idr.DefaultIdrThresh, "Only return peaks with a global idr below this value")
	softIdrThreshold  = flag.Float64("soft-idr-threshold", -1, "Report statistics for peaks with a global idr below this value but return all peaks. Default: --idr-threshold if set, else 0.05")
	useNonoverlapping = flag.Bool("use-nonoverlapping-peaks", false, "Use peaks without an overlapping match and set the missing replicate's value to 0")
	peakMergeMethod   = flag.String("peak-merge-method", "", "Which method to use for merging peaks: sum, avg, min, max. Default: sum for score/signal.value, mean for p.value/q.value")
	initialMu         = flag.Float64("initial-mu", idr.DefaultMu, "Initial value of mu")
	initialSigma      = flag.Float64("initial-sigma", idr.DefaultSigma, "Initial value of sigma")
	initialRho        = flag.Float64("initial-rho", idr.DefaultRho, "Initial value of rho")
	initialMixParam   = flag.Float64("initial-mix-param", idr.DefaultMixParam, "Initial value of the mixture parameter")
	fixMu             = flag.Bool("fix-mu", false, "Fix mu to the starting point and do not let it vary")
	fixSigma          = flag.Bool("fix-sigma", false, "Fix sigma to the starting point and do not let it vary")
	maxIter           = flag.Int("max-iter", idr.MaxIterDefault, "The maximum number of EM iterations")
	convergenceEps    = flag.Float64("convergence-eps", idr.ConvergenceEPS, "The maximum parameter change for convergence")
	onlyMergePeaks    = flag.Bool("only-merge-peaks", false, "Only return the merged peak list; skip the EM and IDR computation")
	verbose           = flag.Bool("verbose", false, "Print out additional debug information")
	quiet             = flag.Bool("quiet", false, "Don't print any status messages")
	plot              = flag.Bool("plot", false, "Plot the results to [output-file].png (best-effort; not implemented)")
	seed              = flag.Int64("rand-seed", 1, "Seed for the tie-breaking random generator")
)

func init() {
	flag.Var(&samples, "samples", "A peak file containing one replicate's peaks and scores; pass twice, once per replicate")
	flag.Usage = bioIdrUsage
}

func bioIdrUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s --samples F1 --samples F2 [OPTIONS]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Other options:\n")
	flag.PrintDefaults()
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		a := flag.Args()
		log.Fatalf("unparsed arguments, please check flag syntax: '%s'", strings.Join(a, " "))
	}
	if len(samples) != 2 {
		log.Fatalf("--samples must be given exactly twice (got %d); please check flag syntax", len(samples))
	}

	opts := idr.DefaultOpts()
	opts.Sample1Path, opts.Sample2Path = samples[0], samples[1]
	opts.PeakListPath = *peakList
	opts.InputFileType = *inputFileType
	opts.Rank = *rankArg
	opts.OutputPath = *outputFile
	opts.LogOutputPath = *logOutputFile
	opts.IdrThreshold = *idrThreshold
	idrThresholdSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "idr-threshold" {
			idrThresholdSet = true
		}
	})
	if *softIdrThreshold >= 0 {
		opts.SoftIdrThreshold = *softIdrThreshold
		opts.SoftIdrThresholdSet = true
	} else if idrThresholdSet {
		opts.SoftIdrThreshold = *idrThreshold
	}
	opts.UseNonoverlappingPeaks = *useNonoverlapping
	opts.PeakMergeMethod = *peakMergeMethod
	opts.InitialMu = *initialMu
	opts.InitialSigma = *initialSigma
	opts.InitialRho = *initialRho
	opts.InitialMixParam = *initialMixParam
	opts.FixMu = *fixMu
	opts.FixSigma = *fixSigma
	opts.MaxIter = *maxIter
	opts.ConvergenceEPS = *convergenceEps
	opts.OnlyMergePeaks = *onlyMergePeaks
	opts.Verbose = *verbose
	opts.Quiet = *quiet
	opts.Plot = *plot
	opts.Seed = *seed

	if opts.Plot {
		log.Printf("idr: --plot requested but plotting is best-effort and not implemented; ignoring")
	}

	err := idr.Run(&opts)
	switch err {
	case nil:
		log.Debug.Printf("exiting")
	case idr.ErrTooFewPeaks:
		log.Printf("idr: %v", err)
		os.Exit(1)
	case model.ErrNonConvergence:
		log.Printf("idr: %v", err)
		os.Exit(2)
	default:
		// Unrecognized file type, negative signal, and other validation or
		// fatal-divergence errors all reach here; log.Fatalf exits non-zero.
		log.Fatalf("%v", err)
	}
}
