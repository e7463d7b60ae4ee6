// Package model implements the two-component Gaussian copula mixture and
// its pseudo-likelihood EM fit (spec.md 4.F): component 1 ("signal") is
// bivariate normal with mean (mu, mu), variance sigma^2, correlation rho;
// component 0 ("noise") is bivariate standard normal. The outer iteration
// structure -- a plain function over its inputs that returns a result plus
// stats, no callbacks -- follows spec.md 9's design note and the shape
// of markduplicates.Opts-driven entry points in the teacher repository.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/grailbio/base/log"
	"github.com/grailbio/idr/numeric"
	"github.com/grailbio/idr/pseudoval"
)

// Params is theta = (mu, sigma, rho, pi), spec.md 3.
type Params struct {
	Mu, Sigma, Rho, Pi float64
}

// Defaults returns the documented starting point (spec.md 4.F):
// mu=0.1, sigma=1.0, rho=0.2, pi=0.5.
func Defaults() Params {
	return Params{Mu: 0.1, Sigma: 1.0, Rho: 0.2, Pi: 0.5}
}

// FixFlags pins individual parameters to their starting value across the EM
// iteration.
type FixFlags struct {
	FixMu    bool
	FixSigma bool
}

// Degeneracy guards (spec.md 4.F).
const (
	sigmaMin    = 1e-4
	rhoMaxAbs   = 1 - 1e-6
	piMin       = 1e-6
	piMax       = 1 - 1e-6
	likelihoodDecreaseTol = 1e-4
)

// ErrNonConvergence marks an EM run that exhausted maxIter without the
// parameter vector settling within convergenceEPS (spec.md 7). Fit itself
// reports that case through FitStats.Converged with a nil error; idr.Run
// returns this sentinel after it has warned and written its output using the
// last Params.
var ErrNonConvergence = errors.New("model: EM did not converge within max-iter")

// ErrNonFiniteLikelihood is a fatal error: the mixture log-likelihood
// diverged to a non-finite value (spec.md 7).
var ErrNonFiniteLikelihood = errors.New("model: non-finite log-likelihood")

func clamp(p Params) Params {
	if p.Sigma < sigmaMin {
		p.Sigma = sigmaMin
	}
	if p.Rho > rhoMaxAbs {
		p.Rho = rhoMaxAbs
	} else if p.Rho < -rhoMaxAbs {
		p.Rho = -rhoMaxAbs
	}
	if p.Pi < piMin {
		p.Pi = piMin
	} else if p.Pi > piMax {
		p.Pi = piMax
	}
	return p
}

// posteriorWeights computes w_i = P(K_i=1 | z1_i, z2_i; theta), the E-step
// of spec.md 4.F, for every paired pseudo-value.
func posteriorWeights(theta Params, z1, z2 []float64) []float64 {
	n := len(z1)
	w := make([]float64, n)
	for i := range w {
		f1 := numeric.BivariateNormalPDF(z1[i], z2[i], theta.Mu, theta.Mu, theta.Sigma, theta.Rho)
		f0 := numeric.BivariateNormalPDF(z1[i], z2[i], 0, 0, 1, 0)
		num := theta.Pi * f1
		denom := num + (1-theta.Pi)*f0
		if denom == 0 {
			w[i] = 0
			continue
		}
		w[i] = num / denom
	}
	return w
}

// logLikelihood computes the mixture log-likelihood
// sum_i log(pi*f1_i + (1-pi)*f0_i), stably via LogSumExp.
func logLikelihood(theta Params, z1, z2 []float64) float64 {
	var total float64
	for i := range z1 {
		f1 := numeric.BivariateNormalPDF(z1[i], z2[i], theta.Mu, theta.Mu, theta.Sigma, theta.Rho)
		f0 := numeric.BivariateNormalPDF(z1[i], z2[i], 0, 0, 1, 0)
		logTerm1 := math.Log(theta.Pi) + math.Log(f1)
		logTerm0 := math.Log(1-theta.Pi) + math.Log(f0)
		total += numeric.LogSumExp(logTerm1, logTerm0)
	}
	return total
}

// mStep re-estimates theta in closed form from the weighted pseudo-values
// (spec.md 4.F).
func mStep(prev Params, w, z1, z2 []float64, fix FixFlags) Params {
	n := len(w)
	var sumW float64
	for _, wi := range w {
		sumW += wi
	}
	theta := prev
	theta.Pi = sumW / float64(n)

	mu := prev.Mu
	if !fix.FixMu {
		var num float64
		for i := range w {
			num += w[i] * (z1[i] + z2[i])
		}
		mu = num / (2 * sumW)
	}
	theta.Mu = mu

	sigma2 := prev.Sigma * prev.Sigma
	if !fix.FixSigma {
		var num float64
		for i := range w {
			d1 := z1[i] - mu
			d2 := z2[i] - mu
			num += w[i] * (d1*d1 + d2*d2)
		}
		sigma2 = num / (2 * sumW)
	}
	theta.Sigma = math.Sqrt(sigma2)

	var rhoNum float64
	for i := range w {
		rhoNum += w[i] * (z1[i] - mu) * (z2[i] - mu)
	}
	theta.Rho = rhoNum / (sigma2 * sumW)

	return clamp(theta)
}

func maxAbsDiff(a, b Params) float64 {
	d := func(x, y float64) float64 { return math.Abs(x - y) }
	m := d(a.Mu, b.Mu)
	if v := d(a.Sigma, b.Sigma); v > m {
		m = v
	}
	if v := d(a.Rho, b.Rho); v > m {
		m = v
	}
	if v := d(a.Pi, b.Pi); v > m {
		m = v
	}
	return m
}

// FitStats reports how the EM loop concluded.
type FitStats struct {
	Iterations    int
	Converged     bool
	LogLikelihood float64
}

// Fit runs the outer pseudo-value-refresh / E-step / M-step loop of
// spec.md 4.F until the parameter vector stabilizes within convergenceEPS or
// maxIter is exhausted, starting from start and honoring fix. It returns the
// final (possibly unconverged) Params plus FitStats, and a non-nil error
// only for fatal cases (rank vectors of different lengths, a pseudo-value
// bracketing failure, or a non-finite log-likelihood); non-convergence is reported
// via FitStats.Converged == false with a nil error, matching spec.md 7's
// "non-convergence is a warning, last parameter vector is used" policy.
func Fit(r1, r2 []int, start Params, fix FixFlags, maxIter int, convergenceEPS float64, verbose bool) (Params, FitStats, error) {
	theta := clamp(start)
	n := len(r1)
	if n != len(r2) {
		return theta, FitStats{}, fmt.Errorf("model: rank vectors have different lengths (%d vs %d)", n, len(r2))
	}

	var prevLogLik float64
	haveLogLik := false

	for iter := 1; iter <= maxIter; iter++ {
		z1, err := pseudoval.Vector(r1, theta.Mu, theta.Sigma, theta.Pi)
		if err != nil {
			return theta, FitStats{Iterations: iter}, fmt.Errorf("model: pseudo-values for r1: %w", err)
		}
		z2, err := pseudoval.Vector(r2, theta.Mu, theta.Sigma, theta.Pi)
		if err != nil {
			return theta, FitStats{Iterations: iter}, fmt.Errorf("model: pseudo-values for r2: %w", err)
		}

		loglik := logLikelihood(theta, z1, z2)
		if math.IsNaN(loglik) || math.IsInf(loglik, 0) {
			return theta, FitStats{Iterations: iter, LogLikelihood: loglik}, ErrNonFiniteLikelihood
		}
		if haveLogLik && loglik < prevLogLik-likelihoodDecreaseTol {
			log.Printf("model: WARNING log-likelihood decreased from %.6f to %.6f at iteration %d", prevLogLik, loglik, iter)
		}
		prevLogLik = loglik
		haveLogLik = true

		w := posteriorWeights(theta, z1, z2)
		next := mStep(theta, w, z1, z2, fix)

		delta := maxAbsDiff(next, theta)
		if verbose {
			log.Printf("model: VERBOSE iter=%d theta=%+v delta=%.3e loglik=%.6f", iter, next, delta, loglik)
		}
		theta = next
		if delta < convergenceEPS {
			return theta, FitStats{Iterations: iter, Converged: true, LogLikelihood: prevLogLik}, nil
		}
	}
	return theta, FitStats{Iterations: maxIter, Converged: false, LogLikelihood: prevLogLik}, nil
}
