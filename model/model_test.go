package model

import (
	"testing"

	"github.com/grailbio/idr/pseudoval"
	"github.com/stretchr/testify/assert"
)

func rankVector(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

// TestFitIdenticalReplicatesConverge is spec.md's S1 scenario: two identical
// rank vectors over 1000 peaks should converge toward rho -> ~1, pi -> ~1,
// with every peak's pseudo-values tightly agreeing between replicates.
func TestFitIdenticalReplicatesConverge(t *testing.T) {
	n := 1000
	r1 := rankVector(n)
	r2 := rankVector(n)

	theta, stats, err := Fit(r1, r2, Defaults(), FixFlags{}, 100, 1e-6, false)
	assert.NoError(t, err)
	assert.True(t, stats.Converged)
	assert.Greater(t, theta.Rho, 0.9)
	assert.Greater(t, theta.Pi, 0.9)
}

// TestFitFixedParamsDoNotMove asserts FixMu/FixSigma pin their starting
// values across the whole EM run.
func TestFitFixedParamsDoNotMove(t *testing.T) {
	n := 200
	r1 := rankVector(n)
	r2 := rankVector(n)
	start := Params{Mu: 0.1, Sigma: 1.0, Rho: 0.2, Pi: 0.5}

	theta, _, err := Fit(r1, r2, start, FixFlags{FixMu: true, FixSigma: true}, 50, 1e-6, false)
	assert.NoError(t, err)
	assert.Equal(t, start.Mu, theta.Mu)
	assert.Equal(t, start.Sigma, theta.Sigma)
}

// TestFitFixedPoint is spec.md invariant 8: one further iteration from the
// converged theta changes every parameter by less than convergenceEPS.
func TestFitFixedPoint(t *testing.T) {
	n := 500
	r1 := rankVector(n)
	r2 := rankVector(n)

	theta, stats, err := Fit(r1, r2, Defaults(), FixFlags{}, 100, 1e-6, false)
	assert.NoError(t, err)
	assert.True(t, stats.Converged)

	again, _, err := Fit(r1, r2, theta, FixFlags{}, 1, 1e-6, false)
	assert.NoError(t, err)
	assert.InDelta(t, theta.Mu, again.Mu, 1e-6)
	assert.InDelta(t, theta.Sigma, again.Sigma, 1e-6)
	assert.InDelta(t, theta.Rho, again.Rho, 1e-6)
	assert.InDelta(t, theta.Pi, again.Pi, 1e-6)
}

func TestFitRejectsMismatchedLengths(t *testing.T) {
	_, _, err := Fit(rankVector(5), rankVector(6), Defaults(), FixFlags{}, 10, 1e-6, false)
	assert.Error(t, err)
}

func TestClampEnforcesDegeneracyBounds(t *testing.T) {
	p := clamp(Params{Mu: 0, Sigma: -1, Rho: 2, Pi: 2})
	assert.Equal(t, sigmaMin, p.Sigma)
	assert.Equal(t, rhoMaxAbs, p.Rho)
	assert.Equal(t, piMax, p.Pi)
}

func TestPosteriorWeightsWithinBounds(t *testing.T) {
	theta := Defaults()
	z1, err := pseudoval.Vector(rankVector(50), theta.Mu, theta.Sigma, theta.Pi)
	assert.NoError(t, err)
	z2, err := pseudoval.Vector(rankVector(50), theta.Mu, theta.Sigma, theta.Pi)
	assert.NoError(t, err)
	w := posteriorWeights(theta, z1, z2)
	for _, wi := range w {
		assert.True(t, wi >= 0 && wi <= 1)
	}
}

