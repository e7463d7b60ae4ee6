package pseudoval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolveInvertsMarginalCDF(t *testing.T) {
	tests := []struct {
		u, mu, sigma, pi float64
	}{
		{0.5, 0.1, 1.0, 0.5},
		{0.01, 0.1, 1.0, 0.5},
		{0.99, 0.1, 1.0, 0.5},
		{0.5, 3.0, 2.5, 0.8},
		{0.001, 0.0, 1.0, 0.3},
	}
	for _, test := range tests {
		z, err := Solve(test.u, test.mu, test.sigma, test.pi)
		assert.NoError(t, err)
		assert.InDelta(t, test.u, marginalCDF(z, test.mu, test.sigma, test.pi), 1e-9)
	}
}

func TestSolveRejectsOutOfRangeU(t *testing.T) {
	_, err := Solve(0, 0.1, 1.0, 0.5)
	assert.Error(t, err)
	_, err = Solve(1, 0.1, 1.0, 0.5)
	assert.Error(t, err)
}

func TestVectorMapsRanksToPseudoValues(t *testing.T) {
	ranks := []int{0, 1, 2, 3}
	z, err := Vector(ranks, 0.1, 1.0, 0.5)
	assert.NoError(t, err)
	assert.Len(t, z, 4)
	// u_k is monotone in rank, so the solved z must be too.
	for i := 1; i < len(z); i++ {
		assert.True(t, z[i] > z[i-1])
	}
}
