// Package pseudoval inverts the copula mixture's marginal CDF to recover the
// latent pseudo-value coordinate for each rank (spec.md 4.E).
//
// The root finder's adaptive-bracket-then-bisection shape mirrors the
// expanding/narrowing binary search idiom used throughout
// interval/bedunion.go (searchPosType, fwdsearchPosType) in the teacher
// repository, applied here to a continuous monotone function instead of a
// sorted slice. spec.md 9 flags the reference's fixed bracket as a
// REDESIGN FLAG; this implementation expands the bracket adaptively instead.
package pseudoval

import (
	"fmt"
	"math"

	"github.com/grailbio/idr/numeric"
)

// marginalCDF is G(z; mu, sigma, pi) = pi*Phi((z-mu)/sigma) + (1-pi)*Phi(z),
// the mixture's marginal CDF (spec.md 4.E).
func marginalCDF(z, mu, sigma, pi float64) float64 {
	return pi*numeric.NormalCDF(z, mu, sigma) + (1-pi)*numeric.StdNormalCDF(z)
}

// maxBracketDoublings bounds the adaptive bracket expansion so a
// pathological theta cannot loop forever; at this point the bracket already
// spans +/-2^40, far beyond any value a float64 pseudo-value should take.
const maxBracketDoublings = 40

// Solve finds the unique z such that G(z; mu, sigma, pi) = u, for
// u in (0, 1), by expanding a bracket around 0 until the marginal CDF
// straddles u and then bisecting until convergence (spec.md 4.E).
func Solve(u, mu, sigma, pi float64) (float64, error) {
	if u <= 0 || u >= 1 {
		return 0, fmt.Errorf("pseudoval: u=%v out of (0,1)", u)
	}
	lo, hi := -1.0, 1.0
	gLo, gHi := marginalCDF(lo, mu, sigma, pi), marginalCDF(hi, mu, sigma, pi)
	doublings := 0
	for gLo > u {
		lo *= 2
		gLo = marginalCDF(lo, mu, sigma, pi)
		doublings++
		if doublings > maxBracketDoublings {
			return 0, fmt.Errorf("pseudoval: failed to bracket u=%v below (mu=%v sigma=%v pi=%v)", u, mu, sigma, pi)
		}
	}
	for gHi < u {
		hi *= 2
		gHi = marginalCDF(hi, mu, sigma, pi)
		doublings++
		if doublings > maxBracketDoublings {
			return 0, fmt.Errorf("pseudoval: failed to bracket u=%v above (mu=%v sigma=%v pi=%v)", u, mu, sigma, pi)
		}
	}

	const eps = 1e-12
	for hi-lo > eps {
		mid := lo + (hi-lo)/2
		gMid := marginalCDF(mid, mu, sigma, pi)
		if math.Abs(gMid-u) < eps {
			return mid, nil
		}
		if gMid < u {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo + (hi-lo)/2, nil
}

// Vector computes the pseudo-value for every rank in ranks (each in
// [0, n)), where n is the total number of merged peaks, following spec.md
// 3's u_k[i] = (r_k[i] + 1) / (n + 1).
func Vector(ranks []int, mu, sigma, pi float64) ([]float64, error) {
	n := len(ranks)
	z := make([]float64, n)
	for i, r := range ranks {
		u := float64(r+1) / float64(n+1)
		v, err := Solve(u, mu, sigma, pi)
		if err != nil {
			return nil, err
		}
		z[i] = v
	}
	return z, nil
}
