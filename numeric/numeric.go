// Package numeric provides the Gaussian and bivariate-normal primitives the
// pseudo-value solver and EM estimator need (spec.md 4.D), built on
// gonum.org/v1/gonum/stat/distuv the way erunyan6-Lab_Buddy and
// kortschak-ins already depend on gonum for distributional work in this
// retrieval pack -- there is no reason to hand-roll a rational-approximation
// inverse CDF when the ecosystem library already meets the >=8-digit
// accuracy requirement.
package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// stdNormal is the N(0, 1) distribution used throughout.
var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// StdNormalPDF is phi(x), the standard normal density.
func StdNormalPDF(x float64) float64 {
	return stdNormal.Prob(x)
}

// StdNormalCDF is Phi(x).
func StdNormalCDF(x float64) float64 {
	return stdNormal.CDF(x)
}

// StdNormalQuantile is Phi^-1(p), accurate across p in (1e-12, 1-1e-12) as
// required by spec.md 4.D.
func StdNormalQuantile(p float64) float64 {
	return stdNormal.Quantile(p)
}

// NormalCDF is Phi((x-mu)/sigma) for a N(mu, sigma) variable.
func NormalCDF(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.CDF(x)
}

// BivariateNormalPDF evaluates the density of a bivariate normal with mean
// (mu1, mu2), common variance sigma^2 on both axes, and correlation rho, at
// the point (x1, x2). This is the f1/f0 density used by the E-step in
// spec.md 4.F (f0 is the special case mu1=mu2=0, sigma=1, rho=0).
func BivariateNormalPDF(x1, x2, mu1, mu2, sigma, rho float64) float64 {
	z1 := (x1 - mu1) / sigma
	z2 := (x2 - mu2) / sigma
	oneMinusRho2 := 1 - rho*rho
	exponent := -(z1*z1 - 2*rho*z1*z2 + z2*z2) / (2 * oneMinusRho2)
	denom := 2 * math.Pi * sigma * sigma * math.Sqrt(oneMinusRho2)
	return math.Exp(exponent) / denom
}

// LogSumExp computes log(sum(exp(xs))) in a numerically stable way, for use
// when the mixture log-likelihood itself is needed (rather than just the
// posterior ratio, which cancels the common factor and does not need this).
func LogSumExp(xs ...float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, -1) {
		return math.Inf(-1)
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}
