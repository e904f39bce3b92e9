package stats

import "math"

// NormalCDF approximates the cumulative distribution function of the
// standard normal distribution using the rational polynomial from
// Abramowitz and Stegun, formula 7.1.26. Symmetric: NormalCDF(-z) = 1 - NormalCDF(z).
func NormalCDF(z float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if z < 0 {
		sign = -1.0
	}
	x := math.Abs(z) / math.Sqrt2

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// ChiSquarePValue approximates the upper-tail p-value of a chi-square
// statistic with the given degrees of freedom. It uses the Wilson-Hilferty
// cube-root transform, which maps the statistic onto an approximate
// standard-normal deviate.
//
// A statistic of zero (or invalid inputs: negative statistic, df < 1)
// yields a p-value of 1.
func ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom < 1 || chiSquare <= 0 {
		return 1
	}

	n := float64(degreesOfFreedom)
	mean := 1 - 2/(9*n)
	sd := math.Sqrt(2 / (9 * n))

	z := (math.Cbrt(chiSquare/n) - mean) / sd
	p := 1 - NormalCDF(z)

	// Clamp to [0, 1]
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
