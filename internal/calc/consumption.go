// Package calc holds the workshop's pure arithmetic: steel consumption from
// cylinder geometry and the order-number formats printed on travelers.
package calc

import "math"

// SteelDensity is the density of tool steel in g/cm³.
const SteelDensity = 7.85

// CalculateTheoreticalConsumption returns the mass in kilograms of a steel bar
// of the given package length and diameter (both in millimetres), rounded to
// two decimals.
//
// mm³ to cm³ is /1e3 and g to kg is /1e3; with r² = d²/4 the combined divisor
// is 4e6. Inputs are not validated: callers reject non-positive geometry.
func CalculateTheoreticalConsumption(packageLengthMm, diameterMm float64) float64 {
	return round2(packageLengthMm * diameterMm * diameterMm * math.Pi * SteelDensity / 4_000_000)
}

// round2 rounds to hundredths, ties toward +Inf on the scaled value.
// Do not replace with math.Round (ties away from zero) or RoundToEven: the
// console has always produced Math.round(x*100)/100 and stored figures must match.
func round2(x float64) float64 {
	return roundHalfUp(x*100) / 100
}

func roundHalfUp(x float64) float64 {
	r := math.Floor(x)
	if x-r >= 0.5 {
		r++
	}
	return r
}
