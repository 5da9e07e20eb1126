// Package units provides shared constants and conversions for the
// angular and flux units the pipeline works in.
package units

// Angular unit identifiers
const (
	Arcsec = "arcsec"
	Radian = "radian"
	Kpc    = "kpc"
)

// ValidAngularUnits contains all valid angular unit values
var ValidAngularUnits = []string{Arcsec, Radian, Kpc}

// ArcsecToRadians converts an angle in arcseconds to radians.
const ArcsecToRadians = 3.14159265358979323846 / 180 / 3600

// IsValidAngularUnit checks if the given unit is a known angular unit
func IsValidAngularUnit(unit string) bool {
	for _, valid := range ValidAngularUnits {
		if unit == valid {
			return true
		}
	}
	return false
}

// ConvertAngle converts a value in arcseconds to the target unit.
// kpcPerArcsec supplies the physical scale at the galaxy's redshift;
// it is only consulted for the kpc conversion.
func ConvertAngle(arcsec float64, targetUnit string, kpcPerArcsec float64) float64 {
	switch targetUnit {
	case Radian:
		return arcsec * ArcsecToRadians
	case Kpc:
		return arcsec * kpcPerArcsec
	case Arcsec:
		return arcsec
	default:
		return arcsec // default to arcsec if unknown unit
	}
}

// CountsToCountsPerSecond converts total detector counts at an exposure
// time to a rate. Exposure times at or below zero return 0.
func CountsToCountsPerSecond(counts, exposureSeconds float64) float64 {
	if exposureSeconds <= 0 {
		return 0
	}
	return counts / exposureSeconds
}

// CountsPerSecondToCounts converts a rate back to total counts.
func CountsPerSecondToCounts(rate, exposureSeconds float64) float64 {
	return rate * exposureSeconds
}
