package units

import (
	"math"
	"testing"
)

func TestIsValidAngularUnit(t *testing.T) {
	for _, unit := range ValidAngularUnits {
		if !IsValidAngularUnit(unit) {
			t.Errorf("unit %q should be valid", unit)
		}
	}
	if IsValidAngularUnit("degrees") {
		t.Error("degrees should not be a valid unit")
	}
}

func TestConvertAngle(t *testing.T) {
	// one arcsecond in radians
	got := ConvertAngle(1, Radian, 0)
	want := math.Pi / 180 / 3600
	if math.Abs(got-want) > 1e-18 {
		t.Errorf("ConvertAngle(1, radian) = %v, want %v", got, want)
	}

	if got := ConvertAngle(2.5, Kpc, 8.0); got != 20.0 {
		t.Errorf("ConvertAngle(2.5, kpc, 8) = %v, want 20", got)
	}

	if got := ConvertAngle(3.0, Arcsec, 0); got != 3.0 {
		t.Errorf("ConvertAngle(3, arcsec) = %v, want 3", got)
	}

	// unknown units fall back to arcsec
	if got := ConvertAngle(3.0, "furlongs", 0); got != 3.0 {
		t.Errorf("ConvertAngle with unknown unit = %v, want 3", got)
	}
}

func TestCountsConversions(t *testing.T) {
	if got := CountsToCountsPerSecond(600, 300); got != 2 {
		t.Errorf("CountsToCountsPerSecond = %v, want 2", got)
	}
	if got := CountsToCountsPerSecond(600, 0); got != 0 {
		t.Errorf("zero exposure should return 0, got %v", got)
	}
	if got := CountsPerSecondToCounts(2, 300); got != 600 {
		t.Errorf("CountsPerSecondToCounts = %v, want 600", got)
	}
}
