package geo

import "math"

// SecondsDenominator is the fixed denominator of the seconds component.
const SecondsDenominator = 100

// DMS is an unsigned degrees/minutes/seconds magnitude as stored in EXIF GPS
// rationals: (Degrees,1) (Minutes,1) (Hundredths,100).
type DMS struct {
	Degrees    uint32
	Minutes    uint32
	Hundredths uint32
}

// ToDMS decomposes the magnitude of d. Minutes and seconds are floor
// truncated, never rounded, so encoding is always biased toward zero.
func ToDMS(d float64) DMS {
	abs := math.Abs(d)
	degrees := math.Floor(abs)
	minutesFull := (abs - degrees) * 60
	minutes := math.Floor(minutesFull)
	hundredths := math.Floor((minutesFull - minutes) * 60 * SecondsDenominator)
	return DMS{
		Degrees:    uint32(degrees),
		Minutes:    uint32(minutes),
		Hundredths: uint32(hundredths),
	}
}

// Decimal returns the unsigned decimal-degree magnitude.
func (d DMS) Decimal() float64 {
	return float64(d.Degrees) +
		float64(d.Minutes)/60 +
		float64(d.Hundredths)/SecondsDenominator/3600
}

// FromDMS applies the hemisphere reference to a magnitude. "S" and "W" are
// negative; anything else is positive.
func FromDMS(d DMS, ref string) float64 {
	v := d.Decimal()
	if ref == "S" || ref == "W" {
		return -v
	}
	return v
}

// FromRationals converts three (num, den) pairs of any denominators into a
// decimal magnitude. Zero denominators contribute nothing.
func FromRationals(deg, min, sec [2]uint32) float64 {
	part := func(r [2]uint32) float64 {
		if r[1] == 0 {
			return 0
		}
		return float64(r[0]) / float64(r[1])
	}
	return part(deg) + part(min)/60 + part(sec)/3600
}

// LatitudeRef returns "N" for d >= 0, otherwise "S".
func LatitudeRef(d float64) string {
	if d >= 0 {
		return "N"
	}
	return "S"
}

// LongitudeRef returns "E" for d >= 0, otherwise "W".
func LongitudeRef(d float64) string {
	if d >= 0 {
		return "E"
	}
	return "W"
}
