package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineOneDegreeOfLongitudeAtEquator(t *testing.T) {
	d := Haversine(0, 0, 0, 1)
	assert.InDelta(t, 111195, d, 50)
}

func TestHaversineSymmetricAndZero(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(48.8584, 2.2945, 48.8584, 2.2945))
	a := Haversine(48.8584, 2.2945, 51.5007, -0.1246)
	b := Haversine(51.5007, -0.1246, 48.8584, 2.2945)
	assert.InDelta(t, a, b, 1e-6)
	// Eiffel Tower to Big Ben is roughly 340 km.
	assert.InDelta(t, 340000, a, 5000)
}

func TestToDMSFloorTruncates(t *testing.T) {
	// 37.7749 = 37° 46' 29.64"
	dms := ToDMS(37.7749)
	assert.Equal(t, DMS{Degrees: 37, Minutes: 46, Hundredths: 2964}, dms)

	// -33.8688 = 33° 52' 7.68"
	assert.Equal(t, DMS{Degrees: 33, Minutes: 52, Hundredths: 768}, ToDMS(-33.8688))
}

func TestToDMSIgnoresSign(t *testing.T) {
	assert.Equal(t, ToDMS(122.4194), ToDMS(-122.4194))
	assert.Equal(t, DMS{}, ToDMS(0))
	assert.Equal(t, DMS{Degrees: 90}, ToDMS(-90))
}

func TestDMSRoundTripWithinOneArcSecond(t *testing.T) {
	check := func(d float64, pos, neg string) {
		ref := pos
		if d < 0 {
			ref = neg
		}
		got := FromDMS(ToDMS(d), ref)
		diff := math.Abs(d) - math.Abs(got)
		// truncation only ever loses magnitude
		assert.GreaterOrEqual(t, diff, -1e-9, "value %v", d)
		assert.LessOrEqual(t, diff, 1.0/3600, "value %v", d)
		if d != 0 {
			assert.Equal(t, math.Signbit(d), math.Signbit(got), "value %v", d)
		}
	}
	for d := -90.0; d <= 90.0; d += 0.731 {
		check(d, "N", "S")
	}
	for d := -180.0; d <= 180.0; d += 1.379 {
		check(d, "E", "W")
	}
	check(90, "N", "S")
	check(-180, "E", "W")
}

func TestFromRationals(t *testing.T) {
	v := FromRationals([2]uint32{37, 1}, [2]uint32{46, 1}, [2]uint32{2964, 100})
	assert.InDelta(t, 37.7749, v, 1e-6)
	assert.Equal(t, 12.0, FromRationals([2]uint32{12, 1}, [2]uint32{0, 0}, [2]uint32{5, 0}))
}

func TestRefs(t *testing.T) {
	assert.Equal(t, "N", LatitudeRef(0))
	assert.Equal(t, "S", LatitudeRef(-0.1))
	assert.Equal(t, "E", LongitudeRef(179))
	assert.Equal(t, "W", LongitudeRef(-1))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.01, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
}
