package exif

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withExif(t *testing.T, d *Data) []byte {
	t.Helper()
	payload, err := Dump(d)
	require.NoError(t, err)
	out, err := Splice(fakeJPEG(), payload)
	require.NoError(t, err)
	return out
}

func TestDecodeFullRecord(t *testing.T) {
	d := NewData()
	d.Set(GroupImage, TagMake, ASCII("Canon "))
	d.Set(GroupImage, TagModel, ASCII("EOS R5"))
	d.Set(GroupImage, TagOrientation, Shorts{6})
	d.Set(GroupImage, TagDateTime, ASCII("2020:01:01 00:00:00"))
	d.Set(GroupExif, TagDateTimeOriginal, ASCII("2023:06:15 14:30:00"))
	d.Set(GroupExif, TagFNumber, Rationals{{Num: 28, Den: 10}})
	d.Set(GroupExif, TagFocalLength, Rationals{{Num: 50, Den: 1}})
	d.Set(GroupExif, TagExposureTime, Rationals{{Num: 1, Den: 250}})
	d.Set(GroupExif, TagISOSpeedRatings, Shorts{400})
	d.Set(GroupExif, TagLensModel, ASCII("RF 50mm F1.8"))
	d.Set(GroupExif, TagPixelXDimension, Longs{8192})
	d.Set(GroupExif, TagPixelYDimension, Shorts{5464})
	d.Set(GroupGPS, TagGPSLatitudeRef, ASCII("N"))
	d.Set(GroupGPS, TagGPSLatitude, Rationals{{37, 1}, {46, 1}, {2964, 100}})
	d.Set(GroupGPS, TagGPSLongitudeRef, ASCII("W"))
	d.Set(GroupGPS, TagGPSLongitude, Rationals{{122, 1}, {25, 1}, {984, 100}})

	rec := Decode(withExif(t, d))

	require.NotNil(t, rec.DateTaken)
	assert.Equal(t, "2023-06-15T14:30:00Z", *rec.DateTaken)
	require.NotNil(t, rec.Latitude)
	require.NotNil(t, rec.Longitude)
	assert.InDelta(t, 37.7749, *rec.Latitude, 1.0/3600)
	assert.InDelta(t, -122.4194, *rec.Longitude, 1.0/3600)
	assert.Equal(t, "Canon", *rec.CameraMake)
	assert.Equal(t, "EOS R5", *rec.CameraModel)
	assert.Equal(t, "RF 50mm F1.8", *rec.LensModel)
	assert.Equal(t, 2.8, *rec.Aperture)
	assert.Equal(t, 50.0, *rec.FocalLength)
	assert.Equal(t, "1/250", *rec.ShutterSpeed)
	assert.Equal(t, 400, *rec.ISO)
	assert.Equal(t, 8192, *rec.Width)
	assert.Equal(t, 5464, *rec.Height)
	assert.Equal(t, 6, *rec.Orientation)
}

func TestDecodeFallbacks(t *testing.T) {
	d := NewData()
	d.Set(GroupImage, TagDateTime, ASCII("2019:12:31 23:59:59"))
	d.Set(GroupImage, TagImageWidth, Shorts{640})
	d.Set(GroupImage, TagImageLength, Longs{480})
	d.Set(GroupImage, TagOrientation, Shorts{9})
	d.Set(GroupExif, TagExposureTime, Rationals{{Num: 2, Den: 1}})
	// Latitude alone is not enough for a coordinate pair.
	d.Set(GroupGPS, TagGPSLatitude, Rationals{{10, 1}, {0, 1}, {0, 1}})

	rec := Decode(withExif(t, d))

	assert.Equal(t, "2019-12-31T23:59:59Z", *rec.DateTaken)
	assert.Equal(t, 640, *rec.Width)
	assert.Equal(t, 480, *rec.Height)
	assert.Nil(t, rec.Orientation)
	assert.Equal(t, "2", *rec.ShutterSpeed)
	assert.Nil(t, rec.Latitude)
	assert.Nil(t, rec.Longitude)
}

func TestDecodeMissingRefIsPositive(t *testing.T) {
	d := NewData()
	d.Set(GroupGPS, TagGPSLatitude, Rationals{{48, 1}, {51, 1}, {3024, 100}})
	d.Set(GroupGPS, TagGPSLongitude, Rationals{{2, 1}, {17, 1}, {4020, 100}})

	rec := Decode(withExif(t, d))
	require.NotNil(t, rec.Latitude)
	assert.Greater(t, *rec.Latitude, 0.0)
	assert.Greater(t, *rec.Longitude, 0.0)
}

func TestDecodeMalformedDateIsNil(t *testing.T) {
	d := NewData()
	d.Set(GroupExif, TagDateTimeOriginal, ASCII("0000:00:00 00:00:00"))
	rec := Decode(withExif(t, d))
	assert.Nil(t, rec.DateTaken)
}

func TestDecodeCorruptInputIsEmpty(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0xFF},
		[]byte("GIF89a..."),
		fakeJPEG(segment{marker: markerAPP1, data: []byte("Exif\x00\x00II*\x00\xFF\xFF\xFF\x7F")}),
		fakeJPEG(segment{marker: markerAPP1, data: []byte("Exif\x00\x00garbage")}),
	}
	for _, in := range inputs {
		assert.Equal(t, Record{}, Decode(in))
	}
}

func TestDecodeFile(t *testing.T) {
	d := NewData()
	d.Set(GroupImage, TagModel, ASCII("Pixel 8"))
	path := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(path, withExif(t, d), 0o644))

	rec, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Pixel 8", *rec.CameraModel)

	_, err = DecodeFile(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestInspectListsNamedFields(t *testing.T) {
	d := NewData()
	d.Set(GroupImage, TagMake, ASCII("Nikon"))
	d.Set(GroupExif, TagISOSpeedRatings, Shorts{200})

	fields, err := Inspect(withExif(t, d))
	require.NoError(t, err)

	byName := map[string]string{}
	for _, f := range fields {
		byName[f.Name] = f.Value
	}
	assert.Equal(t, "Nikon", byName["Make"])
	assert.Equal(t, "200", byName["ISOSpeedRatings"])
}
