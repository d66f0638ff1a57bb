// internal/exif/exif.go
package exif

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/pkg/common"
)

// DateLayout is the EXIF timestamp form.
const DateLayout = "2006:01:02 15:04:05"

// Record is the metadata extracted from an image. Nil fields were absent or
// unreadable.
type Record struct {
	DateTaken    *string
	Latitude     *float64
	Longitude    *float64
	CameraMake   *string
	CameraModel  *string
	LensModel    *string
	FocalLength  *float64
	Aperture     *float64
	ShutterSpeed *string
	ISO          *int
	Width        *int
	Height       *int
	Orientation  *int
}

// Decode extracts a Record from image bytes. Missing or corrupt metadata
// yields an empty Record, never an error.
func Decode(image []byte) Record {
	d, err := Parse(image)
	if err != nil {
		logger.Debug("exif: no usable metadata: %v", err)
		return Record{}
	}
	return recordFrom(d)
}

// DecodeReader reads r fully and decodes it.
func DecodeReader(r io.Reader) (Record, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Record{}, common.NewIOError("exif.DecodeReader", err)
	}
	return Decode(b), nil
}

// DecodeFile decodes the image at path. Only failing to read the file is an
// error.
func DecodeFile(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, common.NewIOError("exif.DecodeFile", err)
	}
	return Decode(b), nil
}

func recordFrom(d *Data) Record {
	var rec Record

	// Extract date/time
	if s, ok := d.Text(GroupExif, TagDateTimeOriginal); ok {
		rec.DateTaken = parseDate(s)
	}
	if rec.DateTaken == nil {
		if s, ok := d.Text(GroupImage, TagDateTime); ok {
			rec.DateTaken = parseDate(s)
		}
	}

	// Extract GPS info
	lat, latOK := gpsCoordinate(d, TagGPSLatitude, TagGPSLatitudeRef)
	lon, lonOK := gpsCoordinate(d, TagGPSLongitude, TagGPSLongitudeRef)
	if latOK && lonOK && geo.ValidCoordinates(lat, lon) {
		rec.Latitude = &lat
		rec.Longitude = &lon
	}

	// Extract camera info
	rec.CameraMake = text(d, GroupImage, TagMake)
	rec.CameraModel = text(d, GroupImage, TagModel)
	rec.LensModel = text(d, GroupExif, TagLensModel)

	if r, ok := d.Rational(GroupExif, TagFocalLength); ok && r.Den != 0 {
		v := r.Float()
		rec.FocalLength = &v
	}
	if r, ok := d.Rational(GroupExif, TagFNumber); ok && r.Den != 0 {
		v := r.Float()
		rec.Aperture = &v
	}
	if r, ok := d.Rational(GroupExif, TagExposureTime); ok && r.Den != 0 {
		s := exposureString(r)
		rec.ShutterSpeed = &s
	}
	if v, ok := d.Int(GroupExif, TagISOSpeedRatings); ok {
		rec.ISO = &v
	}

	rec.Width = firstInt(d, GroupExif, TagPixelXDimension, GroupImage, TagImageWidth)
	rec.Height = firstInt(d, GroupExif, TagPixelYDimension, GroupImage, TagImageLength)

	if v, ok := d.Int(GroupImage, TagOrientation); ok && v >= 1 && v <= 8 {
		rec.Orientation = &v
	}

	return rec
}

// parseDate reads an EXIF timestamp as UTC and returns it in RFC 3339 form.
func parseDate(s string) *string {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return nil
	}
	out := t.Format(time.RFC3339)
	return &out
}

func gpsCoordinate(d *Data, tag, refTag uint16) (float64, bool) {
	v, ok := d.Get(GroupGPS, tag)
	if !ok {
		return 0, false
	}
	rs, ok := v.(Rationals)
	if !ok || len(rs) < 3 || rs[0].Den == 0 {
		return 0, false
	}
	deg := geo.FromRationals(
		[2]uint32{rs[0].Num, rs[0].Den},
		[2]uint32{rs[1].Num, rs[1].Den},
		[2]uint32{rs[2].Num, rs[2].Den},
	)
	if ref, ok := d.Text(GroupGPS, refTag); ok {
		ref = strings.ToUpper(strings.TrimSpace(ref))
		if ref == "S" || ref == "W" {
			deg = -deg
		}
	}
	return deg, true
}

func exposureString(r Rational) string {
	if r.Den == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	return r.String()
}

func text(d *Data, g Group, tag uint16) *string {
	s, ok := d.Text(g, tag)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstInt(d *Data, g1 Group, t1 uint16, g2 Group, t2 uint16) *int {
	if v, ok := d.Int(g1, t1); ok && v > 0 {
		return &v
	}
	if v, ok := d.Int(g2, t2); ok && v > 0 {
		return &v
	}
	return nil
}
