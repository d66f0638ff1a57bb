package exif

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

// Fields is the subset of photo metadata written back into a file.
type Fields struct {
	CameraMake  *string
	CameraModel *string
	LensModel   *string
	DateTaken   *string
	ISO         *int
	FocalLength *float64
	Aperture    *float64
	Latitude    *float64
	Longitude   *float64
	Rating      int
	Notes       *string
}

// FieldsFromPhoto picks the exported fields of a library row.
func FieldsFromPhoto(p *models.Photo) Fields {
	return Fields{
		CameraMake:  p.CameraMake,
		CameraModel: p.CameraModel,
		LensModel:   p.LensModel,
		DateTaken:   p.DateTaken,
		ISO:         p.ISO,
		FocalLength: p.FocalLength,
		Aperture:    p.Aperture,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Rating:      p.Rating,
		Notes:       p.Notes,
	}
}

var gpsVersion = Bytes{2, 2, 0, 0}

// Apply merges f into d. Nil and empty fields leave the existing tags alone.
func Apply(d *Data, f Fields) error {
	const op = "exif.Apply"

	if s := nonEmpty(f.CameraMake); s != "" {
		d.Set(GroupImage, TagMake, ASCII(s))
	}
	if s := nonEmpty(f.CameraModel); s != "" {
		d.Set(GroupImage, TagModel, ASCII(s))
	}
	if s := nonEmpty(f.DateTaken); s != "" {
		date, err := FormatDate(s)
		if err != nil {
			return err
		}
		d.Set(GroupExif, TagDateTimeOriginal, ASCII(date))
		d.Set(GroupImage, TagDateTime, ASCII(date))
	}
	if f.ISO != nil && *f.ISO > 0 {
		iso := *f.ISO
		if iso > math.MaxUint16 {
			iso = math.MaxUint16
		}
		d.Set(GroupExif, TagISOSpeedRatings, Shorts{uint16(iso)})
	}
	if f.FocalLength != nil && *f.FocalLength > 0 {
		r, err := FocalRational(*f.FocalLength)
		if err != nil {
			return err
		}
		d.Set(GroupExif, TagFocalLength, Rationals{r})
	}
	if f.Aperture != nil && *f.Aperture > 0 {
		r, err := ApertureRational(*f.Aperture)
		if err != nil {
			return err
		}
		d.Set(GroupExif, TagFNumber, Rationals{r})
	}
	if s := nonEmpty(f.LensModel); s != "" {
		d.Set(GroupExif, TagLensModel, ASCII(s))
	}

	if f.Latitude != nil && f.Longitude != nil {
		lat, lon := *f.Latitude, *f.Longitude
		if !geo.ValidCoordinates(lat, lon) {
			return common.NewValidationError(op, fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
		}
		d.Set(GroupGPS, TagGPSLatitude, dmsRationals(geo.ToDMS(lat)))
		d.Set(GroupGPS, TagGPSLatitudeRef, ASCII(geo.LatitudeRef(lat)))
		d.Set(GroupGPS, TagGPSLongitude, dmsRationals(geo.ToDMS(lon)))
		d.Set(GroupGPS, TagGPSLongitudeRef, ASCII(geo.LongitudeRef(lon)))
		if _, ok := d.Get(GroupGPS, TagGPSVersionID); !ok {
			d.Set(GroupGPS, TagGPSVersionID, gpsVersion)
		}
	}

	if comment := ComposeUserComment(f.Rating, nonEmpty(f.Notes)); comment != "" {
		encoded, err := EncodeUserComment(comment)
		if err != nil {
			return err
		}
		d.Set(GroupExif, TagUserComment, encoded)
	}
	return nil
}

func nonEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads an ISO 8601 timestamp in any of the accepted layouts.
// Timestamps without a zone are taken as UTC.
func ParseTimestamp(iso string) (time.Time, error) {
	s := strings.TrimSpace(iso)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, common.NewValidationError("exif.ParseTimestamp", fmt.Sprintf("unrecognized timestamp %q", iso))
}

// FormatDate converts an ISO 8601 timestamp to the EXIF form in UTC. Zone
// information is dropped after conversion.
func FormatDate(iso string) (string, error) {
	t, err := ParseTimestamp(iso)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(DateLayout), nil
}

// FocalRational encodes a focal length in millimeters as (round(v), 1).
func FocalRational(v float64) (Rational, error) {
	return roundedRational("exif.FocalRational", v, 1)
}

// ApertureRational encodes an f-number as (round(v*10), 10).
func ApertureRational(v float64) (Rational, error) {
	return roundedRational("exif.ApertureRational", v, 10)
}

func roundedRational(op string, v float64, den uint32) (Rational, error) {
	n := math.Round(v * float64(den))
	if math.IsNaN(n) || n < 0 || n > math.MaxUint32 {
		return Rational{}, common.NewValidationError(op, fmt.Sprintf("value %v not representable", v))
	}
	return Rational{Num: uint32(n), Den: den}, nil
}

func dmsRationals(d geo.DMS) Rationals {
	return Rationals{
		{Num: d.Degrees, Den: 1},
		{Num: d.Minutes, Den: 1},
		{Num: d.Hundredths, Den: geo.SecondsDenominator},
	}
}

// ComposeUserComment renders the rating as stars and joins it with notes.
// Both empty yields "".
func ComposeUserComment(rating int, notes string) string {
	var parts []string
	if rating > 0 {
		parts = append(parts, "Rating: "+strings.Repeat("★", rating))
	}
	if notes != "" {
		parts = append(parts, notes)
	}
	return strings.Join(parts, " | ")
}

var (
	asciiPrefix   = []byte("ASCII\x00\x00\x00")
	unicodePrefix = []byte("UNICODE\x00")
	utf16BE       = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
)

// EncodeUserComment prefixes s with its EXIF character code. Pure ASCII is
// stored as is, anything else as UTF-16 big-endian.
func EncodeUserComment(s string) (Undefined, error) {
	if isASCII(s) {
		return Undefined(append(append([]byte(nil), asciiPrefix...), s...)), nil
	}
	b, err := utf16BE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, common.NewValidationError("exif.EncodeUserComment", err.Error())
	}
	return Undefined(append(append([]byte(nil), unicodePrefix...), b...)), nil
}

// DecodeUserComment reverses EncodeUserComment. An unknown or missing
// character code is read as UTF-8 when valid.
func DecodeUserComment(b []byte) (string, error) {
	if len(b) < 8 {
		return "", fmt.Errorf("user comment too short: %d bytes", len(b))
	}
	code, body := b[:8], b[8:]
	switch {
	case string(code) == string(asciiPrefix):
		return strings.TrimRight(string(body), "\x00 "), nil
	case string(code) == string(unicodePrefix):
		out, err := utf16BE.NewDecoder().Bytes(body)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(out), "\x00"), nil
	default:
		if utf8.Valid(body) {
			return strings.TrimRight(string(body), "\x00 "), nil
		}
		return "", fmt.Errorf("unsupported user comment encoding %q", strings.TrimRight(string(code), "\x00"))
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
