// Package exif reads and writes the EXIF block of JPEG files through an
// explicit, typed IFD model.
//
// A Data value maps each IFD group (image, exif, gps, interop, first) to the
// tags it holds, each tag carrying a typed Value. Load turns an APP1 payload
// into Data, Dump turns Data back into an APP1 payload, and Splice swaps the
// payload into a JPEG stream.
package exif

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Group names an IFD inside the EXIF block.
type Group string

const (
	GroupImage   Group = "image"
	GroupExif    Group = "exif"
	GroupGPS     Group = "gps"
	GroupInterop Group = "interop"
	GroupFirst   Group = "first"
)

// Groups lists every group in serialization order.
var Groups = []Group{GroupImage, GroupExif, GroupGPS, GroupInterop, GroupFirst}

// Tag identifiers used by the codec.
const (
	TagImageWidth       uint16 = 0x0100
	TagImageLength      uint16 = 0x0101
	TagMake             uint16 = 0x010F
	TagModel            uint16 = 0x0110
	TagOrientation      uint16 = 0x0112
	TagDateTime         uint16 = 0x0132
	TagThumbnailOffset  uint16 = 0x0201
	TagThumbnailLength  uint16 = 0x0202
	TagExposureTime     uint16 = 0x829A
	TagFNumber          uint16 = 0x829D
	TagExifIFDPointer   uint16 = 0x8769
	TagISOSpeedRatings  uint16 = 0x8827
	TagGPSIFDPointer    uint16 = 0x8825
	TagExifVersion      uint16 = 0x9000
	TagDateTimeOriginal uint16 = 0x9003
	TagFocalLength      uint16 = 0x920A
	TagUserComment      uint16 = 0x9286
	TagPixelXDimension  uint16 = 0xA002
	TagPixelYDimension  uint16 = 0xA003
	TagInteropPointer   uint16 = 0xA005
	TagLensModel        uint16 = 0xA434

	TagGPSVersionID    uint16 = 0x0000
	TagGPSLatitudeRef  uint16 = 0x0001
	TagGPSLatitude     uint16 = 0x0002
	TagGPSLongitudeRef uint16 = 0x0003
	TagGPSLongitude    uint16 = 0x0004
)

// DataType is the TIFF field type of a value.
type DataType uint16

const (
	TypeByte      DataType = 1
	TypeASCII     DataType = 2
	TypeShort     DataType = 3
	TypeLong      DataType = 4
	TypeRational  DataType = 5
	TypeSByte     DataType = 6
	TypeUndefined DataType = 7
	TypeSShort    DataType = 8
	TypeSLong     DataType = 9
	TypeSRational DataType = 10
	TypeFloat     DataType = 11
	TypeDouble    DataType = 12
)

// elementSize is the byte width of one element of t, or 0 for unknown types.
func elementSize(t DataType) int {
	switch t {
	case TypeByte, TypeASCII, TypeSByte, TypeUndefined:
		return 1
	case TypeShort, TypeSShort:
		return 2
	case TypeLong, TypeSLong, TypeFloat:
		return 4
	case TypeRational, TypeSRational, TypeDouble:
		return 8
	}
	return 0
}

// Value is a typed tag value.
type Value interface {
	Type() DataType
	Count() uint32
	encode(order binary.ByteOrder) []byte
}

// ASCII is a NUL-terminated string; the terminator is added on encode.
type ASCII string

func (v ASCII) Type() DataType { return TypeASCII }
func (v ASCII) Count() uint32 { return uint32(len(v) + 1) }
func (v ASCII) String() string { return string(v) }
func (v ASCII) encode(binary.ByteOrder) []byte {
	return append([]byte(v), 0)
}

// Bytes holds BYTE values.
type Bytes []byte

func (v Bytes) Type() DataType { return TypeByte }
func (v Bytes) Count() uint32 { return uint32(len(v)) }
func (v Bytes) encode(binary.ByteOrder) []byte { return append([]byte(nil), v...) }

// Undefined holds opaque UNDEFINED bytes.
type Undefined []byte

func (v Undefined) Type() DataType { return TypeUndefined }
func (v Undefined) Count() uint32 { return uint32(len(v)) }
func (v Undefined) encode(binary.ByteOrder) []byte { return append([]byte(nil), v...) }

// Shorts holds SHORT values.
type Shorts []uint16

func (v Shorts) Type() DataType { return TypeShort }
func (v Shorts) Count() uint32 { return uint32(len(v)) }
func (v Shorts) encode(order binary.ByteOrder) []byte {
	out := make([]byte, 2*len(v))
	for i, s := range v {
		order.PutUint16(out[2*i:], s)
	}
	return out
}

// Longs holds LONG values.
type Longs []uint32

func (v Longs) Type() DataType { return TypeLong }
func (v Longs) Count() uint32 { return uint32(len(v)) }
func (v Longs) encode(order binary.ByteOrder) []byte {
	out := make([]byte, 4*len(v))
	for i, l := range v {
		order.PutUint32(out[4*i:], l)
	}
	return out
}

// Rational is an unsigned numerator/denominator pair.
type Rational struct {
	Num uint32
	Den uint32
}

// Float returns the rational as a float, or 0 for a zero denominator.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Rationals holds RATIONAL values.
type Rationals []Rational

func (v Rationals) Type() DataType { return TypeRational }
func (v Rationals) Count() uint32 { return uint32(len(v)) }
func (v Rationals) encode(order binary.ByteOrder) []byte {
	out := make([]byte, 8*len(v))
	for i, r := range v {
		order.PutUint32(out[8*i:], r.Num)
		order.PutUint32(out[8*i+4:], r.Den)
	}
	return out
}

// SRational is a signed numerator/denominator pair.
type SRational struct {
	Num int32
	Den int32
}

// SRationals holds SRATIONAL values.
type SRationals []SRational

func (v SRationals) Type() DataType { return TypeSRational }
func (v SRationals) Count() uint32 { return uint32(len(v)) }
func (v SRationals) encode(order binary.ByteOrder) []byte {
	out := make([]byte, 8*len(v))
	for i, r := range v {
		order.PutUint32(out[8*i:], uint32(r.Num))
		order.PutUint32(out[8*i+4:], uint32(r.Den))
	}
	return out
}

// Raw carries the remaining numeric types (SBYTE, SSHORT, SLONG, FLOAT,
// DOUBLE) verbatim. Data is always kept big-endian.
type Raw struct {
	DataType DataType
	N        uint32
	Data     []byte
}

func (v Raw) Type() DataType { return v.DataType }
func (v Raw) Count() uint32 { return v.N }
func (v Raw) encode(order binary.ByteOrder) []byte {
	out := append([]byte(nil), v.Data...)
	if order == binary.BigEndian {
		return out
	}
	return swapElements(out, elementSize(v.DataType))
}

func swapElements(b []byte, size int) []byte {
	if size <= 1 {
		return b
	}
	for i := 0; i+size <= len(b); i += size {
		el := b[i : i+size]
		for l, r := 0, size-1; l < r; l, r = l+1, r-1 {
			el[l], el[r] = el[r], el[l]
		}
	}
	return b
}

// IFD maps tag ids to values.
type IFD map[uint16]Value

// Tags returns the tag ids in ascending order.
func (ifd IFD) Tags() []uint16 {
	tags := make([]uint16, 0, len(ifd))
	for tag := range ifd {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Data is a parsed EXIF block.
type Data struct {
	Groups    map[Group]IFD
	Thumbnail []byte
}

// NewData returns empty image, exif, gps, interop and first groups and no
// thumbnail. It is the starting point for files that carry no EXIF.
func NewData() *Data {
	d := &Data{Groups: make(map[Group]IFD, len(Groups))}
	for _, g := range Groups {
		d.Groups[g] = IFD{}
	}
	return d
}

// Get returns the value of tag in group g.
func (d *Data) Get(g Group, tag uint16) (Value, bool) {
	ifd, ok := d.Groups[g]
	if !ok {
		return nil, false
	}
	v, ok := ifd[tag]
	return v, ok
}

// Set stores v under tag in group g, creating the group if needed.
func (d *Data) Set(g Group, tag uint16, v Value) {
	ifd, ok := d.Groups[g]
	if !ok {
		ifd = IFD{}
		d.Groups[g] = ifd
	}
	ifd[tag] = v
}

// Delete removes tag from group g.
func (d *Data) Delete(g Group, tag uint16) {
	delete(d.Groups[g], tag)
}

// Text returns the ASCII value of tag in g, if present and non-empty.
func (d *Data) Text(g Group, tag uint16) (string, bool) {
	v, ok := d.Get(g, tag)
	if !ok {
		return "", false
	}
	s, ok := v.(ASCII)
	if !ok || s == "" {
		return "", false
	}
	return string(s), true
}

// Rational returns the first rational of tag in g.
func (d *Data) Rational(g Group, tag uint16) (Rational, bool) {
	v, ok := d.Get(g, tag)
	if !ok {
		return Rational{}, false
	}
	rs, ok := v.(Rationals)
	if !ok || len(rs) == 0 {
		return Rational{}, false
	}
	return rs[0], true
}

// Int returns the first element of an integer-typed tag in g.
func (d *Data) Int(g Group, tag uint16) (int, bool) {
	v, ok := d.Get(g, tag)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case Shorts:
		if len(t) > 0 {
			return int(t[0]), true
		}
	case Longs:
		if len(t) > 0 {
			return int(t[0]), true
		}
	case Bytes:
		if len(t) > 0 {
			return int(t[0]), true
		}
	}
	return 0, false
}
