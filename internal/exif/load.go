package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rwcarlsen/goexif/tiff"
)

// exifHeader prefixes the TIFF block inside an APP1 segment.
var exifHeader = []byte("Exif\x00\x00")

// ErrNoExif is returned when an image carries no EXIF block.
var ErrNoExif = errors.New("no exif data")

// Load returns the EXIF block of a JPEG (or bare TIFF) stream. Images with no
// readable block yield empty groups so the result can always be edited and
// dumped.
func Load(image []byte) *Data {
	d, err := Parse(image)
	if err != nil {
		return NewData()
	}
	return d
}

// Parse locates the EXIF block in a JPEG stream or a bare TIFF stream and
// loads it.
func Parse(image []byte) (*Data, error) {
	raw, err := tiffBlock(image)
	if err != nil {
		return nil, err
	}
	return LoadTIFF(raw)
}

// tiffBlock returns the TIFF-structured EXIF block of a JPEG or bare TIFF
// stream.
func tiffBlock(image []byte) ([]byte, error) {
	if isTIFF(image) {
		return image, nil
	}
	payload, err := ExtractAPP1(image)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(payload, exifHeader) {
		return nil, ErrNoExif
	}
	return payload[len(exifHeader):], nil
}

// LoadAPP1 parses an APP1 payload ("Exif\0\0" followed by a TIFF block).
func LoadAPP1(app1 []byte) (*Data, error) {
	if !bytes.HasPrefix(app1, exifHeader) {
		return nil, ErrNoExif
	}
	return LoadTIFF(app1[len(exifHeader):])
}

func isTIFF(b []byte) bool {
	return bytes.HasPrefix(b, []byte("II*\x00")) || bytes.HasPrefix(b, []byte("MM\x00*"))
}

// LoadTIFF parses a TIFF-structured EXIF block. The decoder is fed untrusted
// bytes, so the block is bounds checked first and a panic inside the decoder
// is reported as an error.
func LoadTIFF(raw []byte) (d *Data, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("exif: malformed tiff block: %v", r)
		}
	}()

	if err := checkTIFF(raw); err != nil {
		return nil, err
	}
	t, err := tiff.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("exif: decode tiff: %w", err)
	}
	if len(t.Dirs) == 0 {
		return nil, ErrNoExif
	}

	d = NewData()
	if err := d.loadDir(GroupImage, t.Dirs[0], t.Order); err != nil {
		return nil, err
	}

	if off, ok := d.takePointer(GroupImage, TagExifIFDPointer); ok {
		if err := d.loadSubDir(GroupExif, raw, off, t.Order); err != nil {
			return nil, err
		}
		if off, ok := d.takePointer(GroupExif, TagInteropPointer); ok {
			if err := d.loadSubDir(GroupInterop, raw, off, t.Order); err != nil {
				return nil, err
			}
		}
	}
	if off, ok := d.takePointer(GroupImage, TagGPSIFDPointer); ok {
		if err := d.loadSubDir(GroupGPS, raw, off, t.Order); err != nil {
			return nil, err
		}
	}

	if len(t.Dirs) > 1 {
		if err := d.loadDir(GroupFirst, t.Dirs[1], t.Order); err != nil {
			return nil, err
		}
		off, hasOff := d.takePointer(GroupFirst, TagThumbnailOffset)
		length, hasLen := d.takePointer(GroupFirst, TagThumbnailLength)
		if hasOff && hasLen && uint64(off)+uint64(length) <= uint64(len(raw)) {
			d.Thumbnail = append([]byte(nil), raw[off:off+length]...)
		}
	}

	return d, nil
}

func (d *Data) loadSubDir(g Group, raw []byte, offset uint32, order binary.ByteOrder) error {
	if uint64(offset) >= uint64(len(raw)) {
		return fmt.Errorf("exif: %s ifd offset %d out of range", g, offset)
	}
	r := bytes.NewReader(raw)
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("exif: seek %s ifd: %w", g, err)
	}
	dir, _, err := tiff.DecodeDir(r, order)
	if err != nil {
		return fmt.Errorf("exif: decode %s ifd: %w", g, err)
	}
	return d.loadDir(g, dir, order)
}

func (d *Data) loadDir(g Group, dir *tiff.Dir, order binary.ByteOrder) error {
	ifd := d.Groups[g]
	for _, tag := range dir.Tags {
		v, err := valueFromTag(tag, order)
		if err != nil {
			return fmt.Errorf("exif: %s tag 0x%04X: %w", g, tag.Id, err)
		}
		ifd[tag.Id] = v
	}
	return nil
}

// takePointer removes an offset-valued tag and returns its value. Offsets are
// regenerated by Dump, so they never survive in the model.
func (d *Data) takePointer(g Group, tag uint16) (uint32, bool) {
	v, ok := d.Get(g, tag)
	if !ok {
		return 0, false
	}
	d.Delete(g, tag)
	switch t := v.(type) {
	case Longs:
		if len(t) > 0 {
			return t[0], true
		}
	case Shorts:
		if len(t) > 0 {
			return uint32(t[0]), true
		}
	}
	return 0, false
}

func valueFromTag(tag *tiff.Tag, order binary.ByteOrder) (Value, error) {
	typ := DataType(tag.Type)
	size := elementSize(typ)
	if size == 0 {
		return nil, fmt.Errorf("unknown data type %d", tag.Type)
	}
	n := int(tag.Count)
	if len(tag.Val) < n*size {
		return nil, fmt.Errorf("short value: %d bytes for %d elements", len(tag.Val), n)
	}
	val := tag.Val[:n*size]

	switch typ {
	case TypeASCII:
		return ASCII(bytes.TrimRight(val, "\x00")), nil
	case TypeByte:
		return Bytes(append([]byte(nil), val...)), nil
	case TypeUndefined:
		return Undefined(append([]byte(nil), val...)), nil
	case TypeShort:
		out := make(Shorts, n)
		for i := range out {
			out[i] = order.Uint16(val[2*i:])
		}
		return out, nil
	case TypeLong:
		out := make(Longs, n)
		for i := range out {
			out[i] = order.Uint32(val[4*i:])
		}
		return out, nil
	case TypeRational:
		out := make(Rationals, n)
		for i := range out {
			out[i] = Rational{Num: order.Uint32(val[8*i:]), Den: order.Uint32(val[8*i+4:])}
		}
		return out, nil
	case TypeSRational:
		out := make(SRationals, n)
		for i := range out {
			out[i] = SRational{Num: int32(order.Uint32(val[8*i:])), Den: int32(order.Uint32(val[8*i+4:]))}
		}
		return out, nil
	default:
		data := append([]byte(nil), val...)
		if order != binary.BigEndian {
			data = swapElements(data, size)
		}
		return Raw{DataType: typ, N: tag.Count, Data: data}, nil
	}
}
