package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bstardust/memorable/pkg/common"
)

const (
	markerTEM  = 0x01
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
)

// segment is one marker segment from the JPEG header. A segment with marker
// 0 is the raw tail starting at SOS, kept byte for byte.
type segment struct {
	marker byte
	data   []byte
}

// standalone markers carry no length field.
func standalone(marker byte) bool {
	return marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7)
}

// IsJPEG reports whether b starts with a JPEG SOI marker.
func IsJPEG(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1] == markerSOI
}

// splitSegments walks the header segments of a JPEG stream up to the start of
// scan. Everything from SOS onward is returned as a single raw tail.
func splitSegments(b []byte) ([]segment, error) {
	if !IsJPEG(b) {
		return nil, fmt.Errorf("not a jpeg stream")
	}
	var segs []segment
	i := 2
	for i < len(b) {
		if b[i] != 0xFF {
			return nil, fmt.Errorf("expected marker at offset %d", i)
		}
		// Fill bytes before a marker are legal.
		for i+1 < len(b) && b[i+1] == 0xFF {
			i++
		}
		if i+1 >= len(b) {
			return nil, fmt.Errorf("truncated marker at offset %d", i)
		}
		marker := b[i+1]
		if marker == markerSOS || marker == markerEOI {
			segs = append(segs, segment{data: b[i:]})
			return segs, nil
		}
		if standalone(marker) {
			segs = append(segs, segment{marker: marker})
			i += 2
			continue
		}
		if i+4 > len(b) {
			return nil, fmt.Errorf("truncated segment 0x%02X", marker)
		}
		n := int(binary.BigEndian.Uint16(b[i+2:]))
		if n < 2 || i+2+n > len(b) {
			return nil, fmt.Errorf("bad length %d for segment 0x%02X", n, marker)
		}
		segs = append(segs, segment{marker: marker, data: b[i+4 : i+2+n]})
		i += 2 + n
	}
	return segs, nil
}

func joinSegments(segs []segment) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, markerSOI})
	for _, s := range segs {
		if s.marker == 0 {
			buf.Write(s.data)
			continue
		}
		buf.Write([]byte{0xFF, s.marker})
		if standalone(s.marker) {
			continue
		}
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(s.data)+2))
		buf.Write(s.data)
	}
	return buf.Bytes()
}

func isExifSegment(s segment) bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.data, exifHeader)
}

// ExtractAPP1 returns the first Exif APP1 payload of a JPEG stream.
func ExtractAPP1(image []byte) ([]byte, error) {
	segs, err := splitSegments(image)
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		if isExifSegment(s) {
			return s.data, nil
		}
	}
	return nil, ErrNoExif
}

// Splice replaces every Exif APP1 segment of a JPEG stream with payload. The
// new segment goes right after SOI, or after a leading APP0 (JFIF) segment.
// All other segments and the scan data are carried over untouched.
func Splice(image, payload []byte) ([]byte, error) {
	const op = "exif.Splice"
	if !IsJPEG(image) {
		return nil, common.NewUnsupportedFormatError(op, "not a jpeg stream")
	}
	if len(payload) > MaxPayload {
		return nil, common.NewValidationError(op, fmt.Sprintf("payload of %d bytes exceeds %d", len(payload), MaxPayload))
	}
	segs, err := splitSegments(image)
	if err != nil {
		return nil, common.NewCorruptMetadataError(op, err)
	}

	kept := make([]segment, 0, len(segs)+1)
	for _, s := range segs {
		if !isExifSegment(s) {
			kept = append(kept, s)
		}
	}

	at := 0
	if len(kept) > 0 && kept[0].marker == markerAPP0 {
		at = 1
	}
	out := make([]segment, 0, len(kept)+1)
	out = append(out, kept[:at]...)
	out = append(out, segment{marker: markerAPP1, data: payload})
	out = append(out, kept[at:]...)
	return joinSegments(out), nil
}
