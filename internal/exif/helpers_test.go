package exif

import (
	"bytes"
	"encoding/binary"
)

// fakeJPEG builds a minimal JPEG stream: SOI, a JFIF APP0, any extra
// segments, then a stub scan and EOI. Pixel data is never decoded.
func fakeJPEG(extra ...segment) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, markerSOI})
	writeSeg := func(marker byte, data []byte) {
		buf.Write([]byte{0xFF, marker})
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(data)+2))
		buf.Write(data)
	}
	writeSeg(markerAPP0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"))
	for _, s := range extra {
		writeSeg(s.marker, s.data)
	}
	buf.Write([]byte{0xFF, markerSOS, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3F, 0x00})
	buf.Write([]byte{0x12, 0x34, 0x56, 0x78, 0xFF, 0x00, 0x9A})
	buf.Write([]byte{0xFF, markerEOI})
	return buf.Bytes()
}

func ptr[T any](v T) *T { return &v }
