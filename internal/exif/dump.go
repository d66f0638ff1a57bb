package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MaxPayload is the largest APP1 payload a JPEG segment can carry (the
// 16-bit segment length includes its own two bytes).
const MaxPayload = 65533

const entrySize = 12

// pointerTags are regenerated on every dump and dropped from caller data.
var pointerTags = map[Group][]uint16{
	GroupImage: {TagExifIFDPointer, TagGPSIFDPointer},
	GroupExif:  {TagInteropPointer},
	GroupFirst: {TagThumbnailOffset, TagThumbnailLength},
}

// Dump serializes d into an APP1 payload: "Exif\0\0" followed by a big-endian
// TIFF block. Directories are laid out as IFD0, Exif, GPS, Interop, IFD1 and
// finally the thumbnail.
func Dump(d *Data) ([]byte, error) {
	order := binary.BigEndian

	ifds := make(map[Group]IFD, len(Groups))
	for _, g := range Groups {
		ifd := IFD{}
		for tag, v := range d.Groups[g] {
			ifd[tag] = v
		}
		for _, tag := range pointerTags[g] {
			delete(ifd, tag)
		}
		ifds[g] = ifd
	}

	hasInterop := len(ifds[GroupInterop]) > 0
	hasExif := len(ifds[GroupExif]) > 0 || hasInterop
	hasGPS := len(ifds[GroupGPS]) > 0
	hasFirst := len(ifds[GroupFirst]) > 0 || len(d.Thumbnail) > 0

	// Placeholders first so sizes are final before offsets are assigned.
	if hasExif {
		ifds[GroupImage][TagExifIFDPointer] = Longs{0}
	}
	if hasGPS {
		ifds[GroupImage][TagGPSIFDPointer] = Longs{0}
	}
	if hasInterop {
		ifds[GroupExif][TagInteropPointer] = Longs{0}
	}
	if len(d.Thumbnail) > 0 {
		ifds[GroupFirst][TagThumbnailOffset] = Longs{0}
		ifds[GroupFirst][TagThumbnailLength] = Longs{uint32(len(d.Thumbnail))}
	}

	present := map[Group]bool{
		GroupImage:   true,
		GroupExif:    hasExif,
		GroupGPS:     hasGPS,
		GroupInterop: hasInterop,
		GroupFirst:   hasFirst,
	}
	offsets := make(map[Group]uint32, len(Groups))
	next := uint32(8)
	for _, g := range Groups {
		if !present[g] {
			continue
		}
		offsets[g] = next
		next += ifdSize(ifds[g], order)
	}
	thumbOffset := next
	total := next + uint32(len(d.Thumbnail))
	if int(total)+len(exifHeader) > MaxPayload {
		return nil, fmt.Errorf("exif: payload of %d bytes exceeds %d", int(total)+len(exifHeader), MaxPayload)
	}

	if hasExif {
		ifds[GroupImage][TagExifIFDPointer] = Longs{offsets[GroupExif]}
	}
	if hasGPS {
		ifds[GroupImage][TagGPSIFDPointer] = Longs{offsets[GroupGPS]}
	}
	if hasInterop {
		ifds[GroupExif][TagInteropPointer] = Longs{offsets[GroupInterop]}
	}
	if len(d.Thumbnail) > 0 {
		ifds[GroupFirst][TagThumbnailOffset] = Longs{thumbOffset}
	}

	var buf bytes.Buffer
	buf.Grow(len(exifHeader) + int(total))
	buf.Write(exifHeader)
	buf.WriteString("MM\x00*")
	_ = binary.Write(&buf, order, uint32(8))

	for _, g := range Groups {
		if !present[g] {
			continue
		}
		var link uint32
		if g == GroupImage && hasFirst {
			link = offsets[GroupFirst]
		}
		writeIFD(&buf, ifds[g], offsets[g], link, order)
	}
	buf.Write(d.Thumbnail)

	if got := buf.Len() - len(exifHeader); got != int(total) {
		return nil, fmt.Errorf("exif: layout mismatch: wrote %d bytes, planned %d", got, total)
	}
	return buf.Bytes(), nil
}

// ifdSize is the directory size including its out-of-line value area.
func ifdSize(ifd IFD, order binary.ByteOrder) uint32 {
	size := uint32(2 + entrySize*len(ifd) + 4)
	for _, v := range ifd {
		if n := len(v.encode(order)); n > 4 {
			size += uint32(n + n%2)
		}
	}
	return size
}

func writeIFD(buf *bytes.Buffer, ifd IFD, base, link uint32, order binary.ByteOrder) {
	tags := ifd.Tags()
	valueOffset := base + uint32(2+entrySize*len(tags)+4)

	var values bytes.Buffer
	entry := make([]byte, entrySize)

	_ = binary.Write(buf, order, uint16(len(tags)))
	for _, tag := range tags {
		v := ifd[tag]
		data := v.encode(order)

		order.PutUint16(entry[0:], tag)
		order.PutUint16(entry[2:], uint16(v.Type()))
		order.PutUint32(entry[4:], v.Count())
		if len(data) <= 4 {
			copy(entry[8:], make([]byte, 4))
			copy(entry[8:], data)
		} else {
			order.PutUint32(entry[8:], valueOffset+uint32(values.Len()))
			values.Write(data)
			if len(data)%2 == 1 {
				values.WriteByte(0)
			}
		}
		buf.Write(entry)
	}
	_ = binary.Write(buf, order, link)
	buf.Write(values.Bytes())
}
