package exif

import (
	"encoding/binary"
	"fmt"
)

// checkTIFF walks every directory the tiff decoder will visit and rejects
// blocks whose entries point outside raw. The decoder multiplies counts in
// uint32, so an oversized count can wrap and pass its own length check.
func checkTIFF(raw []byte) error {
	if len(raw) < 8 {
		return fmt.Errorf("exif: tiff block of %d bytes is too short", len(raw))
	}
	var order binary.ByteOrder
	switch string(raw[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return fmt.Errorf("exif: unknown byte order %q", raw[:2])
	}
	if order.Uint16(raw[2:]) != 42 {
		return fmt.Errorf("exif: missing tiff marker")
	}

	c := checker{raw: raw, order: order, seen: make(map[uint32]bool)}
	offset := order.Uint32(raw[4:])
	first := true
	for offset != 0 {
		next, ptrs, err := c.dir(offset)
		if err != nil {
			return err
		}
		if first {
			if p, ok := ptrs[TagExifIFDPointer]; ok {
				_, sub, err := c.dir(p)
				if err != nil {
					return fmt.Errorf("exif ifd: %w", err)
				}
				if p, ok := sub[TagInteropPointer]; ok {
					if _, _, err := c.dir(p); err != nil {
						return fmt.Errorf("interop ifd: %w", err)
					}
				}
			}
			if p, ok := ptrs[TagGPSIFDPointer]; ok {
				if _, _, err := c.dir(p); err != nil {
					return fmt.Errorf("gps ifd: %w", err)
				}
			}
			first = false
		}
		offset = next
	}
	return nil
}

type checker struct {
	raw   []byte
	order binary.ByteOrder
	seen  map[uint32]bool
}

// dir checks one directory and returns the offset of the next one along with
// any sub-directory pointers it holds.
func (c checker) dir(offset uint32) (uint32, map[uint16]uint32, error) {
	size := uint64(len(c.raw))
	if c.seen[offset] {
		return 0, nil, fmt.Errorf("exif: ifd at %d is referenced twice", offset)
	}
	c.seen[offset] = true
	if uint64(offset)+2 > size {
		return 0, nil, fmt.Errorf("exif: ifd offset %d out of range", offset)
	}

	// The decoder reads the entry count as a signed value.
	n := int16(c.order.Uint16(c.raw[offset:]))
	if n < 0 {
		n = 0
	}
	end := uint64(offset) + 2 + 12*uint64(n)
	if end+4 > size {
		return 0, nil, fmt.Errorf("exif: %d entries at %d overrun the block", n, offset)
	}

	ptrs := make(map[uint16]uint32)
	for i := uint64(0); i < uint64(n); i++ {
		e := c.raw[uint64(offset)+2+12*i:]
		tag := c.order.Uint16(e)
		typ := DataType(c.order.Uint16(e[2:]))
		count := c.order.Uint32(e[4:])

		elem := elementSize(typ)
		if elem == 0 {
			// The decoder rejects unknown types with an error of its own.
			continue
		}
		length := uint64(elem) * uint64(count)
		value := e[8:12]
		if length > 4 {
			at := uint64(c.order.Uint32(e[8:]))
			if at+length > size {
				return 0, nil, fmt.Errorf("exif: tag 0x%04X value of %d bytes at %d out of range", tag, length, at)
			}
			value = c.raw[at : at+length]
		}

		switch tag {
		case TagExifIFDPointer, TagGPSIFDPointer, TagInteropPointer:
			switch {
			case typ == TypeLong && count > 0:
				ptrs[tag] = c.order.Uint32(value)
			case typ == TypeShort && count > 0:
				ptrs[tag] = uint32(c.order.Uint16(value))
			}
		}
	}
	return c.order.Uint32(c.raw[end:]), ptrs, nil
}
