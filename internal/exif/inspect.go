package exif

import (
	"bytes"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Field is one named tag as reported by Inspect.
type Field struct {
	Name  string
	Value string
}

type fieldWalker struct {
	fields *[]Field
}

func (w fieldWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	*w.fields = append(*w.fields, Field{Name: string(name), Value: strings.TrimSpace(val)})
	return nil
}

// Inspect lists every named EXIF field in image, sorted by name.
func Inspect(image []byte) ([]Field, error) {
	raw, err := tiffBlock(image)
	if err != nil {
		return nil, err
	}
	if err := checkTIFF(raw); err != nil {
		return nil, err
	}
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, err
	}
	var fields []Field
	if err := x.Walk(fieldWalker{fields: &fields}); err != nil {
		return nil, err
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, nil
}
