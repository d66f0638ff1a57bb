package exif

import (
	"testing"

	"github.com/bstardust/memorable/pkg/common"
)

func fuzzSeeds(f *testing.F) {
	f.Helper()
	f.Add(fakeJPEG())
	f.Add(fakeJPEG(segment{marker: markerAPP1, data: []byte("Exif\x00\x00II*\x00\x08\x00\x00\x00")}))
	encoded, err := Encode(fakeJPEG(), sampleFields())
	if err != nil {
		f.Fatal(err)
	}
	f.Add(encoded)
	withThumb := NewData()
	withThumb.Set(GroupImage, TagMake, ASCII("Canon"))
	withThumb.Set(GroupFirst, TagOrientation, Shorts{1})
	withThumb.Thumbnail = []byte{0xFF, markerSOI, 0xFF, markerEOI}
	payload, err := Dump(withThumb)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(payload[len(exifHeader):])
}

func FuzzDecode(f *testing.F) {
	fuzzSeeds(f)
	f.Fuzz(func(t *testing.T, image []byte) {
		Decode(image)
		_, _ = Inspect(image)
	})
}

func FuzzEncode(f *testing.F) {
	fuzzSeeds(f)
	f.Fuzz(func(t *testing.T, image []byte) {
		out, err := Encode(image, Fields{CameraMake: ptr("Canon"), ISO: ptr(200)})
		if err != nil {
			if kind := common.KindOf(err); kind == "" || kind == "Unknown" {
				t.Fatalf("untyped error %q", err)
			}
			return
		}
		if !IsJPEG(out) {
			t.Fatalf("output is not a jpeg stream")
		}
		rec := Decode(out)
		if rec.CameraMake == nil || *rec.CameraMake != "Canon" {
			t.Fatalf("make not readable after encode: %+v", rec.CameraMake)
		}
	})
}
