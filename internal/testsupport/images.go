package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bstardust/memorable/internal/exif"
)

// MinimalJPEG returns a structurally valid JPEG stream: SOI, a JFIF APP0, a
// stub scan and EOI. It carries no EXIF block.
func MinimalJPEG() []byte {
	return []byte{
		0xFF, 0xD8,
		0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
		0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3F, 0x00,
		0x12, 0x34, 0x56, 0x78, 0xFF, 0x00, 0x9A,
		0xFF, 0xD9,
	}
}

// WriteJPEG writes a JPEG carrying f to dir/name, creating parent
// directories, and returns its path.
func WriteJPEG(t testing.TB, dir, name string, f exif.Fields) string {
	t.Helper()

	data, err := exif.Encode(MinimalJPEG(), f)
	if err != nil {
		t.Fatalf("exif.Encode: %v", err)
	}
	return WriteFile(t, dir, name, data)
}

// WriteFile writes data to dir/name, creating parent directories, and
// returns its path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
