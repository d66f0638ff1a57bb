package fileinfo

import (
	"mime"
	"path/filepath"
	"strings"
)

// Common MIME types for library file extensions
var commonMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".heif": "image/heif",
	".json": "application/json",
}

// IsImageFile checks if a file is an image based on its extension
func IsImageFile(filename string) bool {
	switch ext(filename) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".tiff", ".tif", ".bmp", ".heic", ".heif":
		return true
	default:
		return false
	}
}

// IsJPEGFile reports whether the extension denotes JPEG, the only container
// EXIF is written back to.
func IsJPEGFile(filename string) bool {
	switch ext(filename) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// ContentType returns the content type for a file based on its extension
func ContentType(filename string) string {
	e := ext(filename)
	if mimeType, ok := commonMimeTypes[e]; ok {
		return mimeType
	}
	if mimeType := mime.TypeByExtension(e); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
