// Package imaging provides image format detection from magic bytes,
// cheap dimension probing, and thumbnail generation for page images.
package imaging

import (
	"bytes"
	"strings"
)

// Format identifies an image container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatWebP
	FormatBMP
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	case FormatWebP:
		return "webp"
	case FormatBMP:
		return "bmp"
	default:
		return "unknown"
	}
}

// MediaType returns the MIME type for the format, or
// "application/octet-stream" for unknown.
func (f Format) MediaType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the canonical file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatGIF:
		return ".gif"
	case FormatWebP:
		return ".webp"
	case FormatBMP:
		return ".bmp"
	default:
		return ""
	}
}

var (
	sigPNG  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	sigJPEG = []byte{0xFF, 0xD8, 0xFF}
	sigGIF7 = []byte("GIF87a")
	sigGIF9 = []byte("GIF89a")
	sigRIFF = []byte("RIFF")
	sigWEBP = []byte("WEBP")
	sigBMP  = []byte("BM")
)

// DetectFormat sniffs the image format from leading magic bytes. File
// extensions are ignored on purpose: archives regularly mislabel pages.
func DetectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, sigPNG):
		return FormatPNG
	case bytes.HasPrefix(data, sigJPEG):
		return FormatJPEG
	case bytes.HasPrefix(data, sigGIF7), bytes.HasPrefix(data, sigGIF9):
		return FormatGIF
	case len(data) >= 12 && bytes.HasPrefix(data, sigRIFF) && bytes.Equal(data[8:12], sigWEBP):
		return FormatWebP
	case bytes.HasPrefix(data, sigBMP):
		return FormatBMP
	default:
		return FormatUnknown
	}
}

// imageExtensions is the set of file extensions recognized as page
// images when listing archive entries.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
}

// IsImageExtension reports whether ext (with or without leading dot,
// any case) names a recognized image type.
func IsImageExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	_, ok := imageExtensions[ext]
	return ok
}
