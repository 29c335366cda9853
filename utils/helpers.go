package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dshelkov/imagestore/core"
)

// DetectMediaType sniffs the leading bytes of data and returns the image
// media type.  Detection is content-based; client-supplied content-type
// headers are never consulted.
func DetectMediaType(data []byte) core.MediaType {
	if len(data) < 4 {
		return core.MediaTypeUnknown
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return core.MediaTypeJPEG
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return core.MediaTypePNG
	}
	// GIF: GIF87a / GIF89a
	if len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F' && data[3] == '8' &&
		(data[4] == '7' || data[4] == '9') && data[5] == 'a' {
		return core.MediaTypeGIF
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return core.MediaTypeWebP
	}
	// Fallback to net/http sniffing.
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return core.MediaTypeJPEG
	case "image/png":
		return core.MediaTypePNG
	case "image/gif":
		return core.MediaTypeGIF
	case "image/webp":
		return core.MediaTypeWebP
	}
	return core.MediaTypeUnknown
}

// ScaleDimensions computes output (w, h) preserving aspect ratio.
// Pass 0 for either axis to calculate it from the other.
func ScaleDimensions(srcW, srcH, targetW, targetH int) (int, int) {
	if targetW == 0 && targetH == 0 {
		return srcW, srcH
	}
	if targetW == 0 {
		ratio := float64(targetH) / float64(srcH)
		return int(float64(srcW) * ratio), targetH
	}
	if targetH == 0 {
		ratio := float64(targetW) / float64(srcW)
		return targetW, int(float64(srcH) * ratio)
	}
	return targetW, targetH
}

// ParseHexColor normalises a colour given as "#rgb" or "#rrggbb" (the hash is
// optional, case is ignored) into its 8-bit channel values.
func ParseHexColor(s string) (r, g, b uint8, err error) {
	hex := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return 0, 0, 0, fmt.Errorf("invalid colour notation %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid colour notation %q", s)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
