package core

import "time"

// MediaType identifies an image codec by its MIME type.
type MediaType string

const (
	MediaTypeJPEG    MediaType = "image/jpeg"
	MediaTypePNG     MediaType = "image/png"
	MediaTypeGIF     MediaType = "image/gif"
	MediaTypeWebP    MediaType = "image/webp"
	MediaTypeUnknown MediaType = "application/octet-stream"
)

// Extension returns the canonical file extension for the media type, without
// a leading dot.  Unknown media types return an empty string.
func (m MediaType) Extension() string {
	switch m {
	case MediaTypeJPEG:
		return "jpg"
	case MediaTypePNG:
		return "png"
	case MediaTypeGIF:
		return "gif"
	case MediaTypeWebP:
		return "webp"
	}
	return ""
}

// ColorSpace represents the image colour model.
type ColorSpace string

const (
	ColorSpaceRGB  ColorSpace = "rgb"
	ColorSpaceRGBA ColorSpace = "rgba"
	ColorSpaceCMYK ColorSpace = "cmyk"
	ColorSpaceGray ColorSpace = "gray"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether both axes are unset.
func (s Size) IsZero() bool { return s.Width == 0 && s.Height == 0 }

// FitsWithin reports whether s fits inside o on both axes.
func (s Size) FitsWithin(o Size) bool {
	return s.Width <= o.Width && s.Height <= o.Height
}

// ImageInfo is the result of a header-only geometry probe.
type ImageInfo struct {
	MediaType MediaType
	Width     int
	Height    int
}

// Image is the in-memory image entity.  ID is the sha-256 checksum of the
// payload in lowercase hex; identifier equality implies byte equality.
// Blob is present only during ingestion and short-lived processing; adapters
// must not rely on it being retained after persistence.
type Image struct {
	ID         string
	AccountKey string
	MediaType  MediaType
	Extension  string
	Size       int64
	Width      int
	Height     int
	Blob       []byte

	// Transformed is set once any transformation has mutated the image's
	// dimensions or content within the current request.
	Transformed bool

	AddedAt   time.Time
	UpdatedAt time.Time
}

// NativeSize returns the recorded pixel dimensions.
func (i *Image) NativeSize() Size { return Size{Width: i.Width, Height: i.Height} }
