package core

import (
	"context"
	"time"
)

// Engine is the image backend consumed by ingestion and the transformation
// chain.  Implementations live in adapters/engine/.
type Engine interface {
	// Probe extracts geometry and media type from encoded bytes by reading
	// only the header; it must not require a full pixel decode.
	Probe(b []byte) (*ImageInfo, error)

	// Load decodes b into an EngineImage.  When target is non-zero and
	// smaller than the native size, implementations decode at (or downsample
	// to) approximately the target size.
	Load(ctx context.Context, b []byte, target Size) (EngineImage, error)

	// NewCanvas creates a blank image of the given size filled with the
	// background colour (any engine-recognised notation, e.g. "#ffffff"),
	// carrying the given media type and colour space.
	NewCanvas(size Size, bg string, mediaType MediaType, cs ColorSpace) (EngineImage, error)
}

// EngineImage is an opaque handle over one decoded image.  Handles are not
// safe for concurrent use; ownership belongs to the request that loaded or
// cloned them, and Release must be called on every handle exactly once.
type EngineImage interface {
	Size() Size
	MediaType() MediaType
	ColorSpace() ColorSpace

	// Clone returns an independent copy; the caller owns it exclusively.
	Clone() (EngineImage, error)

	// Crop reduces the image in place to the given rectangle.
	Crop(x, y, width, height int) error

	// Resize scales the image in place to the given dimensions.
	Resize(width, height int) error

	// Composite draws src onto this image at (x, y) with overwrite semantics.
	Composite(src EngineImage, x, y int) error

	// ToColorSpace converts the pixel data to the given colour space in place.
	ToColorSpace(cs ColorSpace) error

	// Export serialises the current pixel data in the image's media type.
	Export(ctx context.Context) ([]byte, error)

	Release()
}

// StorageAdapter persists image payloads.  Implementations must be safe for
// concurrent use and synchronise internally against the backing store.
type StorageAdapter interface {
	// InsertImage stores img under (accountKey, imageID).  Re-inserting the
	// same pair with byte-identical content must succeed without duplication;
	// content-addressing guarantees byte identity whenever the ID matches.
	InsertImage(ctx context.Context, accountKey, imageID string, img *Image) error

	// DeleteImage removes the stored image, or reports NotFound.
	DeleteImage(ctx context.Context, accountKey, imageID string) error

	// Load populates img in place from the stored entity, or reports NotFound.
	Load(ctx context.Context, accountKey, imageID string, img *Image) error
}

// MetadataAdapter persists the key/value document attached to an image,
// versioned independently from the image blob.
type MetadataAdapter interface {
	UpdateMetadata(ctx context.Context, accountKey, imageID string, doc map[string]string) error
	DeleteMetadata(ctx context.Context, accountKey, imageID string) error
	GetMetadata(ctx context.Context, accountKey, imageID string) (map[string]string, error)

	// GetLastModified returns the time of the most recent image or metadata
	// write for the pair, used for cache-validation headers.
	GetLastModified(ctx context.Context, accountKey, imageID string) (time.Time, error)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}
