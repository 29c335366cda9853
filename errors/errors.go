package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and status mapping.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryTransform  Category = "transform"
	CategoryMetadata   Category = "metadata"
	CategoryNotFound   Category = "notfound"
	CategoryStorage    Category = "storage"
	CategoryEngine     Category = "engine"
	CategoryEvent      Category = "event"
	CategoryConfig     Category = "config"
)

// Error is the structured error type used throughout the module.
type Error struct {
	Category Category
	Op       string // operation name, e.g. "ingest.validate"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error.
func New(category Category, op string, err error) *Error {
	return &Error{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.  Returns nil for a nil err.
// An already-categorised error keeps its original category.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		category = se.Category
	}
	return New(category, op, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Category == cat
	}
	return false
}

// IsNotFound reports whether err represents a missing entity.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound) || errors.Is(err, ErrNotFound)
}

// Sentinel errors for the stable failure kinds exposed at the boundary.
var (
	ErrEmptyPayload          = errors.New("empty image payload")
	ErrHashMismatch          = errors.New("identifier does not match checksum of payload")
	ErrUnsupportedMediaType  = errors.New("unsupported media type")
	ErrCorruptImage          = errors.New("corrupt or unreadable image data")
	ErrInvalidMetadata       = errors.New("invalid metadata document")
	ErrNotFound              = errors.New("not found")
	ErrTransformationFailed  = errors.New("transformation failed")
	ErrUnknownTransformation = errors.New("unknown transformation")
)

// HTTPStatus maps an error to the status class consumed by an HTTP-style
// external layer.  Validation, metadata and transformation failures are the
// client's fault; absence is 404; everything else is a backend failure.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return 200
	case IsNotFound(err):
		return 404
	case IsCategory(err, CategoryValidation),
		IsCategory(err, CategoryTransform),
		IsCategory(err, CategoryMetadata):
		return 400
	default:
		return 500
	}
}
