// Package ingest validates uploaded image payloads and establishes the
// content-addressing invariant: an image's identifier is the checksum of its
// bytes, so identifier equality implies content equality.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
	"github.com/dshelkov/imagestore/utils"
)

// Checksum returns the content identifier for a payload: its sha-256 digest
// in lowercase hex.
func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Ingestor validates raw uploads and produces populated Image entities ready
// for the event bus to dispatch.  It persists nothing itself.
type Ingestor struct {
	engine   core.Engine
	maxBytes int64
	accepted map[core.MediaType]bool
}

// New returns an Ingestor probing geometry through eng.  maxBytes bounds
// reader-based ingestion; zero means unlimited.
func New(eng core.Engine, maxBytes int64) *Ingestor {
	return &Ingestor{
		engine:   eng,
		maxBytes: maxBytes,
		accepted: map[core.MediaType]bool{
			core.MediaTypeJPEG: true,
			core.MediaTypePNG:  true,
			core.MediaTypeGIF:  true,
			core.MediaTypeWebP: true,
		},
	}
}

// Ingest validates payload against the claimed identifier and returns a
// populated in-memory Image.  Nothing is persisted.
func (in *Ingestor) Ingest(ctx context.Context, accountKey, claimedID string, payload []byte) (*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryValidation, "ingest", err)
	}
	if len(payload) == 0 {
		return nil, apperrors.New(apperrors.CategoryValidation, "ingest", apperrors.ErrEmptyPayload)
	}

	actual := Checksum(payload)
	if actual != claimedID {
		// Never silently corrected: storing under a false identifier would
		// break the content-addressable guarantee.
		return nil, apperrors.New(apperrors.CategoryValidation, "ingest",
			fmt.Errorf("%w: got %s", apperrors.ErrHashMismatch, actual))
	}

	mediaType := utils.DetectMediaType(payload)
	if !in.accepted[mediaType] {
		return nil, apperrors.New(apperrors.CategoryValidation, "ingest",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedMediaType, mediaType))
	}

	info, err := in.engine.Probe(payload)
	if err != nil {
		return nil, apperrors.New(apperrors.CategoryValidation, "ingest",
			fmt.Errorf("%w: %v", apperrors.ErrCorruptImage, err))
	}

	now := time.Now().UTC()
	return &core.Image{
		ID:         actual,
		AccountKey: accountKey,
		MediaType:  mediaType,
		Extension:  mediaType.Extension(),
		Size:       int64(len(payload)),
		Width:      info.Width,
		Height:     info.Height,
		Blob:       payload,
		AddedAt:    now,
		UpdatedAt:  now,
	}, nil
}

// IngestReader drains r (bounded by the configured byte limit) and ingests
// the result.
func (in *Ingestor) IngestReader(ctx context.Context, accountKey, claimedID string, r io.Reader) (*core.Image, error) {
	if in.maxBytes > 0 {
		r = &utils.LimitedReader{R: r, Max: in.maxBytes}
	}
	buf, err := utils.DrainReader(ctx, r, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryValidation, "ingest.read", err)
	}
	payload := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return in.Ingest(ctx, accountKey, claimedID, payload)
}
