// Package listener provides the bus listeners shipped with the module: the
// storage/database dispatch bridge plus logging and metrics observers.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
	"github.com/dshelkov/imagestore/event"
)

// Stable event names consumed and produced by the bus, following the
// domain.entity.verb convention.
const (
	EventImageInsert    = "db.image.insert"
	EventImageDelete    = "db.image.delete"
	EventImageLoad      = "db.image.load"
	EventMetadataUpdate = "db.metadata.update"
	EventMetadataDelete = "db.metadata.delete"
	EventMetadataLoad   = "db.metadata.load"
)

// Events lists every event name the storage dispatch listener subscribes to.
var Events = []string{
	EventImageInsert,
	EventImageDelete,
	EventImageLoad,
	EventMetadataUpdate,
	EventMetadataDelete,
	EventMetadataLoad,
}

// StorageDispatch bridges bus events to the injected adapter pair.  It does
// no business logic beyond argument marshaling and error translation; its
// correctness rests on calling adapters with exactly the arguments the event
// context carries.
type StorageDispatch struct {
	storage  core.StorageAdapter
	metadata core.MetadataAdapter

	// FormatDate renders Last-Modified header values; defaults to the
	// RFC 7231 http-date format.
	FormatDate func(time.Time) string
}

// NewStorageDispatch returns a dispatch listener over the adapter pair.
func NewStorageDispatch(storage core.StorageAdapter, metadata core.MetadataAdapter) *StorageDispatch {
	return &StorageDispatch{
		storage:  storage,
		metadata: metadata,
		FormatDate: func(t time.Time) string {
			return t.UTC().Format(http.TimeFormat)
		},
	}
}

// Attach registers the dispatch handlers at default priority.
func (l *StorageDispatch) Attach(b *event.Bus) {
	b.Attach(EventImageInsert, 0, l.insertImage)
	b.Attach(EventImageDelete, 0, l.deleteImage)
	b.Attach(EventImageLoad, 0, l.loadImage)
	b.Attach(EventMetadataUpdate, 0, l.updateMetadata)
	b.Attach(EventMetadataDelete, 0, l.deleteMetadata)
	b.Attach(EventMetadataLoad, 0, l.loadMetadata)
}

func (l *StorageDispatch) insertImage(ctx context.Context, e *event.Context) error {
	return l.storage.InsertImage(ctx, e.Request.AccountKey, e.Request.ImageID, e.Response.Image)
}

func (l *StorageDispatch) deleteImage(ctx context.Context, e *event.Context) error {
	return l.storage.DeleteImage(ctx, e.Request.AccountKey, e.Request.ImageID)
}

func (l *StorageDispatch) loadImage(ctx context.Context, e *event.Context) error {
	return l.storage.Load(ctx, e.Request.AccountKey, e.Request.ImageID, e.Response.Image)
}

func (l *StorageDispatch) updateMetadata(ctx context.Context, e *event.Context) error {
	doc, err := parseFlatDocument(e.Request.Payload)
	if err != nil {
		return apperrors.New(apperrors.CategoryMetadata, "metadata.update",
			fmt.Errorf("%w: %v", apperrors.ErrInvalidMetadata, err))
	}
	return l.metadata.UpdateMetadata(ctx, e.Request.AccountKey, e.Request.ImageID, doc)
}

func (l *StorageDispatch) deleteMetadata(ctx context.Context, e *event.Context) error {
	return l.metadata.DeleteMetadata(ctx, e.Request.AccountKey, e.Request.ImageID)
}

func (l *StorageDispatch) loadMetadata(ctx context.Context, e *event.Context) error {
	doc, err := l.metadata.GetMetadata(ctx, e.Request.AccountKey, e.Request.ImageID)
	if err != nil {
		return err
	}
	e.Response.Metadata = doc

	lastMod, err := l.metadata.GetLastModified(ctx, e.Request.AccountKey, e.Request.ImageID)
	if err != nil {
		return err
	}
	e.Response.Headers.Set("Last-Modified", l.FormatDate(lastMod))
	return nil
}

// parseFlatDocument decodes payload as a flat JSON object of scalar values.
// Nested objects and arrays are rejected before the adapter is reached.
func parseFlatDocument(payload []byte) (map[string]string, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	doc := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("field %q is not a scalar", k)
		}
		doc[k] = fmt.Sprint(v)
	}
	return doc, nil
}
