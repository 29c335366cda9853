package listener_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshelkov/imagestore/adapters/storage"
	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
	"github.com/dshelkov/imagestore/event"
	"github.com/dshelkov/imagestore/listener"
)

func newDispatchBus(t *testing.T) (*event.Bus, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	bus := event.New()
	bus.Register(listener.NewStorageDispatch(mem, mem))
	return bus, mem
}

func insertTestImage(t *testing.T, bus *event.Bus, account, id string) {
	t.Helper()
	e := event.NewContext()
	e.Request.AccountKey = account
	e.Request.ImageID = id
	e.Response.Image = &core.Image{
		ID:         id,
		AccountKey: account,
		MediaType:  core.MediaTypePNG,
		Blob:       []byte("png-bytes"),
		Width:      10,
		Height:     10,
	}
	_, err := bus.Trigger(context.Background(), listener.EventImageInsert, e)
	require.NoError(t, err)
}

func TestStorageDispatch_SubscribesToAllEvents(t *testing.T) {
	bus, _ := newDispatchBus(t)
	for _, name := range listener.Events {
		assert.True(t, bus.Has(name), name)
	}
}

func TestStorageDispatch_InsertIsIdempotent(t *testing.T) {
	bus, mem := newDispatchBus(t)

	insertTestImage(t, bus, "acct", "id-1")
	insertTestImage(t, bus, "acct", "id-1")

	assert.Equal(t, 1, mem.ImageCount(), "re-inserting the same identifier is a no-op")
}

func TestStorageDispatch_LoadPopulatesResponseImage(t *testing.T) {
	bus, _ := newDispatchBus(t)
	insertTestImage(t, bus, "acct", "id-1")

	e := event.NewContext()
	e.Request.AccountKey = "acct"
	e.Request.ImageID = "id-1"

	_, err := bus.Trigger(context.Background(), listener.EventImageLoad, e)
	require.NoError(t, err)
	assert.Equal(t, "id-1", e.Response.Image.ID)
	assert.Equal(t, []byte("png-bytes"), e.Response.Image.Blob)
}

func TestStorageDispatch_DeleteMissingImage(t *testing.T) {
	bus, _ := newDispatchBus(t)

	e := event.NewContext()
	e.Request.AccountKey = "acct"
	e.Request.ImageID = "nope"

	_, err := bus.Trigger(context.Background(), listener.EventImageDelete, e)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestStorageDispatch_UpdateMetadataRejectsMalformedJSON(t *testing.T) {
	bus, _ := newDispatchBus(t)
	insertTestImage(t, bus, "acct", "id-1")

	e := event.NewContext()
	e.Request.AccountKey = "acct"
	e.Request.ImageID = "id-1"
	e.Request.Payload = []byte(`{`)

	_, err := bus.Trigger(context.Background(), listener.EventMetadataUpdate, e)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMetadata)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryMetadata))
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
}

func TestStorageDispatch_UpdateMetadataRejectsNestedValues(t *testing.T) {
	bus, _ := newDispatchBus(t)
	insertTestImage(t, bus, "acct", "id-1")

	e := event.NewContext()
	e.Request.AccountKey = "acct"
	e.Request.ImageID = "id-1"
	e.Request.Payload = []byte(`{"tags": ["a", "b"]}`)

	_, err := bus.Trigger(context.Background(), listener.EventMetadataUpdate, e)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMetadata)
}

func TestStorageDispatch_MetadataRoundTrip(t *testing.T) {
	bus, _ := newDispatchBus(t)
	insertTestImage(t, bus, "acct", "id-1")

	update := event.NewContext()
	update.Request.AccountKey = "acct"
	update.Request.ImageID = "id-1"
	update.Request.Payload = []byte(`{"title": "sunset", "rating": 5}`)
	_, err := bus.Trigger(context.Background(), listener.EventMetadataUpdate, update)
	require.NoError(t, err)

	load := event.NewContext()
	load.Request.AccountKey = "acct"
	load.Request.ImageID = "id-1"
	_, err = bus.Trigger(context.Background(), listener.EventMetadataLoad, load)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"title": "sunset", "rating": "5"}, load.Response.Metadata)

	lastMod := load.Response.Headers.Get("Last-Modified")
	require.NotEmpty(t, lastMod)
	parsed, err := http.ParseTime(lastMod)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}
