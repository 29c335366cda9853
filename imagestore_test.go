package imagestore_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imagestore "github.com/dshelkov/imagestore"
	"github.com/dshelkov/imagestore/adapters/engine/std"
	"github.com/dshelkov/imagestore/adapters/storage"
	"github.com/dshelkov/imagestore/config"
	apperrors "github.com/dshelkov/imagestore/errors"
	"github.com/dshelkov/imagestore/listener"
)

func newTestService(t *testing.T) (*imagestore.Service, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return imagestore.New(imagestore.DefaultConfig(), std.New(), mem, mem), mem
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestService_AddAndGetImage(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	payload := testPNG(t, 200, 100)
	id := imagestore.Checksum(payload)

	added, err := svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)
	assert.Equal(t, id, added.ID)
	assert.Equal(t, 200, added.Width)
	assert.Equal(t, 100, added.Height)
	assert.Nil(t, added.Blob, "the caller gets the entity, not the payload back")
	assert.Equal(t, 1, mem.ImageCount())

	got, err := svc.GetImage(ctx, "acct", id)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Blob)
	assert.False(t, got.Transformed)
}

func TestService_AddImage_HashMismatch(t *testing.T) {
	svc, mem := newTestService(t)
	payload := testPNG(t, 10, 10)

	_, err := svc.AddImage(context.Background(), "acct", strings.Repeat("a", 64), payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrHashMismatch)
	assert.Equal(t, 0, mem.ImageCount(), "nothing is persisted on validation failure")
}

func TestService_AddImage_Idempotent(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	payload := testPNG(t, 10, 10)
	id := imagestore.Checksum(payload)

	_, err := svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)
	_, err = svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.ImageCount())
}

func TestService_AddImageFromReader(t *testing.T) {
	svc, _ := newTestService(t)
	payload := testPNG(t, 32, 32)
	id := imagestore.Checksum(payload)

	added, err := svc.AddImageFromReader(context.Background(), "acct", id, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, id, added.ID)
}

func TestService_GetImage_WithTransformations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	payload := testPNG(t, 200, 100)
	id := imagestore.Checksum(payload)

	_, err := svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)

	got, err := svc.GetImage(ctx, "acct", id,
		imagestore.Resize(100, 0),
		imagestore.Desaturate(),
	)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Width)
	assert.Equal(t, 50, got.Height)
	assert.True(t, got.Transformed)
	assert.NotEmpty(t, got.Blob)

	// The stored original is untouched by rendition requests.
	again, err := svc.GetImage(ctx, "acct", id)
	require.NoError(t, err)
	assert.Equal(t, 200, again.Width)
	assert.False(t, again.Transformed)
}

func TestService_GetImage_CanvasRendition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	payload := testPNG(t, 100, 50)
	id := imagestore.Checksum(payload)

	_, err := svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)

	got, err := svc.GetImage(ctx, "acct", id, imagestore.Canvas(map[string]string{
		"width": "200", "height": "200", "mode": "center", "bg": "#000000",
	}))
	require.NoError(t, err)
	assert.Equal(t, 200, got.Width)
	assert.Equal(t, 200, got.Height)
}

func TestService_GetImage_ChainedTransformations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	payload := testPNG(t, 10, 10)
	id := imagestore.Checksum(payload)

	_, err := svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)

	_, err = svc.GetImage(ctx, "acct", id, imagestore.Canvas(nil), imagestore.Crop(0, 0, 5, 5))
	require.NoError(t, err)

	_, err = svc.GetImage(ctx, "acct", id,
		imagestore.Resize(5, 0),
		imagestore.Crop(0, 0, 5, 5),
	)
	require.NoError(t, err)
}

func TestService_DeleteImage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	payload := testPNG(t, 10, 10)
	id := imagestore.Checksum(payload)

	_, err := svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteImage(ctx, "acct", id))

	_, err = svc.GetImage(ctx, "acct", id)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

func TestService_DeleteImage_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.DeleteImage(context.Background(), "acct", "no-such-id")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_MetadataFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	payload := testPNG(t, 10, 10)
	id := imagestore.Checksum(payload)

	_, err := svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateMetadata(ctx, "acct", id, []byte(`{"title": "sunset", "rating": 5}`)))

	doc, headers, err := svc.GetMetadata(ctx, "acct", id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "sunset", "rating": "5"}, doc)
	assert.NotEmpty(t, headers.Get("Last-Modified"))

	err = svc.UpdateMetadata(ctx, "acct", id, []byte(`{"nested": {"no": true}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidMetadata)

	require.NoError(t, svc.DeleteMetadata(ctx, "acct", id))
	_, _, err = svc.GetMetadata(ctx, "acct", id)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_ObserversDoNotChangeResults(t *testing.T) {
	mem := storage.NewMemory()
	svc := imagestore.New(imagestore.DefaultConfig(), std.New(), mem, mem)
	metrics := listener.NewEventMetrics()
	svc.Bus().Register(metrics)

	ctx := context.Background()
	payload := testPNG(t, 10, 10)
	id := imagestore.Checksum(payload)

	_, err := svc.AddImage(ctx, "acct", id, payload)
	require.NoError(t, err)
	_, err = svc.GetImage(ctx, "acct", id)
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap[listener.EventImageInsert])
	assert.Equal(t, int64(1), snap[listener.EventImageLoad])
}

func TestNewFromConfig_Backends(t *testing.T) {
	cfg := config.Default()
	svc, err := imagestore.NewFromConfig(cfg)
	require.NoError(t, err)
	assert.NotNil(t, svc.Bus())

	cfg.Storage = config.StorageLocal
	cfg.Local.RootDir = t.TempDir()
	_, err = imagestore.NewFromConfig(cfg)
	require.NoError(t, err)

	cfg.Storage = "nope"
	_, err = imagestore.NewFromConfig(cfg)
	assert.Error(t, err)
}

func TestNewFromConfig_LocalPermissions(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.StorageLocal
	cfg.Local.RootDir = t.TempDir()
	cfg.Local.Permissions = 0o600

	svc, err := imagestore.NewFromConfig(cfg)
	require.NoError(t, err)

	payload := testPNG(t, 10, 10)
	id := imagestore.Checksum(payload)
	_, err = svc.AddImage(context.Background(), "acct", id, payload)
	require.NoError(t, err)

	var checked int
	err = filepath.WalkDir(cfg.Local.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm(), path)
		checked++
		return nil
	})
	require.NoError(t, err)
	assert.Positive(t, checked, "the blob and entity files must exist")
}

func TestService_BuiltinTransformationsRegistered(t *testing.T) {
	svc, _ := newTestService(t)
	reg := svc.Registry()
	for _, name := range []string{"resize", "crop", "canvas", "desaturate"} {
		_, ok := reg.Get(name)
		assert.True(t, ok, name)
	}
}
