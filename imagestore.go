// Package imagestore is a content-addressable image storage and
// transformation core: uploads are identified by the checksum of their bytes,
// persistence is dispatched over an ordered event bus to pluggable adapters,
// and renditions are produced by a transformation chain that resolves the
// minimum decode size before touching pixel data.
package imagestore

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/dshelkov/imagestore/adapters/engine/std"
	enginevips "github.com/dshelkov/imagestore/adapters/engine/vips"
	"github.com/dshelkov/imagestore/adapters/storage"
	"github.com/dshelkov/imagestore/config"
	"github.com/dshelkov/imagestore/core"
	"github.com/dshelkov/imagestore/event"
	"github.com/dshelkov/imagestore/ingest"
	"github.com/dshelkov/imagestore/listener"
	"github.com/dshelkov/imagestore/transform"
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Checksum returns the content identifier for a payload.
func Checksum(b []byte) string { return ingest.Checksum(b) }

// Service is the primary entry point.  It owns the event bus, the
// transformation registry, and the ingestion pipeline; storage and engine
// backends are injected.  Safe for concurrent use across requests.
type Service struct {
	cfg      config.Config
	bus      *event.Bus
	engine   core.Engine
	chain    *transform.Chain
	ingestor *ingest.Ingestor
}

// New creates a fully wired Service with the built-in transformations
// registered and the storage dispatch listener attached.
func New(cfg config.Config, eng core.Engine, store core.StorageAdapter, meta core.MetadataAdapter) *Service {
	reg := transform.NewRegistry()
	reg.Register(transform.NewCanvas())
	reg.Register(&transform.Resize{})
	reg.Register(&transform.Crop{})
	reg.Register(&transform.Desaturate{})

	bus := event.New()
	bus.Register(listener.NewStorageDispatch(store, meta))

	return &Service{
		cfg:      cfg,
		bus:      bus,
		engine:   eng,
		chain:    transform.NewChain(reg, eng),
		ingestor: ingest.New(eng, cfg.MaxImageBytes),
	}
}

// NewFromConfig builds the engine and adapter pair described by cfg and
// returns a wired Service.
func NewFromConfig(cfg config.Config) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	var eng core.Engine
	switch cfg.Engine {
	case config.EngineVips:
		eng = enginevips.New(enginevips.Config{DefaultQuality: cfg.DefaultQuality})
	default:
		eng = &std.Engine{JPEGQuality: cfg.DefaultQuality}
	}

	var (
		store core.StorageAdapter
		meta  core.MetadataAdapter
	)
	switch cfg.Storage {
	case config.StorageLocal:
		local, err := storage.NewLocal(cfg.Local.RootDir, os.FileMode(cfg.Local.Permissions))
		if err != nil {
			return nil, err
		}
		store, meta = local, local
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		r := storage.NewRedis(client, cfg.Redis.KeyPrefix)
		store, meta = r, r
	default:
		mem := storage.NewMemory()
		store, meta = mem, mem
	}

	return New(cfg, eng, store, meta), nil
}

// Bus returns the underlying event bus so callers can attach custom
// listeners at configuration time.
func (s *Service) Bus() *event.Bus { return s.bus }

// Registry returns the transformation registry so callers can register
// custom transformations after construction.
func (s *Service) Registry() *transform.Registry { return s.chain.Registry() }

// SetLogger attaches an event-logging listener backed by l.
func (s *Service) SetLogger(l core.Logger) {
	s.bus.Register(listener.NewEventLogger(l))
}

// AddImage validates payload against the claimed identifier, dispatches the
// insert event, and returns the stored entity.  The raw payload is not
// retained on the returned Image after persistence.
func (s *Service) AddImage(ctx context.Context, accountKey, imageID string, payload []byte) (*core.Image, error) {
	img, err := s.ingestor.Ingest(ctx, accountKey, imageID, payload)
	if err != nil {
		return nil, err
	}

	e := event.NewContext()
	e.Request.AccountKey = accountKey
	e.Request.ImageID = img.ID
	e.Request.Payload = payload
	e.Response.Image = img

	if _, err := s.bus.Trigger(ctx, listener.EventImageInsert, e); err != nil {
		return nil, err
	}
	img.Blob = nil
	return img, nil
}

// AddImageFromReader drains r (bounded by the configured byte limit) and
// ingests the result as AddImage does.
func (s *Service) AddImageFromReader(ctx context.Context, accountKey, imageID string, r io.Reader) (*core.Image, error) {
	img, err := s.ingestor.IngestReader(ctx, accountKey, imageID, r)
	if err != nil {
		return nil, err
	}

	e := event.NewContext()
	e.Request.AccountKey = accountKey
	e.Request.ImageID = img.ID
	e.Request.Payload = img.Blob
	e.Response.Image = img

	if _, err := s.bus.Trigger(ctx, listener.EventImageInsert, e); err != nil {
		return nil, err
	}
	img.Blob = nil
	return img, nil
}

// GetImage loads an image and applies the requested transformation chain, if
// any.  The returned Image carries the rendition bytes in Blob and reflects
// the final dimensions.
func (s *Service) GetImage(ctx context.Context, accountKey, imageID string, specs ...transform.Spec) (*core.Image, error) {
	e := event.NewContext()
	e.Request.AccountKey = accountKey
	e.Request.ImageID = imageID
	e.Request.Transformations = specs

	if _, err := s.bus.Trigger(ctx, listener.EventImageLoad, e); err != nil {
		return nil, err
	}

	img := e.Response.Image
	if len(specs) > 0 {
		if err := s.chain.Run(ctx, img, specs); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// DeleteImage removes the stored image.
func (s *Service) DeleteImage(ctx context.Context, accountKey, imageID string) error {
	e := event.NewContext()
	e.Request.AccountKey = accountKey
	e.Request.ImageID = imageID
	_, err := s.bus.Trigger(ctx, listener.EventImageDelete, e)
	return err
}

// UpdateMetadata merges the flat JSON document in payload into the image's
// metadata.
func (s *Service) UpdateMetadata(ctx context.Context, accountKey, imageID string, payload []byte) error {
	e := event.NewContext()
	e.Request.AccountKey = accountKey
	e.Request.ImageID = imageID
	e.Request.Payload = payload
	_, err := s.bus.Trigger(ctx, listener.EventMetadataUpdate, e)
	return err
}

// DeleteMetadata removes the image's metadata document.
func (s *Service) DeleteMetadata(ctx context.Context, accountKey, imageID string) error {
	e := event.NewContext()
	e.Request.AccountKey = accountKey
	e.Request.ImageID = imageID
	_, err := s.bus.Trigger(ctx, listener.EventMetadataDelete, e)
	return err
}

// GetMetadata returns the metadata document together with the response
// headers produced by the listeners (notably Last-Modified, for
// cache-validation use by an HTTP layer).
func (s *Service) GetMetadata(ctx context.Context, accountKey, imageID string) (map[string]string, http.Header, error) {
	e := event.NewContext()
	e.Request.AccountKey = accountKey
	e.Request.ImageID = imageID

	if _, err := s.bus.Trigger(ctx, listener.EventMetadataLoad, e); err != nil {
		return nil, nil, err
	}
	return e.Response.Metadata, e.Response.Headers, nil
}

// ── Transformation spec constructors ──────────────────────────────────────────

// Resize returns a resize spec.  Pass 0 for one axis to preserve aspect ratio.
func Resize(width, height int) transform.Spec {
	return transform.NewSpec("resize", map[string]string{
		"width":  strconv.Itoa(width),
		"height": strconv.Itoa(height),
	})
}

// Crop returns a crop spec for an absolute pixel rectangle.
func Crop(x, y, width, height int) transform.Spec {
	return transform.NewSpec("crop", map[string]string{
		"x":      strconv.Itoa(x),
		"y":      strconv.Itoa(y),
		"width":  strconv.Itoa(width),
		"height": strconv.Itoa(height),
	})
}

// Canvas returns a canvas spec with the given raw parameters.
func Canvas(params map[string]string) transform.Spec {
	return transform.NewSpec("canvas", params)
}

// Desaturate returns a grayscale conversion spec.
func Desaturate() transform.Spec {
	return transform.NewSpec("desaturate", nil)
}
