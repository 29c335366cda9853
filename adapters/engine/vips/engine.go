// Package vips provides a libvips-backed core.Engine via govips.
package vips

import (
	"context"
	"fmt"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
	"github.com/dshelkov/imagestore/utils"
)

// Config configures the libvips backend.
type Config struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Engine is a libvips-powered core.Engine.  Safe for concurrent use across
// goroutines; individual handles are not.
type Engine struct {
	cfg Config
}

// New initialises libvips and returns a ready Engine.  Call Shutdown() when
// the process exits.
func New(cfg Config) *Engine {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Engine{cfg: cfg}
}

// Shutdown releases all libvips resources.  Call once at process exit.
func (e *Engine) Shutdown() {
	govips.Shutdown()
}

// Probe extracts geometry and media type; libvips reads only the header
// until pixel data is demanded.
func (e *Engine) Probe(b []byte) (*core.ImageInfo, error) {
	ref, err := govips.NewImageFromBuffer(b)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.probe", err)
	}
	defer ref.Close()

	return &core.ImageInfo{
		MediaType: mediaTypeFor(ref.Format()),
		Width:     ref.Width(),
		Height:    ref.Height(),
	}, nil
}

// Load decodes b, shrinking on load to approximately target when it is
// smaller than the native size.
func (e *Engine) Load(ctx context.Context, b []byte, target core.Size) (core.EngineImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.load", err)
	}

	ref, err := govips.NewImageFromBuffer(b)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.load", err)
	}

	mediaType := mediaTypeFor(ref.Format())
	cs := colorSpaceFor(ref.Interpretation())

	if !target.IsZero() && (target.Width < ref.Width() || target.Height < ref.Height()) {
		if err := ref.Thumbnail(target.Width, target.Height, govips.InterestingNone); err != nil {
			ref.Close()
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.load.thumbnail", err)
		}
	}

	return &Image{engine: e, ref: ref, mediaType: mediaType, cs: cs}, nil
}

// NewCanvas creates a blank canvas filled with the background colour.
func (e *Engine) NewCanvas(size core.Size, bg string, mediaType core.MediaType, cs core.ColorSpace) (core.EngineImage, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, apperrors.New(apperrors.CategoryEngine, "vips.canvas",
			fmt.Errorf("canvas size %dx%d is not positive", size.Width, size.Height))
	}
	r, g, b, err := utils.ParseHexColor(bg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.canvas", err)
	}

	ref, err := govips.Black(size.Width, size.Height)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.canvas", err)
	}
	if err := ref.DrawRect(govips.ColorRGBA{R: r, G: g, B: b, A: 255},
		0, 0, size.Width, size.Height, true); err != nil {
		ref.Close()
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.canvas", err)
	}

	return &Image{engine: e, ref: ref, mediaType: mediaType, cs: cs}, nil
}

// Image wraps a *govips.ImageRef as a core.EngineImage.
type Image struct {
	engine    *Engine
	ref       *govips.ImageRef
	mediaType core.MediaType
	cs        core.ColorSpace
	released  bool
}

func (m *Image) check(op string) error {
	if m.released || m.ref == nil {
		return apperrors.New(apperrors.CategoryEngine, op, fmt.Errorf("handle already released"))
	}
	return nil
}

func (m *Image) Size() core.Size {
	if m.ref == nil {
		return core.Size{}
	}
	return core.Size{Width: m.ref.Width(), Height: m.ref.Height()}
}

func (m *Image) MediaType() core.MediaType   { return m.mediaType }
func (m *Image) ColorSpace() core.ColorSpace { return m.cs }

func (m *Image) Clone() (core.EngineImage, error) {
	if err := m.check("vips.clone"); err != nil {
		return nil, err
	}
	cp, err := m.ref.Copy()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.clone", err)
	}
	return &Image{engine: m.engine, ref: cp, mediaType: m.mediaType, cs: m.cs}, nil
}

func (m *Image) Crop(x, y, width, height int) error {
	if err := m.check("vips.crop"); err != nil {
		return err
	}
	if err := m.ref.ExtractArea(x, y, width, height); err != nil {
		return apperrors.Wrap(apperrors.CategoryEngine, "vips.crop", err)
	}
	return nil
}

func (m *Image) Resize(width, height int) error {
	if err := m.check("vips.resize"); err != nil {
		return err
	}
	cur := m.Size()
	if cur.Width == width && cur.Height == height {
		return nil
	}
	hscale := float64(width) / float64(cur.Width)
	vscale := float64(height) / float64(cur.Height)
	if err := m.ref.ResizeWithVScale(hscale, vscale, govips.KernelLanczos3); err != nil {
		return apperrors.Wrap(apperrors.CategoryEngine, "vips.resize", err)
	}
	return nil
}

func (m *Image) Composite(src core.EngineImage, x, y int) error {
	if err := m.check("vips.composite"); err != nil {
		return err
	}
	other, ok := src.(*Image)
	if !ok {
		return apperrors.New(apperrors.CategoryEngine, "vips.composite",
			fmt.Errorf("cannot composite a foreign engine handle"))
	}
	if err := other.check("vips.composite"); err != nil {
		return err
	}
	if err := m.ref.Composite(other.ref, govips.BlendModeOver, x, y); err != nil {
		return apperrors.Wrap(apperrors.CategoryEngine, "vips.composite", err)
	}
	return nil
}

func (m *Image) ToColorSpace(cs core.ColorSpace) error {
	if err := m.check("vips.colorspace"); err != nil {
		return err
	}
	if cs == m.cs {
		return nil
	}
	var interp govips.Interpretation
	switch cs {
	case core.ColorSpaceGray:
		interp = govips.InterpretationBW
	case core.ColorSpaceRGB, core.ColorSpaceRGBA:
		interp = govips.InterpretationSRGB
	case core.ColorSpaceCMYK:
		interp = govips.InterpretationCMYK
	default:
		return apperrors.New(apperrors.CategoryEngine, "vips.colorspace",
			fmt.Errorf("unsupported colour space %s", cs))
	}
	if err := m.ref.ToColorSpace(interp); err != nil {
		return apperrors.Wrap(apperrors.CategoryEngine, "vips.colorspace", err)
	}
	m.cs = cs
	return nil
}

func (m *Image) Export(ctx context.Context) ([]byte, error) {
	if err := m.check("vips.export"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.export", err)
	}

	quality := m.engine.cfg.DefaultQuality

	switch m.mediaType {
	case core.MediaTypeJPEG:
		ep := govips.NewJpegExportParams()
		ep.Quality = quality
		buf, _, err := m.ref.ExportJpeg(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.export.jpeg", err)
		}
		return buf, nil

	case core.MediaTypeWebP:
		ep := govips.NewWebpExportParams()
		ep.Quality = quality
		buf, _, err := m.ref.ExportWebp(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.export.webp", err)
		}
		return buf, nil

	case core.MediaTypeGIF:
		ep := govips.NewGifExportParams()
		buf, _, err := m.ref.ExportGIF(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.export.gif", err)
		}
		return buf, nil

	default:
		ep := govips.NewPngExportParams()
		buf, _, err := m.ref.ExportPng(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "vips.export.png", err)
		}
		return buf, nil
	}
}

func (m *Image) Release() {
	if m.ref != nil {
		m.ref.Close()
		m.ref = nil
	}
	m.released = true
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func mediaTypeFor(f govips.ImageType) core.MediaType {
	switch f {
	case govips.ImageTypeJPEG:
		return core.MediaTypeJPEG
	case govips.ImageTypePNG:
		return core.MediaTypePNG
	case govips.ImageTypeGIF:
		return core.MediaTypeGIF
	case govips.ImageTypeWEBP:
		return core.MediaTypeWebP
	default:
		return core.MediaTypeUnknown
	}
}

func colorSpaceFor(i govips.Interpretation) core.ColorSpace {
	switch i {
	case govips.InterpretationBW:
		return core.ColorSpaceGray
	case govips.InterpretationCMYK:
		return core.ColorSpaceCMYK
	default:
		return core.ColorSpaceRGB
	}
}

// compile-time interface checks
var _ core.Engine = (*Engine)(nil)
var _ core.EngineImage = (*Image)(nil)
