// Package std provides a pure-Go core.Engine backed by the standard library
// image packages and golang.org/x/image resampling.
package std

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp decoding

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
	"github.com/dshelkov/imagestore/utils"
)

// Engine decodes and manipulates images without cgo.  WebP is decode-only;
// exporting a webp-sourced handle re-encodes it as PNG.
type Engine struct {
	// JPEGQuality is used when exporting JPEG data; default 85.
	JPEGQuality int
}

// New returns an Engine with default settings.
func New() *Engine { return &Engine{JPEGQuality: 85} }

func mediaTypeFor(name string) core.MediaType {
	switch name {
	case "jpeg":
		return core.MediaTypeJPEG
	case "png":
		return core.MediaTypePNG
	case "gif":
		return core.MediaTypeGIF
	case "webp":
		return core.MediaTypeWebP
	}
	return core.MediaTypeUnknown
}

// Probe reads only the image header to extract geometry and media type.
func (e *Engine) Probe(b []byte) (*core.ImageInfo, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.probe", err)
	}
	return &core.ImageInfo{
		MediaType: mediaTypeFor(name),
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}

// Load decodes b and, when target is non-zero and smaller than native,
// downsamples the pixel data to the target size.
func (e *Engine) Load(ctx context.Context, b []byte, target core.Size) (core.EngineImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.load", err)
	}

	src, name, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.load", err)
	}

	handle := &Image{
		engine:    e,
		rgba:      toRGBA(src),
		mediaType: mediaTypeFor(name),
		cs:        colorSpaceOf(src),
	}

	native := handle.Size()
	if !target.IsZero() && (target.Width < native.Width || target.Height < native.Height) {
		if err := handle.Resize(target.Width, target.Height); err != nil {
			return nil, err
		}
	}
	return handle, nil
}

// NewCanvas creates a blank canvas filled with the background colour.
func (e *Engine) NewCanvas(size core.Size, bg string, mediaType core.MediaType, cs core.ColorSpace) (core.EngineImage, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, apperrors.New(apperrors.CategoryEngine, "std.canvas",
			fmt.Errorf("canvas size %dx%d is not positive", size.Width, size.Height))
	}
	r, g, b, err := utils.ParseHexColor(bg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.canvas", err)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{R: r, G: g, B: b, A: 255}),
		image.Point{}, draw.Src)

	return &Image{engine: e, rgba: rgba, mediaType: mediaType, cs: cs}, nil
}

// toRGBA normalises any decoded image into an RGBA buffer with its origin
// at (0, 0).
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func colorSpaceOf(src image.Image) core.ColorSpace {
	switch src.(type) {
	case *image.Gray, *image.Gray16:
		return core.ColorSpaceGray
	case *image.CMYK:
		return core.ColorSpaceCMYK
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return core.ColorSpaceRGBA
	}
	return core.ColorSpaceRGB
}

// Image is the std engine's handle over one decoded image.  Not safe for
// concurrent use.
type Image struct {
	engine    *Engine
	rgba      *image.RGBA
	mediaType core.MediaType
	cs        core.ColorSpace
	released  bool
}

func (m *Image) check(op string) error {
	if m.released || m.rgba == nil {
		return apperrors.New(apperrors.CategoryEngine, op, fmt.Errorf("handle already released"))
	}
	return nil
}

func (m *Image) Size() core.Size {
	if m.rgba == nil {
		return core.Size{}
	}
	b := m.rgba.Bounds()
	return core.Size{Width: b.Dx(), Height: b.Dy()}
}

func (m *Image) MediaType() core.MediaType   { return m.mediaType }
func (m *Image) ColorSpace() core.ColorSpace { return m.cs }

func (m *Image) Clone() (core.EngineImage, error) {
	if err := m.check("std.clone"); err != nil {
		return nil, err
	}
	cp := image.NewRGBA(m.rgba.Bounds())
	copy(cp.Pix, m.rgba.Pix)
	return &Image{engine: m.engine, rgba: cp, mediaType: m.mediaType, cs: m.cs}, nil
}

func (m *Image) Crop(x, y, width, height int) error {
	if err := m.check("std.crop"); err != nil {
		return err
	}
	rect := image.Rect(x, y, x+width, y+height)
	if !rect.In(m.rgba.Bounds()) {
		return apperrors.New(apperrors.CategoryEngine, "std.crop",
			fmt.Errorf("crop rect %v exceeds image bounds %v", rect, m.rgba.Bounds()))
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), m.rgba, rect.Min, draw.Src)
	m.rgba = dst
	return nil
}

func (m *Image) Resize(width, height int) error {
	if err := m.check("std.resize"); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return apperrors.New(apperrors.CategoryEngine, "std.resize",
			fmt.Errorf("resize size %dx%d is not positive", width, height))
	}
	cur := m.Size()
	if cur.Width == width && cur.Height == height {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), m.rgba, m.rgba.Bounds(), xdraw.Src, nil)
	m.rgba = dst
	return nil
}

func (m *Image) Composite(src core.EngineImage, x, y int) error {
	if err := m.check("std.composite"); err != nil {
		return err
	}
	other, ok := src.(*Image)
	if !ok {
		return apperrors.New(apperrors.CategoryEngine, "std.composite",
			fmt.Errorf("cannot composite a foreign engine handle"))
	}
	if err := other.check("std.composite"); err != nil {
		return err
	}
	sz := other.Size()
	rect := image.Rect(x, y, x+sz.Width, y+sz.Height)
	draw.Draw(m.rgba, rect, other.rgba, image.Point{}, draw.Src)
	return nil
}

func (m *Image) ToColorSpace(cs core.ColorSpace) error {
	if err := m.check("std.colorspace"); err != nil {
		return err
	}
	switch cs {
	case m.cs:
		return nil
	case core.ColorSpaceGray:
		b := m.rgba.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g := color.GrayModel.Convert(m.rgba.At(x, y)).(color.Gray)
				m.rgba.Set(x, y, color.RGBA{R: g.Y, G: g.Y, B: g.Y, A: 255})
			}
		}
		m.cs = core.ColorSpaceGray
		return nil
	case core.ColorSpaceRGB, core.ColorSpaceRGBA:
		m.cs = cs
		return nil
	}
	return apperrors.New(apperrors.CategoryEngine, "std.colorspace",
		fmt.Errorf("unsupported colour space %s", cs))
}

func (m *Image) Export(ctx context.Context) ([]byte, error) {
	if err := m.check("std.export"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.export", err)
	}

	quality := m.engine.JPEGQuality
	if quality <= 0 {
		quality = 85
	}

	var buf bytes.Buffer
	switch m.mediaType {
	case core.MediaTypeJPEG:
		if err := jpeg.Encode(&buf, m.rgba, &jpeg.Options{Quality: quality}); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.export", err)
		}
	case core.MediaTypeGIF:
		if err := gif.Encode(&buf, m.rgba, nil); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.export", err)
		}
	case core.MediaTypeWebP:
		// No pure-Go webp encoder; fall back to PNG and record the change.
		if err := png.Encode(&buf, m.rgba); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.export", err)
		}
		m.mediaType = core.MediaTypePNG
	default:
		if err := png.Encode(&buf, m.rgba); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEngine, "std.export", err)
		}
	}
	return buf.Bytes(), nil
}

func (m *Image) Release() {
	m.released = true
	m.rgba = nil
}
