package transform_test

import (
	"context"

	"github.com/dshelkov/imagestore/core"
)

// compositeCall records one Composite invocation on a fake handle.
type compositeCall struct {
	srcSize core.Size
	x, y    int
}

// fakeImage is a recording core.EngineImage.  Operations on clones are
// recorded on the handle they were cloned from, so tests can follow what a
// transformation did to its working copy.
type fakeImage struct {
	size      core.Size
	mediaType core.MediaType
	cs        core.ColorSpace
	bg        string

	root       *fakeImage
	crops      [][4]int
	resizes    []core.Size
	composites []compositeCall
	released   bool
}

func newFakeImage(w, h int) *fakeImage {
	return &fakeImage{
		size:      core.Size{Width: w, Height: h},
		mediaType: core.MediaTypePNG,
		cs:        core.ColorSpaceRGB,
	}
}

func (f *fakeImage) rec() *fakeImage {
	if f.root != nil {
		return f.root
	}
	return f
}

func (f *fakeImage) Size() core.Size             { return f.size }
func (f *fakeImage) MediaType() core.MediaType   { return f.mediaType }
func (f *fakeImage) ColorSpace() core.ColorSpace { return f.cs }

func (f *fakeImage) Clone() (core.EngineImage, error) {
	return &fakeImage{size: f.size, mediaType: f.mediaType, cs: f.cs, root: f.rec()}, nil
}

func (f *fakeImage) Crop(x, y, width, height int) error {
	f.rec().crops = append(f.rec().crops, [4]int{x, y, width, height})
	f.size = core.Size{Width: width, Height: height}
	return nil
}

func (f *fakeImage) Resize(width, height int) error {
	f.rec().resizes = append(f.rec().resizes, core.Size{Width: width, Height: height})
	f.size = core.Size{Width: width, Height: height}
	return nil
}

func (f *fakeImage) Composite(src core.EngineImage, x, y int) error {
	f.rec().composites = append(f.rec().composites, compositeCall{srcSize: src.Size(), x: x, y: y})
	return nil
}

func (f *fakeImage) ToColorSpace(cs core.ColorSpace) error {
	f.cs = cs
	return nil
}

func (f *fakeImage) Export(context.Context) ([]byte, error) {
	return []byte("fake-rendition"), nil
}

func (f *fakeImage) Release() { f.released = true }

// fakeEngine is a recording core.Engine whose Load honours the shrink target.
type fakeEngine struct {
	native         core.Size
	lastLoadTarget core.Size
	lastCanvas     *fakeImage
	loaded         *fakeImage
}

func (e *fakeEngine) Probe([]byte) (*core.ImageInfo, error) {
	return &core.ImageInfo{MediaType: core.MediaTypePNG, Width: e.native.Width, Height: e.native.Height}, nil
}

func (e *fakeEngine) Load(_ context.Context, _ []byte, target core.Size) (core.EngineImage, error) {
	e.lastLoadTarget = target
	size := e.native
	if !target.IsZero() && target.FitsWithin(e.native) {
		size = target
	}
	e.loaded = newFakeImage(size.Width, size.Height)
	return e.loaded, nil
}

func (e *fakeEngine) NewCanvas(size core.Size, bg string, mediaType core.MediaType, cs core.ColorSpace) (core.EngineImage, error) {
	e.lastCanvas = &fakeImage{size: size, mediaType: mediaType, cs: cs, bg: bg}
	return e.lastCanvas, nil
}
