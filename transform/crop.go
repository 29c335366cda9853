package transform

import (
	"context"
	"fmt"

	"github.com/dshelkov/imagestore/core"
)

// Crop extracts an absolute pixel rectangle from the image.
type Crop struct{}

func (t *Crop) Name() string { return "crop" }

func (t *Crop) Apply(ctx context.Context, _ core.Engine, img core.EngineImage, p Params) (core.EngineImage, error) {
	x, err := p.Int("x", 0)
	if err != nil {
		return nil, failed(t.Name(), err)
	}
	y, err := p.Int("y", 0)
	if err != nil {
		return nil, failed(t.Name(), err)
	}
	w, err := p.Int("width", 0)
	if err != nil {
		return nil, failed(t.Name(), err)
	}
	h, err := p.Int("height", 0)
	if err != nil {
		return nil, failed(t.Name(), err)
	}
	if w <= 0 || h <= 0 {
		return nil, failed(t.Name(), fmt.Errorf("crop size %dx%d is not positive", w, h))
	}

	cur := img.Size()
	if x < 0 || y < 0 || x+w > cur.Width || y+h > cur.Height {
		return nil, failed(t.Name(), fmt.Errorf(
			"crop region %dx%d+%d+%d exceeds image bounds %dx%d", w, h, x, y, cur.Width, cur.Height))
	}

	if err := img.Crop(x, y, w, h); err != nil {
		return nil, failed(t.Name(), err)
	}
	return img, nil
}

// MinimumInputSize always stops resolution: the crop region is expressed in
// absolute coordinates of the full-resolution frame.
func (t *Crop) MinimumInputSize(Params, core.Size) (core.Size, bool) {
	return core.Size{}, false
}

func (t *Crop) AdjustParameters(ratio float64, p Params) Params {
	return adjustSizeParams(ratio, p, "x", "y", "width", "height")
}
