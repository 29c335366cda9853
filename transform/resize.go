package transform

import (
	"context"
	"fmt"

	"github.com/dshelkov/imagestore/core"
	"github.com/dshelkov/imagestore/utils"
)

// Resize scales the image to a target size.  Passing only one of width or
// height preserves the aspect ratio.
type Resize struct{}

func (t *Resize) Name() string { return "resize" }

func (t *Resize) target(p Params, current core.Size) (core.Size, error) {
	w, err := p.Int("width", 0)
	if err != nil {
		return core.Size{}, err
	}
	h, err := p.Int("height", 0)
	if err != nil {
		return core.Size{}, err
	}
	if w <= 0 && h <= 0 {
		return core.Size{}, fmt.Errorf("resize needs a positive width or height")
	}
	if w < 0 || h < 0 {
		return core.Size{}, fmt.Errorf("resize size %dx%d is negative", w, h)
	}
	tw, th := utils.ScaleDimensions(current.Width, current.Height, w, h)
	return core.Size{Width: tw, Height: th}, nil
}

func (t *Resize) Apply(ctx context.Context, _ core.Engine, img core.EngineImage, p Params) (core.EngineImage, error) {
	target, err := t.target(p, img.Size())
	if err != nil {
		return nil, failed(t.Name(), err)
	}
	if target == img.Size() {
		return img, nil
	}
	if err := img.Resize(target.Width, target.Height); err != nil {
		return nil, failed(t.Name(), err)
	}
	return img, nil
}

// MinimumInputSize propagates the shrink: the output size is fixed by the
// parameters, so the input never needs more detail than the smaller of the
// target and whatever downstream still requires.
func (t *Resize) MinimumInputSize(p Params, size core.Size) (core.Size, bool) {
	target, err := t.target(p, size)
	if err != nil {
		// Malformed parameters are rejected at apply time; resolution stays
		// conservative here.
		return core.Size{}, false
	}
	if size.Width > 0 && size.Width < target.Width {
		target.Width = size.Width
	}
	if size.Height > 0 && size.Height < target.Height {
		target.Height = size.Height
	}
	return target, true
}

// AdjustParameters is the identity: the resize target is an absolute output
// size and must survive a smaller decode unchanged.
func (t *Resize) AdjustParameters(_ float64, p Params) Params { return p }
