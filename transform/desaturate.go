package transform

import (
	"context"

	"github.com/dshelkov/imagestore/core"
)

// Desaturate converts the image to grayscale.
type Desaturate struct{}

func (t *Desaturate) Name() string { return "desaturate" }

func (t *Desaturate) Apply(ctx context.Context, _ core.Engine, img core.EngineImage, _ Params) (core.EngineImage, error) {
	if err := img.ToColorSpace(core.ColorSpaceGray); err != nil {
		return nil, failed(t.Name(), err)
	}
	return img, nil
}

// MinimumInputSize passes the downstream requirement through untouched:
// recolouring is independent of resolution.
func (t *Desaturate) MinimumInputSize(_ Params, size core.Size) (core.Size, bool) {
	return size, true
}

func (t *Desaturate) AdjustParameters(_ float64, p Params) Params { return p }
