package transform

import (
	"context"
	"fmt"

	"github.com/dshelkov/imagestore/core"
)

// Placement modes for the canvas transformation.
const (
	ModeFree    = "free"
	ModeCenter  = "center"
	ModeCenterX = "center-x"
	ModeCenterY = "center-y"
)

// Canvas places the current image onto a new canvas of a requested size and
// background colour, cropping the image first when it exceeds the canvas.
// Crop and placement math is defined in absolute target coordinates.
type Canvas struct {
	// Instance defaults, used when the request omits a parameter.
	DefaultWidth      int
	DefaultHeight     int
	DefaultMode       string
	DefaultX          int
	DefaultY          int
	DefaultBackground string
}

// NewCanvas returns a Canvas with the stock defaults: free placement at the
// origin on a white background, sized to the current image.
func NewCanvas() *Canvas {
	return &Canvas{DefaultMode: ModeFree, DefaultBackground: "#ffffff"}
}

func (t *Canvas) Name() string { return "canvas" }

type canvasParams struct {
	width  int
	height int
	mode   string
	x      int
	y      int
	bg     string
}

// params resolves the effective parameters, falling back to instance defaults
// and then to the current image geometry.  Coercion and mode validation
// happen here, once, before any engine work.
func (t *Canvas) params(p Params, current core.Size) (canvasParams, error) {
	defWidth := t.DefaultWidth
	if defWidth == 0 {
		defWidth = current.Width
	}
	defHeight := t.DefaultHeight
	if defHeight == 0 {
		defHeight = current.Height
	}

	var (
		cp  canvasParams
		err error
	)
	if cp.width, err = p.Int("width", defWidth); err != nil {
		return cp, err
	}
	if cp.height, err = p.Int("height", defHeight); err != nil {
		return cp, err
	}
	if cp.x, err = p.Int("x", t.DefaultX); err != nil {
		return cp, err
	}
	if cp.y, err = p.Int("y", t.DefaultY); err != nil {
		return cp, err
	}
	if cp.width <= 0 || cp.height <= 0 {
		return cp, fmt.Errorf("canvas size %dx%d is not positive", cp.width, cp.height)
	}

	cp.mode = p.String("mode", t.DefaultMode)
	switch cp.mode {
	case ModeFree, ModeCenter, ModeCenterX, ModeCenterY:
	default:
		return cp, fmt.Errorf("unknown placement mode %q", cp.mode)
	}

	cp.bg = p.String("bg", t.DefaultBackground)
	return cp, nil
}

func (t *Canvas) Apply(ctx context.Context, eng core.Engine, img core.EngineImage, p Params) (core.EngineImage, error) {
	cp, err := t.params(p, img.Size())
	if err != nil {
		return nil, failed(t.Name(), err)
	}

	existing, err := img.Clone()
	if err != nil {
		return nil, failed(t.Name(), err)
	}
	defer existing.Release()

	canvas, err := eng.NewCanvas(core.Size{Width: cp.width, Height: cp.height},
		cp.bg, img.MediaType(), img.ColorSpace())
	if err != nil {
		return nil, failed(t.Name(), err)
	}

	ex := existing.Size()
	if ex.Width > cp.width || ex.Height > cp.height {
		cropW, cropH := ex.Width, ex.Height
		cropX, cropY := 0, 0
		if ex.Width > cp.width {
			cropW = cp.width
			if cp.mode == ModeCenter || cp.mode == ModeCenterX {
				cropX = (ex.Width - cp.width) / 2
			}
		}
		if ex.Height > cp.height {
			cropH = cp.height
			if cp.mode == ModeCenter || cp.mode == ModeCenterY {
				cropY = (ex.Height - cp.height) / 2
			}
		}
		if err := existing.Crop(cropX, cropY, cropW, cropH); err != nil {
			canvas.Release()
			return nil, failed(t.Name(), err)
		}
		ex = existing.Size()
	}

	// Placement is recomputed from the possibly-cropped size.
	x, y := cp.x, cp.y
	switch cp.mode {
	case ModeCenter:
		x = (cp.width - ex.Width) / 2
		y = (cp.height - ex.Height) / 2
	case ModeCenterX:
		x = (cp.width - ex.Width) / 2
	case ModeCenterY:
		y = (cp.height - ex.Height) / 2
	}

	if err := canvas.Composite(existing, x, y); err != nil {
		canvas.Release()
		return nil, failed(t.Name(), err)
	}
	return canvas, nil
}

// MinimumInputSize always stops resolution: canvas crop and placement depend
// on the image having reached its final pre-canvas size, so shrinking the
// input beforehand would change results non-proportionally.
func (t *Canvas) MinimumInputSize(Params, core.Size) (core.Size, bool) {
	return core.Size{}, false
}

func (t *Canvas) AdjustParameters(ratio float64, p Params) Params {
	return adjustSizeParams(ratio, p, "x", "y", "width", "height")
}
