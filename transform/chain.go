package transform

import (
	"context"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
)

// Chain executes a requested rendition against one image entity.  Safe for
// concurrent use; all per-request state lives in the arguments.
type Chain struct {
	reg    *Registry
	engine core.Engine
}

// NewChain returns a Chain that dispatches through reg and decodes with eng.
func NewChain(reg *Registry, eng core.Engine) *Chain {
	return &Chain{reg: reg, engine: eng}
}

// Registry returns the chain's transformation registry so callers can
// register custom transformations after construction.
func (c *Chain) Registry() *Registry { return c.reg }

// Run resolves the minimum decode size for chain, decodes img.Blob at that
// size, applies each transformation in the requested order (with parameters
// rescaled when decoding happened below native resolution), and writes the
// resulting bytes and dimensions back into img.
func (c *Chain) Run(ctx context.Context, img *core.Image, chain []Spec) error {
	if len(chain) == 0 {
		return nil
	}

	native := img.NativeSize()
	needed, err := ResolveMinimumSize(c.reg, chain, native)
	if err != nil {
		return err
	}

	var target core.Size
	if needed != native && needed.FitsWithin(native) {
		target = needed
	}

	handle, err := c.engine.Load(ctx, img.Blob, target)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryEngine, "chain.load", err)
	}
	defer func() {
		if handle != nil {
			handle.Release()
		}
	}()

	decoded := handle.Size()
	ratio := 1.0
	if decoded.Width > 0 {
		ratio = float64(native.Width) / float64(decoded.Width)
	}

	specs := chain
	if ratio > 1 {
		specs = AdjustChain(c.reg, chain, ratio)
	}

	for _, sp := range specs {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(apperrors.CategoryTransform, sp.Name, err)
		}
		t, ok := c.reg.Get(sp.Name)
		if !ok {
			// Unreachable after ResolveMinimumSize, kept as a guard.
			return failed(sp.Name, apperrors.ErrUnknownTransformation)
		}
		next, err := t.Apply(ctx, c.engine, handle, sp.Params)
		if err != nil {
			return err
		}
		if next != handle {
			handle.Release()
			handle = next
		}
	}

	out, err := handle.Export(ctx)
	if err != nil {
		return failed("chain.export", err)
	}

	final := handle.Size()
	img.Blob = out
	img.Size = int64(len(out))
	img.Width = final.Width
	img.Height = final.Height
	// Engines may change the media type on export (e.g. a webp source
	// re-encoded as png by a backend without a webp encoder).
	if mt := handle.MediaType(); mt != img.MediaType {
		img.MediaType = mt
		img.Extension = mt.Extension()
	}
	img.Transformed = true
	return nil
}
