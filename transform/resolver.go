package transform

import (
	"fmt"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
)

// ResolveMinimumSize walks chain from the last transformation toward the
// first, shrinking a running needed size seeded with the native size.  A
// transformation that cannot guarantee correctness under partial resolution
// halts the walk and the result falls back to the native size: once a
// size-opaque step is encountered, no upstream shrink can be proven safe.
func ResolveMinimumSize(reg *Registry, chain []Spec, native core.Size) (core.Size, error) {
	needed := native
	for i := len(chain) - 1; i >= 0; i-- {
		t, ok := reg.Get(chain[i].Name)
		if !ok {
			return native, apperrors.New(apperrors.CategoryTransform, "resolve",
				fmt.Errorf("%w: %s", apperrors.ErrUnknownTransformation, chain[i].Name))
		}
		required, ok := t.MinimumInputSize(chain[i].Params, needed)
		if !ok {
			return native, nil
		}
		needed = clampSize(required, native)
	}
	return needed, nil
}

// AdjustChain passes every spec's parameters through AdjustParameters with
// the given ratio and returns the adjusted copies; the original specs are
// never mutated.  Application order is preserved: resolution only ever
// changes the decode size, not transformation order.
func AdjustChain(reg *Registry, chain []Spec, ratio float64) []Spec {
	out := make([]Spec, len(chain))
	for i, sp := range chain {
		t, ok := reg.Get(sp.Name)
		if !ok {
			out[i] = sp
			continue
		}
		out[i] = Spec{Name: sp.Name, Params: t.AdjustParameters(ratio, sp.Params)}
	}
	return out
}

// clampSize bounds s to [1, native] on both axes.
func clampSize(s, native core.Size) core.Size {
	if s.Width < 1 {
		s.Width = 1
	}
	if s.Height < 1 {
		s.Height = 1
	}
	if s.Width > native.Width {
		s.Width = native.Width
	}
	if s.Height > native.Height {
		s.Height = native.Height
	}
	return s
}
