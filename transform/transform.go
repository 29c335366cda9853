// Package transform implements the transformation chain: named image
// operations that are polymorphic over apply, minimum-input-size, and
// parameter rescaling, plus the resolver that computes the smallest decode
// size an entire chain can tolerate.
package transform

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
)

// Params maps parameter names to raw request values.  Numeric values are
// coerced by the typed parameter builders of each transformation.
type Params map[string]string

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the value for key, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns the value for key coerced to an integer, or def when absent.
// A present but malformed value is an error; parameters are validated once,
// up front, never trusted at use sites.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %q is not an integer", key, v)
	}
	return n, nil
}

// Spec is one requested transformation: a name plus its parameter mapping.
// Specs are immutable once constructed; the resolver replaces a spec with an
// adjusted copy rather than mutating it.
type Spec struct {
	Name   string
	Params Params
}

// NewSpec builds a Spec, copying params so later caller mutations cannot
// leak into the chain.
func NewSpec(name string, params map[string]string) Spec {
	return Spec{Name: name, Params: Params(params).Clone()}
}

// Transformation is the contract every image operation satisfies.
type Transformation interface {
	Name() string

	// Apply runs the transformation against img, returning the handle that
	// carries the result.  Implementations may mutate img in place and return
	// it, or return a replacement handle; the caller releases the old handle
	// when a replacement is returned.
	Apply(ctx context.Context, eng core.Engine, img core.EngineImage, p Params) (core.EngineImage, error)

	// MinimumInputSize reports the smallest input this transformation needs
	// in order to still produce a correct result, given its parameters and
	// the size required at its output.  ok == false means no further
	// upstream size reduction can be safely computed.
	MinimumInputSize(p Params, size core.Size) (required core.Size, ok bool)

	// AdjustParameters rescales any size/position parameters by ratio, the
	// quotient of the reference size over the actually-decoded size, so the
	// transformation stays geometrically consistent on a smaller input.
	AdjustParameters(ratio float64, p Params) Params
}

// Registry maps transformation names to implementations.  Safe for
// concurrent use; registration happens once at configuration time.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Transformation
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Transformation)}
}

// Register adds t under its name, replacing any previous registration.
func (r *Registry) Register(t Transformation) {
	r.mu.Lock()
	r.m[t.Name()] = t
	r.mu.Unlock()
}

// Get looks up a transformation by name.
func (r *Registry) Get(name string) (Transformation, bool) {
	r.mu.RLock()
	t, ok := r.m[name]
	r.mu.RUnlock()
	return t, ok
}

// adjustScalar divides v by ratio, rounding to the nearest integer.
func adjustScalar(v int, ratio float64) int {
	return int(math.Round(float64(v) / ratio))
}

// adjustSizeParams returns a copy of p with each listed key, if present,
// divided by ratio.  Non-numeric values pass through untouched; they will be
// rejected by the typed builder at apply time.
func adjustSizeParams(ratio float64, p Params, keys ...string) Params {
	out := p.Clone()
	for _, key := range keys {
		v, ok := out[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		out[key] = strconv.Itoa(adjustScalar(n, ratio))
	}
	return out
}

// failed wraps an underlying engine or parameter error as a transformation
// failure: the rendition could not be honoured with the given parameters and
// image, a client error rather than a server-fatal one.
func failed(op string, err error) error {
	return apperrors.New(apperrors.CategoryTransform, op,
		fmt.Errorf("%w: %v", apperrors.ErrTransformationFailed, err))
}
