package event

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/dshelkov/imagestore/errors"
)

// HandlerFunc handles one event.  A non-nil error aborts the remaining
// listener chain for the event and propagates to the triggering caller;
// handlers that want log-and-continue semantics swallow the error themselves.
type HandlerFunc func(ctx context.Context, e *Context) error

// Listener is anything that registers handlers on a Bus.
type Listener interface {
	Attach(b *Bus)
}

type registration struct {
	priority int
	seq      int
	fn       HandlerFunc
}

// Bus dispatches named events to attached listeners.  The bus holds no domain
// state; it is pure dispatch plus ordering.  Attach at configuration time;
// Trigger is safe to call concurrently from independent requests.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]registration
	seq       int
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{listeners: make(map[string][]registration)}
}

// Attach registers fn for the named event.  Listeners run in priority order,
// higher first, with ties broken by attachment order.
func (b *Bus) Attach(name string, priority int, fn HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	regs := append(b.listeners[name], registration{priority: priority, seq: b.seq, fn: fn})
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	b.listeners[name] = regs
}

// Register attaches each Listener to the bus.
func (b *Bus) Register(ls ...Listener) {
	for _, l := range ls {
		l.Attach(b)
	}
}

// Has reports whether at least one listener is attached for name.
func (b *Bus) Has(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name]) > 0
}

// Trigger runs every listener attached for name, synchronously and in order,
// against the shared context e.  It stops at the first listener error or once
// propagation is stopped, and returns e either way.
func (b *Bus) Trigger(ctx context.Context, name string, e *Context) (*Context, error) {
	b.mu.RLock()
	regs := b.listeners[name]
	b.mu.RUnlock()

	for _, reg := range regs {
		if err := ctx.Err(); err != nil {
			return e, apperrors.Wrap(apperrors.CategoryEvent, name, err)
		}
		if e.Stopped() {
			break
		}
		if err := reg.fn(ctx, e); err != nil {
			return e, apperrors.Wrap(apperrors.CategoryEvent, name, err)
		}
	}
	return e, nil
}
