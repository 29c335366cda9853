// Package event implements the ordered publish/subscribe bus that connects
// the request pipeline to its listeners.  Named events carry one mutable
// request/response context shared by reference across every listener invoked
// for the event.
package event

import (
	"net/http"

	"github.com/dshelkov/imagestore/core"
	"github.com/dshelkov/imagestore/transform"
)

// Request is the inbound half of an event context.
type Request struct {
	AccountKey string
	ImageID    string

	// Payload carries raw upload bytes for insert events and the raw
	// metadata document for metadata.update events.
	Payload []byte

	// Transformations is the requested rendition chain, in application order.
	Transformations []transform.Spec
}

// Response is the outbound half of an event context.  Listeners populate it
// in place; later listeners see mutations made by earlier ones.
type Response struct {
	Image    *core.Image
	Metadata map[string]string
	Headers  http.Header
}

// Context is the per-request value passed to every listener of a triggered
// event.  It is owned by the triggering call; listeners must not retain it
// beyond their invocation.
type Context struct {
	Request  Request
	Response Response

	stopped bool
}

// NewContext returns a Context with an empty response image and header map.
func NewContext() *Context {
	return &Context{
		Response: Response{
			Image:   &core.Image{},
			Headers: http.Header{},
		},
	}
}

// StopPropagation prevents any remaining listener for the current event from
// executing.  Stopping is not an error; it is the short-circuit case (e.g. a
// cache hit or an authorization rejection that already wrote the response).
func (c *Context) StopPropagation() { c.stopped = true }

// Stopped reports whether propagation has been stopped.
func (c *Context) Stopped() bool { return c.stopped }
