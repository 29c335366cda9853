package listener

import (
	"context"
	"log/slog"

	"github.com/dshelkov/imagestore/core"
	"github.com/dshelkov/imagestore/event"
)

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...interface{})  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...interface{})  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...interface{}) { s.log.Error(msg, fields...) }

// EventLogger logs every dispatched event.  It attaches at high priority so
// an event is logged even when a later listener stops propagation, and it
// never stops propagation or fails itself.
type EventLogger struct {
	logger core.Logger
	events []string
}

// NewEventLogger creates an EventLogger for the given event names; with no
// names it observes the standard dispatch events.
func NewEventLogger(l core.Logger, events ...string) *EventLogger {
	if len(events) == 0 {
		events = Events
	}
	return &EventLogger{logger: l, events: events}
}

// Attach registers the logging handler ahead of the dispatch listeners.
func (l *EventLogger) Attach(b *event.Bus) {
	for _, name := range l.events {
		name := name
		b.Attach(name, 100, func(_ context.Context, e *event.Context) error {
			l.logger.Debug("event.trigger",
				"event", name,
				"account", e.Request.AccountKey,
				"image", e.Request.ImageID,
			)
			return nil
		})
	}
}
