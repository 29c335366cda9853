package listener_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshelkov/imagestore/event"
	"github.com/dshelkov/imagestore/listener"
)

func TestEventMetrics_CountsTriggers(t *testing.T) {
	bus := event.New()
	metrics := listener.NewEventMetrics()
	bus.Register(metrics)

	for i := 0; i < 3; i++ {
		_, err := bus.Trigger(context.Background(), listener.EventImageLoad, event.NewContext())
		require.NoError(t, err)
	}
	_, err := bus.Trigger(context.Background(), listener.EventImageDelete, event.NewContext())
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(3), snap[listener.EventImageLoad])
	assert.Equal(t, int64(1), snap[listener.EventImageDelete])
	assert.Zero(t, snap[listener.EventImageInsert])
}

func TestEventMetrics_CountsBeforePropagationStops(t *testing.T) {
	bus := event.New()
	metrics := listener.NewEventMetrics(listener.EventImageLoad)
	bus.Register(metrics)

	// A listener below the metrics priority stops the chain; the trigger is
	// still counted.
	bus.Attach(listener.EventImageLoad, 50, func(_ context.Context, e *event.Context) error {
		e.StopPropagation()
		return nil
	})

	_, err := bus.Trigger(context.Background(), listener.EventImageLoad, event.NewContext())
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.Snapshot()[listener.EventImageLoad])
}

func TestEventLogger_LogsAheadOfDispatch(t *testing.T) {
	var buf bytes.Buffer
	logger := listener.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	bus := event.New()
	bus.Register(listener.NewEventLogger(logger))

	e := event.NewContext()
	e.Request.AccountKey = "acct"
	e.Request.ImageID = "id-1"
	_, err := bus.Trigger(context.Background(), listener.EventImageLoad, e)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "event.trigger")
	assert.Contains(t, out, listener.EventImageLoad)
	assert.Contains(t, out, "acct")
}
