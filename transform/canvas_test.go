package transform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
	"github.com/dshelkov/imagestore/transform"
)

func TestCanvas_CenterSmallerImage(t *testing.T) {
	eng := &fakeEngine{}
	img := newFakeImage(100, 50)

	out, err := transform.NewCanvas().Apply(context.Background(), eng, img, transform.Params{
		"width": "200", "height": "200", "mode": "center",
	})
	require.NoError(t, err)

	require.Same(t, core.EngineImage(eng.lastCanvas), out)
	assert.Equal(t, core.Size{Width: 200, Height: 200}, out.Size())
	assert.Empty(t, img.crops, "smaller image must not be cropped")

	require.Len(t, eng.lastCanvas.composites, 1)
	call := eng.lastCanvas.composites[0]
	assert.Equal(t, core.Size{Width: 100, Height: 50}, call.srcSize)
	assert.Equal(t, 50, call.x)
	assert.Equal(t, 75, call.y)
}

func TestCanvas_FreeCropsOversizedImage(t *testing.T) {
	eng := &fakeEngine{}
	img := newFakeImage(300, 300)

	out, err := transform.NewCanvas().Apply(context.Background(), eng, img, transform.Params{
		"width": "100", "height": "100",
	})
	require.NoError(t, err)

	require.Len(t, img.crops, 1)
	assert.Equal(t, [4]int{0, 0, 100, 100}, img.crops[0])

	require.Len(t, eng.lastCanvas.composites, 1)
	call := eng.lastCanvas.composites[0]
	assert.Equal(t, core.Size{Width: 100, Height: 100}, call.srcSize)
	assert.Equal(t, 0, call.x)
	assert.Equal(t, 0, call.y)
	assert.Equal(t, core.Size{Width: 100, Height: 100}, out.Size())
}

func TestCanvas_CenterCropTruncatesTowardZero(t *testing.T) {
	eng := &fakeEngine{}
	img := newFakeImage(105, 50)

	_, err := transform.NewCanvas().Apply(context.Background(), eng, img, transform.Params{
		"width": "100", "height": "100", "mode": "center-x",
	})
	require.NoError(t, err)

	require.Len(t, img.crops, 1)
	assert.Equal(t, [4]int{2, 0, 100, 50}, img.crops[0])

	require.Len(t, eng.lastCanvas.composites, 1)
	call := eng.lastCanvas.composites[0]
	assert.Equal(t, 0, call.x, "center-x placement after an exact-width crop")
	assert.Equal(t, 0, call.y, "y stays at the free-placement default")
}

func TestCanvas_CenterYOnly(t *testing.T) {
	eng := &fakeEngine{}
	img := newFakeImage(40, 40)

	_, err := transform.NewCanvas().Apply(context.Background(), eng, img, transform.Params{
		"width": "100", "height": "100", "mode": "center-y", "x": "10",
	})
	require.NoError(t, err)

	call := eng.lastCanvas.composites[0]
	assert.Equal(t, 10, call.x, "x comes from the request in center-y mode")
	assert.Equal(t, 30, call.y)
}

func TestCanvas_DefaultsToImageSizeAndWhite(t *testing.T) {
	eng := &fakeEngine{}
	img := newFakeImage(64, 48)

	out, err := transform.NewCanvas().Apply(context.Background(), eng, img, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Size{Width: 64, Height: 48}, out.Size())
	assert.Equal(t, "#ffffff", eng.lastCanvas.bg)
}

func TestCanvas_ReleasesWorkingCopy(t *testing.T) {
	eng := &fakeEngine{}
	img := newFakeImage(10, 10)

	_, err := transform.NewCanvas().Apply(context.Background(), eng, img, transform.Params{
		"width": "20", "height": "20",
	})
	require.NoError(t, err)
	assert.False(t, img.released, "input handle belongs to the caller")
}

func TestCanvas_BadParams(t *testing.T) {
	eng := &fakeEngine{}
	for name, params := range map[string]transform.Params{
		"non-integer width": {"width": "abc", "height": "100"},
		"zero height":       {"width": "100", "height": "0"},
		"unknown mode":      {"width": "100", "height": "100", "mode": "diagonal"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := transform.NewCanvas().Apply(context.Background(), eng, newFakeImage(10, 10), params)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTransformationFailed)
			assert.Equal(t, 400, apperrors.HTTPStatus(err))
		})
	}
}

func TestCanvas_MinimumInputSizeAlwaysStops(t *testing.T) {
	c := transform.NewCanvas()
	for _, size := range []core.Size{
		{Width: 1000, Height: 800},
		{Width: 1, Height: 1},
		{},
	} {
		_, ok := c.MinimumInputSize(transform.Params{"width": "10", "height": "10"}, size)
		assert.False(t, ok)
	}
}

func TestCanvas_AdjustParameters(t *testing.T) {
	adjusted := transform.NewCanvas().AdjustParameters(2, transform.Params{
		"x": "100", "y": "50", "width": "400", "height": "200",
		"mode": "center", "bg": "#123456",
	})

	assert.Equal(t, "50", adjusted["x"])
	assert.Equal(t, "25", adjusted["y"])
	assert.Equal(t, "200", adjusted["width"])
	assert.Equal(t, "100", adjusted["height"])
	assert.Equal(t, "center", adjusted["mode"], "mode is not a size parameter")
	assert.Equal(t, "#123456", adjusted["bg"], "bg is not a size parameter")
}
