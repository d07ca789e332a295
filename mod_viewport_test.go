package framepipe

import (
	"testing"

	"github.com/gekko3d/framepipe/pipeline/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowResized struct {
	Width, Height int
}

func TestViewportModule_AppliesResizeEvents(t *testing.T) {
	app := NewAppBuilder().UseModule(ViewportModule{
		DesignWidth: 100, DesignHeight: 100, PreserveAspect: true,
		WindowWidth: 100, WindowHeight: 100,
	}).Build()

	vp, ok := Resource[ViewportState](app)
	require.True(t, ok)
	q, _ := Resource[ResizeQueue](app)
	assert.Equal(t, uint64(1), vp.Revision())

	q.Push(windowResized{Width: 200, Height: 100})
	q.Push("garbage")
	app.RunFrames(1)

	assert.True(t, vp.Resized)
	assert.Equal(t, 1, vp.Dropped)
	assert.Equal(t, viewport.Geometry{ScaleX: 1, ScaleY: 1, OffsetX: 50}, vp.Geometry())
	assert.Equal(t, uint64(2), vp.Revision())
	assert.Zero(t, q.Len())

	x, y := vp.ToDesign(150, 50)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 50.0, y)

	// Same size again: no revision bump.
	q.Push(map[string]any{"size": []float64{200, 100}})
	app.RunFrames(1)
	assert.False(t, vp.Resized)
	assert.Equal(t, uint64(2), vp.Revision())
}
