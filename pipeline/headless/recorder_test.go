package headless

import (
	"testing"

	"github.com/gekko3d/framepipe/pipeline/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Lifecycle(t *testing.T) {
	r := NewRecorder()

	h, err := r.CreateText(scene.Placement{Scale: 1}, scene.TextProps{Text: "hi"})
	require.NoError(t, err)
	n := h.(*Node)
	assert.True(t, n.Visible)
	assert.Equal(t, scene.KindText, n.Kind)

	require.NoError(t, r.UpdateText(h, scene.Placement{Scale: 2}, scene.TextProps{Text: "ho"}))
	assert.Equal(t, 1, n.Updates)
	assert.Equal(t, float32(2), n.At.Scale)

	r.SetVisible(h, false)
	assert.Empty(t, r.Visible())

	r.Release(h)
	r.Release(h)
	assert.Equal(t, 1, r.Count("release"))

	names := make([]string, 0, len(r.Ops()))
	for _, op := range r.Ops() {
		names = append(names, op.Name)
		assert.Equal(t, n.ID, op.ID)
	}
	assert.Equal(t, []string{"create_text", "update_text", "hide", "release"}, names)
}

func TestRecorder_RejectsForeignAndMismatchedHandles(t *testing.T) {
	r := NewRecorder()
	other := NewRecorder()

	h, err := other.CreateRect(scene.Placement{}, scene.RectProps{})
	require.NoError(t, err)
	assert.ErrorIs(t, r.UpdateRect(h, scene.Placement{}, scene.RectProps{}), ErrForeignHandle)
	assert.ErrorIs(t, r.UpdateRect("not a node", scene.Placement{}, scene.RectProps{}), ErrForeignHandle)

	own, err := r.CreateRect(scene.Placement{}, scene.RectProps{})
	require.NoError(t, err)
	assert.Error(t, r.UpdateGrid(own, scene.Placement{}, scene.GridProps{}))
	assert.Equal(t, 1, r.Mutations())
}
