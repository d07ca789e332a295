package scene_test

import (
	"errors"
	"testing"

	"github.com/gekko3d/framepipe/pipeline/headless"
	"github.com/gekko3d/framepipe/pipeline/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var white = mgl32.Vec4{1, 1, 1, 1}

func rectAt(x, y float32) (scene.Placement, scene.RectProps) {
	p := scene.RectProps{X: x, Y: y, W: 10, H: 10, Color: white}
	at := scene.Placement{Pos: mgl32.Vec2{x, y}, Size: mgl32.Vec2{10, 10}, Scale: 1}
	return at, p
}

func TestUpsert_IdenticalSecondCallIsFree(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)

	at, props := rectAt(1, 2)
	cache.BeginFrame()
	h1, err := cache.UpsertRect(scene.Request{Key: "panel", Revision: 1, At: at}, props)
	require.NoError(t, err)
	cache.FinalizeFrame()
	assert.Equal(t, 1, rec.Count("create_rect"))

	rec.ResetOps()
	cache.BeginFrame()
	h2, err := cache.UpsertRect(scene.Request{Key: "panel", Revision: 1, At: at}, props)
	require.NoError(t, err)
	cache.FinalizeFrame()

	assert.Same(t, h1, h2)
	assert.Equal(t, 0, rec.Mutations())
	assert.Equal(t, 1, cache.Stats().Skipped)
}

func TestUpsert_SinglePropertyChangeRebuildsOnce(t *testing.T) {
	at, rect := rectAt(0, 0)
	grid := scene.GridProps{W: 100, H: 50, Color: white, Columns: 4, Rows: 2, LineWidth: 1}
	text := scene.TextProps{X: 4, Y: 4, Text: "tick 1", Font: "default", Size: 10, Color: white}
	req := scene.Request{Key: "n", Revision: 3, At: at}

	withRect := func(f func(*scene.RectProps)) func(*scene.Cache) error {
		p := rect
		f(&p)
		return func(c *scene.Cache) error { _, err := c.UpsertRect(req, p); return err }
	}
	withGrid := func(f func(*scene.GridProps)) func(*scene.Cache) error {
		p := grid
		f(&p)
		return func(c *scene.Cache) error { _, err := c.UpsertGrid(req, p); return err }
	}
	withText := func(f func(*scene.TextProps)) func(*scene.Cache) error {
		p := text
		f(&p)
		return func(c *scene.Cache) error { _, err := c.UpsertText(req, p); return err }
	}

	tests := []struct {
		name    string
		op      string
		base    func(*scene.Cache) error
		changed func(*scene.Cache) error
	}{
		{"rect x", "update_rect", withRect(func(*scene.RectProps) {}), withRect(func(p *scene.RectProps) { p.X++ })},
		{"rect h", "update_rect", withRect(func(*scene.RectProps) {}), withRect(func(p *scene.RectProps) { p.H = 99 })},
		{"rect color", "update_rect", withRect(func(*scene.RectProps) {}), withRect(func(p *scene.RectProps) { p.Color = mgl32.Vec4{1, 0, 0, 1} })},
		{"rect border", "update_rect", withRect(func(*scene.RectProps) {}), withRect(func(p *scene.RectProps) { p.BorderWidth = 2 })},
		{"grid columns", "update_grid", withGrid(func(*scene.GridProps) {}), withGrid(func(p *scene.GridProps) { p.Columns = 8 })},
		{"grid rows", "update_grid", withGrid(func(*scene.GridProps) {}), withGrid(func(p *scene.GridProps) { p.Rows = 3 })},
		{"grid line width", "update_grid", withGrid(func(*scene.GridProps) {}), withGrid(func(p *scene.GridProps) { p.LineWidth = 2 })},
		{"text content", "update_text", withText(func(*scene.TextProps) {}), withText(func(p *scene.TextProps) { p.Text = "tick 2" })},
		{"text font", "update_text", withText(func(*scene.TextProps) {}), withText(func(p *scene.TextProps) { p.Font = "mono" })},
		{"text anchor", "update_text", withText(func(*scene.TextProps) {}), withText(func(p *scene.TextProps) { p.Anchor = scene.AnchorCenter })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := headless.NewRecorder()
			cache := scene.New(rec)
			cache.BeginFrame()
			require.NoError(t, tt.base(cache))

			rec.ResetOps()
			require.NoError(t, tt.changed(cache))
			assert.Equal(t, 1, rec.Mutations())
			assert.Equal(t, 1, rec.Count(tt.op))
			assert.Equal(t, 1, cache.Stats().Rebuilt)
			assert.Equal(t, 1, rec.Allocated(), "updates never allocate a new handle")

			rec.ResetOps()
			require.NoError(t, tt.changed(cache))
			assert.Zero(t, rec.Mutations(), "repeating the change is free")
		})
	}
}

func TestUpsert_UpdateErrorKeepsOldPropsAndHides(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)

	at, props := rectAt(0, 0)
	cache.BeginFrame()
	h, err := cache.UpsertRect(scene.Request{Key: "r", Revision: 1, At: at}, props)
	require.NoError(t, err)
	cache.FinalizeFrame()

	moved := props
	moved.X = 40
	rec.FailUpdate = errors.New("device lost")
	cache.BeginFrame()
	_, err = cache.UpsertRect(scene.Request{Key: "r", Revision: 1, At: at}, moved)
	require.Error(t, err)
	cache.FinalizeFrame()

	node := h.(*headless.Node)
	assert.False(t, cache.Visible("r"), "a failed update does not mark the node seen")
	assert.False(t, node.Visible)
	assert.Equal(t, props, node.Props)
	assert.Equal(t, 1, cache.Stats().Hidden)

	rec.ResetOps()
	cache.BeginFrame()
	again, err := cache.UpsertRect(scene.Request{Key: "r", Revision: 1, At: at}, moved)
	require.NoError(t, err)
	cache.FinalizeFrame()

	assert.Same(t, h, again)
	assert.Equal(t, 1, rec.Count("update_rect"), "old props are kept, so the change is retried")
	assert.Equal(t, 1, rec.Count("show"))
	assert.Equal(t, moved, node.Props)
	assert.True(t, cache.Visible("r"))
}

func TestUpsert_ViewportRevisionForcesRebuild(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)

	at, props := rectAt(5, 5)
	cache.BeginFrame()
	_, err := cache.UpsertRect(scene.Request{Key: "r", Revision: 1, At: at}, props)
	require.NoError(t, err)
	cache.FinalizeFrame()

	rec.ResetOps()
	cache.BeginFrame()
	bigger := scene.Placement{Pos: mgl32.Vec2{10, 10}, Size: mgl32.Vec2{20, 20}, Scale: 2}
	h, err := cache.UpsertRect(scene.Request{Key: "r", Revision: 2, At: bigger}, props)
	require.NoError(t, err)
	cache.FinalizeFrame()

	assert.Equal(t, 1, rec.Mutations())
	assert.Equal(t, 1, rec.Count("update_rect"))
	assert.Equal(t, bigger, h.(*headless.Node).At)
	assert.Equal(t, 1, cache.Stats().Rebuilt)
}

func TestFinalizeFrame_HidesUntouchedAndReshowsSameHandle(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)

	at, props := rectAt(0, 0)
	cache.BeginFrame()
	row, err := cache.UpsertRect(scene.Request{Key: "row.3", Revision: 1, At: at}, props)
	require.NoError(t, err)
	cache.FinalizeFrame()
	assert.True(t, cache.Visible("row.3"))

	cache.BeginFrame()
	cache.FinalizeFrame()
	assert.False(t, cache.Visible("row.3"))
	assert.False(t, row.(*headless.Node).Visible)
	assert.Equal(t, 1, cache.Stats().Hidden)

	rec.ResetOps()
	cache.BeginFrame()
	again, err := cache.UpsertRect(scene.Request{Key: "row.3", Revision: 1, At: at}, props)
	require.NoError(t, err)
	cache.FinalizeFrame()

	assert.Same(t, row, again)
	assert.True(t, cache.Visible("row.3"))
	assert.Equal(t, 1, rec.Allocated())
	assert.Equal(t, []headless.Op{{Name: "show", ID: row.(*headless.Node).ID}}, rec.Ops())
}

func TestFinalizeFrame_StaticNodesStayVisible(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)

	cache.BeginFrame()
	_, err := cache.UpsertGrid(scene.Request{Key: "board", Static: true, Revision: 1},
		scene.GridProps{W: 100, H: 100, Columns: 10, Rows: 10, Color: white, LineWidth: 1})
	require.NoError(t, err)
	_, err = cache.UpsertText(scene.Request{Key: "hint", Revision: 1},
		scene.TextProps{Text: "press space", Size: 12, Color: white})
	require.NoError(t, err)
	cache.FinalizeFrame()

	for i := 0; i < 3; i++ {
		cache.BeginFrame()
		cache.FinalizeFrame()
	}

	assert.True(t, cache.Static("board"))
	assert.True(t, cache.Visible("board"))
	assert.False(t, cache.Visible("hint"))
	assert.Empty(t, cache.ActiveKeys())
}

func TestUpsert_StaticFlagFollowsLatestRequest(t *testing.T) {
	cache := scene.New(headless.NewRecorder())

	cache.BeginFrame()
	_, err := cache.UpsertText(scene.Request{Key: "title", Static: true}, scene.TextProps{Text: "A"})
	require.NoError(t, err)
	cache.FinalizeFrame()

	cache.BeginFrame()
	_, err = cache.UpsertText(scene.Request{Key: "title"}, scene.TextProps{Text: "A"})
	require.NoError(t, err)
	cache.FinalizeFrame()
	assert.False(t, cache.Static("title"))

	cache.BeginFrame()
	cache.FinalizeFrame()
	assert.False(t, cache.Visible("title"))
}

func TestUpsert_EphemeralNodesAreNeverReused(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)

	at, props := rectAt(0, 0)
	cache.BeginFrame()
	a, err := cache.UpsertRect(scene.Request{At: at}, props)
	require.NoError(t, err)
	b, err := cache.UpsertRect(scene.Request{At: at}, props)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Len(t, cache.Ephemeral(), 2)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 2, cache.Stats().Ephemeral)
	cache.FinalizeFrame()

	cache.BeginFrame()
	assert.Empty(t, cache.Ephemeral())
	assert.True(t, a.(*headless.Node).Released)
	assert.True(t, b.(*headless.Node).Released)
	assert.Empty(t, rec.Visible())
}

func TestUpsert_KindChangeReplacesHandle(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)

	cache.BeginFrame()
	old, err := cache.UpsertRect(scene.Request{Key: "slot"}, scene.RectProps{W: 1, H: 1})
	require.NoError(t, err)
	repl, err := cache.UpsertText(scene.Request{Key: "slot"}, scene.TextProps{Text: "x"})
	require.NoError(t, err)
	cache.FinalizeFrame()

	assert.NotSame(t, old, repl)
	assert.True(t, old.(*headless.Node).Released)
	assert.Equal(t, scene.KindText, repl.(*headless.Node).Kind)
	assert.Equal(t, 1, cache.Len())
}

func TestUpsert_ProviderErrorLeavesNoRecord(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)
	boom := errors.New("out of device memory")
	rec.FailCreate = boom

	cache.BeginFrame()
	_, err := cache.UpsertRect(scene.Request{Key: "r"}, scene.RectProps{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	_, err = cache.UpsertRect(scene.Request{Key: "r"}, scene.RectProps{})
	require.NoError(t, err, "the next frame retries creation")
	assert.Equal(t, 1, cache.Len())
}

func TestRemove_FreesSlotForReuse(t *testing.T) {
	rec := headless.NewRecorder()
	cache := scene.New(rec)

	cache.BeginFrame()
	a, _ := cache.UpsertRect(scene.Request{Key: "a"}, scene.RectProps{})
	_, _ = cache.UpsertRect(scene.Request{Key: "b"}, scene.RectProps{})
	assert.True(t, cache.Remove("a"))
	assert.False(t, cache.Remove("a"))
	assert.True(t, a.(*headless.Node).Released)

	_, _ = cache.UpsertRect(scene.Request{Key: "c"}, scene.RectProps{})
	assert.Equal(t, []string{"b", "c"}, cache.Keys())
	assert.Equal(t, []string{"b", "c"}, cache.ActiveKeys())

	_, ok := cache.Handle("a")
	assert.False(t, ok)

	cache.Reset()
	assert.Equal(t, 0, cache.Len())
	assert.Empty(t, rec.Visible())
}

func TestAnchorOffset(t *testing.T) {
	fx, fy := scene.AnchorCenter.Offset()
	assert.Equal(t, float32(0.5), fx)
	assert.Equal(t, float32(0.5), fy)

	fx, fy = scene.AnchorBottomRight.Offset()
	assert.Equal(t, float32(1), fx)
	assert.Equal(t, float32(1), fy)

	fx, fy = scene.AnchorTopLeft.Offset()
	assert.Zero(t, fx)
	assert.Zero(t, fy)
}

func TestDiscard_FallsBackToHide(t *testing.T) {
	rec := headless.NewRecorder()
	// Embedding only the interface hides the recorder's Release method.
	p := struct{ scene.Provider }{rec}
	cache := scene.New(p)

	cache.BeginFrame()
	h, err := cache.UpsertRect(scene.Request{}, scene.RectProps{})
	require.NoError(t, err)
	cache.BeginFrame()

	n := h.(*headless.Node)
	assert.False(t, n.Released)
	assert.False(t, n.Visible)
}
