package framepipe

import (
	"github.com/gekko3d/framepipe/pipeline/scene"
	"github.com/gekko3d/framepipe/pipeline/viewport"
	"github.com/go-gl/mathgl/mgl32"
)

// DrawItem is one primitive requested for this frame, in design space.
type DrawItem struct {
	Key    string
	Static bool
	Kind   scene.Kind
	Rect   scene.RectProps
	Grid   scene.GridProps
	Text   scene.TextProps
}

// DrawList is filled by game systems every frame and drained by the scene
// render system. An empty key makes a throwaway node for this frame only.
type DrawList struct {
	items []DrawItem
}

func (d *DrawList) Rect(key string, p scene.RectProps) {
	d.items = append(d.items, DrawItem{Key: key, Kind: scene.KindRect, Rect: p})
}

func (d *DrawList) Grid(key string, p scene.GridProps) {
	d.items = append(d.items, DrawItem{Key: key, Kind: scene.KindGrid, Grid: p})
}

func (d *DrawList) Text(key string, p scene.TextProps) {
	d.items = append(d.items, DrawItem{Key: key, Kind: scene.KindText, Text: p})
}

// Static returns a writer whose nodes stay visible on frames that do not
// mention them.
func (d *DrawList) Static() StaticDraws { return StaticDraws{d} }

func (d *DrawList) Items() []DrawItem { return d.items }
func (d *DrawList) Len() int          { return len(d.items) }
func (d *DrawList) Reset()            { d.items = d.items[:0] }

type StaticDraws struct{ d *DrawList }

func (s StaticDraws) Rect(key string, p scene.RectProps) {
	s.d.items = append(s.d.items, DrawItem{Key: key, Static: true, Kind: scene.KindRect, Rect: p})
}

func (s StaticDraws) Grid(key string, p scene.GridProps) {
	s.d.items = append(s.d.items, DrawItem{Key: key, Static: true, Kind: scene.KindGrid, Grid: p})
}

func (s StaticDraws) Text(key string, p scene.TextProps) {
	s.d.items = append(s.d.items, DrawItem{Key: key, Static: true, Kind: scene.KindText, Text: p})
}

// SceneState owns the retained cache for the app's provider.
type SceneState struct {
	Cache *scene.Cache
	Last  scene.FrameStats
	// Errors counts failed upserts since startup.
	Errors int

	epoch uint64
}

// Invalidate forces every keyed node to rebuild on the next frame, for
// backend changes the viewport does not see (e.g. a new surface size with
// an identity transform).
func (s *SceneState) Invalidate() { s.epoch++ }

// revision combines two monotonic counters, so it only ever grows.
func (s *SceneState) revision(vp *ViewportState) uint64 {
	return vp.Revision() + s.epoch
}

type SceneModule struct {
	Provider scene.Provider
}

func (m SceneModule) Install(app *App, cmd *Commands) {
	if m.Provider == nil {
		panic("scene module: nil provider")
	}
	if _, ok := Resource[ViewportState](app); !ok {
		app.Logger().Warnf("scene module installed without a viewport; drawing in window pixels")
		ViewportModule{}.Install(app, cmd)
	}

	state := &SceneState{Cache: scene.New(m.Provider, scene.WithLogger(loggerFunc(func(format string, args ...any) {
		app.Logger().Debugf(format, args...)
	})))}
	cmd.AddResources(state, &DrawList{})

	cmd.UseSystem(System(func(s *SceneState, d *DrawList, vp *ViewportState) {
		sceneRenderSystem(s, d, vp, app.profiler(), app.Logger())
	}).InStage(Render))
	app.OnClose(state.Cache.Reset)
}

type loggerFunc func(format string, args ...any)

func (f loggerFunc) Debugf(format string, args ...any) { f(format, args...) }

func sceneRenderSystem(s *SceneState, d *DrawList, vp *ViewportState, profiler *Profiler, logger Logger) {
	g := vp.Geometry()
	rev := s.revision(vp)

	s.Cache.BeginFrame()
	for _, item := range d.items {
		req := scene.Request{Key: item.Key, Static: item.Static, Revision: rev, At: placement(g, item)}

		var err error
		switch item.Kind {
		case scene.KindRect:
			_, err = s.Cache.UpsertRect(req, item.Rect)
		case scene.KindGrid:
			_, err = s.Cache.UpsertGrid(req, item.Grid)
		case scene.KindText:
			_, err = s.Cache.UpsertText(req, item.Text)
		}
		if err != nil {
			s.Errors++
			logger.Warnf("%v", err)
		}
	}
	s.Cache.FinalizeFrame()
	d.Reset()

	s.Last = s.Cache.Stats()
	if profiler != nil {
		s.Last.Each(profiler.SetCount)
	}
}

// placement converts an item's design-space box into window pixels.
func placement(g viewport.Geometry, item DrawItem) scene.Placement {
	scale := float32(g.UniformScale())

	switch item.Kind {
	case scene.KindRect:
		r := item.Rect
		pos, size := g.DeviceRect(float64(r.X), float64(r.Y), float64(r.W), float64(r.H))
		return scene.Placement{Pos: pos, Size: size, Scale: scale}
	case scene.KindGrid:
		r := item.Grid
		pos, size := g.DeviceRect(float64(r.X), float64(r.Y), float64(r.W), float64(r.H))
		return scene.Placement{Pos: pos, Size: size, Scale: scale}
	default:
		x, y := g.ToDevice(float64(item.Text.X), float64(item.Text.Y))
		return scene.Placement{Pos: mgl32.Vec2{float32(x), float32(y)}, Scale: scale}
	}
}
