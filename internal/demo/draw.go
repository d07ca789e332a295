package demo

import (
	"fmt"
	"strconv"

	"github.com/gekko3d/framepipe"
	"github.com/gekko3d/framepipe/pipeline/scene"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	arenaColor  = mgl32.Vec4{0.25, 0.28, 0.35, 1}
	borderColor = mgl32.Vec4{0.6, 0.65, 0.75, 1}
	textColor   = mgl32.Vec4{0.9, 0.9, 0.9, 1}
	warnColor   = mgl32.Vec4{1, 0.55, 0.2, 1}
)

// Scene turns the latest World snapshot into draw requests. Keys are cached
// so steady frames do not allocate.
type Scene struct {
	Width, Height float32
	Title         string

	keys []string
	hud  string
}

func NewScene(width, height float32, title string) *Scene {
	return &Scene{Width: width, Height: height, Title: title}
}

func (s *Scene) boxKey(id int) string {
	for len(s.keys) <= id {
		s.keys = append(s.keys, "box."+strconv.Itoa(len(s.keys)))
	}
	return s.keys[id]
}

// Draw fills d for one frame. Boxes come only from view; the HUD line
// changes once per received snapshot, not per frame.
func (s *Scene) Draw(d *framepipe.DrawList, view *framepipe.SnapshotView[World], fixed *framepipe.FixedTime) {
	static := d.Static()
	static.Grid("arena.grid", scene.GridProps{
		W:         s.Width,
		H:         s.Height,
		Color:     arenaColor,
		Columns:   16,
		Rows:      9,
		LineWidth: 1,
	})
	static.Rect("arena.border", scene.RectProps{
		W:           s.Width,
		H:           s.Height,
		Color:       borderColor,
		BorderWidth: 2,
	})
	static.Text("title", scene.TextProps{X: 8, Y: 8, Text: s.Title, Size: 12, Color: textColor})

	if !view.Valid {
		d.Text("status", scene.TextProps{
			X:      s.Width / 2,
			Y:      s.Height / 2,
			Text:   "waiting for snapshot",
			Size:   16,
			Color:  warnColor,
			Anchor: scene.AnchorCenter,
		})
		return
	}

	w := view.Value
	sx, sy := float32(1), float32(1)
	if w.Width > 0 && w.Height > 0 {
		sx, sy = s.Width/w.Width, s.Height/w.Height
	}
	for _, b := range w.Boxes {
		d.Rect(s.boxKey(b.ID), scene.RectProps{
			X:     b.Pos.X() * sx,
			Y:     b.Pos.Y() * sy,
			W:     b.Size.X() * sx,
			H:     b.Size.Y() * sy,
			Color: b.Color,
		})
	}

	if view.Fresh || s.hud == "" {
		s.hud = fmt.Sprintf("tick %d  boxes %d  snapshot %d", w.Tick, len(w.Boxes), view.Seq)
	}
	d.Text("hud.stats", scene.TextProps{
		X:      s.Width - 8,
		Y:      8,
		Text:   s.hud,
		Size:   10,
		Color:  textColor,
		Anchor: scene.AnchorTopRight,
	})

	if fixed != nil && fixed.Behind {
		d.Text("", scene.TextProps{
			X:      s.Width / 2,
			Y:      s.Height - 8,
			Text:   "simulation behind",
			Size:   10,
			Color:  warnColor,
			Anchor: scene.AnchorBottom,
		})
	}
}

// DrawModule draws Scene in PreRender. Install it after the SnapshotModule so the
// view is already updated when it runs.
type DrawModule struct {
	Scene *Scene
}

func (m DrawModule) Install(app *framepipe.App, cmd *framepipe.Commands) {
	cmd.UseSystem(framepipe.System(func(d *framepipe.DrawList, view *framepipe.SnapshotView[World], fixed *framepipe.FixedTime) {
		m.Scene.Draw(d, view, fixed)
	}).InStage(framepipe.PreRender))
}
