package main

import (
	"github.com/gekko3d/framepipe"
	"github.com/gekko3d/framepipe/platform"
	"github.com/gekko3d/framepipe/render/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// windowModule pumps the native window into the frame pipeline and presents
// the scene at the end of every frame.
type windowModule struct {
	window   *platform.Window
	gfx      *gpu.Context
	provider *gpu.Provider
}

func (m windowModule) Install(app *framepipe.App, cmd *framepipe.Commands) {
	cmd.UseSystem(framepipe.System(func(cmd *framepipe.Commands, q *framepipe.ResizeQueue, s *framepipe.SceneState) {
		m.window.PollEvents()
		if m.window.ShouldClose() {
			cmd.Exit()
		}

		resizes := m.window.DrainResizes()
		for _, ev := range resizes {
			q.Push(ev)
		}
		if n := len(resizes); n > 0 {
			last := resizes[n-1]
			if m.gfx.Resize(last.Width, last.Height) {
				m.provider.SetScreen(last.Width, last.Height)
				s.Invalidate()
			}
		}

		for _, key := range m.window.DrainKeys() {
			if key.Key == glfw.KeyF3 && key.Pressed {
				logger := app.Logger()
				logger.SetDebug(!logger.DebugEnabled())
			}
		}
	}).InStage(framepipe.PreUpdate))

	cmd.UseSystem(framepipe.System(func() {
		if err := m.gfx.Frame(m.provider.Draw); err != nil {
			app.Logger().Warnf("present: %v", err)
		}
	}).InStage(framepipe.PostRender))
}
