// Package platform owns the native GLFW window and turns its callbacks into
// plain events the frame pipeline can consume.
package platform

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	DefaultTitle  = "framepipe"
)

// ResizeEvent is pushed for every framebuffer size change. Field names match
// what viewport.ResizeDimensions looks for.
type ResizeEvent struct {
	Width  int
	Height int
}

type KeyEvent struct {
	Key     glfw.Key
	Pressed bool
}

type Window struct {
	glfw   *glfw.Window
	title  string
	resize []ResizeEvent
	keys   []KeyEvent
}

// Open initialises GLFW and creates a resizable window without a client API.
// Must be called from the main goroutine.
func Open(width, height int, title string) (*Window, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if title == "" {
		title = DefaultTitle
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	w := &Window{glfw: win, title: title}
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resize = append(w.resize, ResizeEvent{Width: width, Height: height})
	})
	win.SetKeyCallback(func(gw *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.SetShouldClose(true)
		}
		w.keys = append(w.keys, KeyEvent{Key: key, Pressed: action == glfw.Press})
	})

	// Seed the pipeline with the initial size; HiDPI framebuffers differ from
	// the requested window size.
	fw, fh := win.GetFramebufferSize()
	w.resize = append(w.resize, ResizeEvent{Width: fw, Height: fh})
	return w, nil
}

func (w *Window) PollEvents()       { glfw.PollEvents() }
func (w *Window) ShouldClose() bool { return w.glfw.ShouldClose() }
func (w *Window) Close()            { w.glfw.SetShouldClose(true) }
func (w *Window) Title() string     { return w.title }

func (w *Window) FramebufferSize() (int, int) {
	return w.glfw.GetFramebufferSize()
}

// DrainResizes returns the resize events collected since the last call.
func (w *Window) DrainResizes() []ResizeEvent {
	out := w.resize
	w.resize = nil
	return out
}

func (w *Window) DrainKeys() []KeyEvent {
	out := w.keys
	w.keys = nil
	return out
}

func (w *Window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.glfw)
}

// Now returns GLFW's monotonic clock in seconds.
func Now() float64 { return glfw.GetTime() }

func (w *Window) Destroy() {
	w.glfw.Destroy()
	glfw.Terminate()
}
