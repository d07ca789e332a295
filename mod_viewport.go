package framepipe

import (
	"github.com/gekko3d/framepipe/pipeline/viewport"
)

// ResizeQueue collects raw resize payloads from the platform layer. Any shape
// viewport.ResizeDimensions understands is accepted; the rest are dropped.
type ResizeQueue struct {
	events []any
}

func (q *ResizeQueue) Push(event any) {
	q.events = append(q.events, event)
}

func (q *ResizeQueue) Len() int { return len(q.events) }

func (q *ResizeQueue) drain() []any {
	events := q.events
	q.events = q.events[:0]
	return events
}

// ViewportState is the current design→window mapping. Resized is set on
// frames where the geometry changed.
type ViewportState struct {
	*viewport.Tracker
	Resized bool
	Dropped int
}

// ToDesign maps a window-space point (cursor) into design space.
func (s *ViewportState) ToDesign(x, y float64) (float64, float64) {
	return s.Geometry().ToDesign(x, y)
}

type ViewportModule struct {
	DesignWidth    float64
	DesignHeight   float64
	PreserveAspect bool
	// Initial window size; zero leaves the identity transform until the
	// first resize event arrives.
	WindowWidth  float64
	WindowHeight float64
}

func (m ViewportModule) Install(app *App, cmd *Commands) {
	tracker := viewport.NewTracker(m.DesignWidth, m.DesignHeight, m.PreserveAspect)
	if m.WindowWidth > 0 && m.WindowHeight > 0 {
		tracker.Update(m.WindowWidth, m.WindowHeight)
	}

	cmd.AddResources(&ViewportState{Tracker: tracker}, &ResizeQueue{})
	cmd.UseSystem(System(func(q *ResizeQueue, s *ViewportState) {
		viewportSystem(q, s, app.Logger())
	}).InStage(PreUpdate))
}

func viewportSystem(q *ResizeQueue, s *ViewportState, logger Logger) {
	s.Resized = false
	for _, event := range q.drain() {
		w, h, ok := viewport.ResizeDimensions(event)
		if !ok {
			s.Dropped++
			logger.Debugf("ignoring resize payload %T", event)
			continue
		}
		if s.Update(w, h) {
			s.Resized = true
			logger.Debugf("viewport %vx%v -> %+v (rev %d)", w, h, s.Geometry(), s.Revision())
		}
	}
}
