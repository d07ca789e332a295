package viewport

// Tracker owns the current window→design mapping and its revision. The
// revision only advances when the computed Geometry actually changes, so
// retained nodes keyed on it rebuild once per real resize rather than every
// frame.
type Tracker struct {
	designW, designH float64
	preserveAspect   bool

	windowW, windowH float64
	geometry         Geometry
	revision         uint64
}

func NewTracker(designW, designH float64, preserveAspect bool) *Tracker {
	return &Tracker{
		designW:        designW,
		designH:        designH,
		preserveAspect: preserveAspect,
		geometry:       Identity,
	}
}

// Update recomputes the geometry for a new window size and reports whether
// the revision was bumped.
func (t *Tracker) Update(windowW, windowH float64) bool {
	t.windowW, t.windowH = windowW, windowH
	return t.apply(Transform(windowW, windowH, t.designW, t.designH, t.preserveAspect))
}

// SetPreserveAspect switches between letterboxing and stretching.
func (t *Tracker) SetPreserveAspect(preserve bool) bool {
	if preserve == t.preserveAspect {
		return false
	}
	t.preserveAspect = preserve
	return t.apply(Transform(t.windowW, t.windowH, t.designW, t.designH, preserve))
}

func (t *Tracker) apply(g Geometry) bool {
	if g == t.geometry {
		return false
	}
	t.geometry = g
	t.revision++
	return true
}

func (t *Tracker) Geometry() Geometry { return t.geometry }
func (t *Tracker) Revision() uint64   { return t.revision }

func (t *Tracker) WindowSize() (float64, float64) { return t.windowW, t.windowH }
func (t *Tracker) DesignSize() (float64, float64) { return t.designW, t.designH }
func (t *Tracker) PreserveAspect() bool           { return t.preserveAspect }
