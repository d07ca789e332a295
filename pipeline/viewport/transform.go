package viewport

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Geometry maps the fixed design space onto window pixels:
// device = design*scale + offset, per axis.
type Geometry struct {
	ScaleX, ScaleY   float64
	OffsetX, OffsetY float64
}

// Identity is returned for degenerate design dimensions.
var Identity = Geometry{ScaleX: 1, ScaleY: 1}

// Transform computes the design→window mapping. With preserveAspect the design
// rectangle is scaled uniformly and centred (letterbox / pillarbox); otherwise
// each axis stretches independently to fill the window.
func Transform(windowW, windowH, designW, designH float64, preserveAspect bool) Geometry {
	if designW <= 0 || designH <= 0 {
		return Identity
	}

	sx := windowW / designW
	sy := windowH / designH
	if !preserveAspect {
		return Geometry{ScaleX: sx, ScaleY: sy}
	}

	s := math.Min(sx, sy)
	return Geometry{
		ScaleX:  s,
		ScaleY:  s,
		OffsetX: (windowW - designW*s) / 2,
		OffsetY: (windowH - designH*s) / 2,
	}
}

// ToDevice maps a design-space point to window pixels.
func (g Geometry) ToDevice(x, y float64) (float64, float64) {
	return x*g.ScaleX + g.OffsetX, y*g.ScaleY + g.OffsetY
}

// ToDesign maps a window pixel back to design space. A non-positive scale
// (zero-sized window) returns the input unchanged.
func (g Geometry) ToDesign(x, y float64) (float64, float64) {
	if g.ScaleX <= 0 || g.ScaleY <= 0 {
		return x, y
	}
	return (x - g.OffsetX) / g.ScaleX, (y - g.OffsetY) / g.ScaleY
}

// ToDesignSpace is the free-standing form of Geometry.ToDesign.
func ToDesignSpace(x, y, windowW, windowH, designW, designH float64, preserveAspect bool) (float64, float64) {
	return Transform(windowW, windowH, designW, designH, preserveAspect).ToDesign(x, y)
}

// DeviceRect maps a design-space rectangle to pixel position and size.
func (g Geometry) DeviceRect(x, y, w, h float64) (pos, size mgl32.Vec2) {
	dx, dy := g.ToDevice(x, y)
	return mgl32.Vec2{float32(dx), float32(dy)},
		mgl32.Vec2{float32(w * g.ScaleX), float32(h * g.ScaleY)}
}

// UniformScale is the scale used for glyph sizes; with stretched axes the
// smaller one keeps text from overflowing its box.
func (g Geometry) UniformScale() float64 {
	return math.Min(g.ScaleX, g.ScaleY)
}
