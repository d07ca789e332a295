package scene

import "github.com/go-gl/mathgl/mgl32"

// Kind identifies the primitive type held by a node.
type Kind uint8

const (
	KindRect Kind = iota
	KindGrid
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindGrid:
		return "grid"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Handle is an opaque backend resource. Only the cache mutates it.
type Handle any

// Placement is the device-space (window pixel) geometry of a node, already
// derived from the viewport transform.
type Placement struct {
	Pos   mgl32.Vec2 // top-left
	Size  mgl32.Vec2
	Scale float32 // uniform scale applied to glyphs and line widths
}

// RectProps describes a rectangle in design space.
type RectProps struct {
	X, Y, W, H  float32
	Color       mgl32.Vec4
	BorderWidth float32 // 0 draws a filled rectangle
}

// GridProps describes evenly spaced grid lines covering a rectangle.
type GridProps struct {
	X, Y, W, H    float32
	Color         mgl32.Vec4
	Columns, Rows int
	LineWidth     float32
}

type Anchor uint8

const (
	AnchorTopLeft Anchor = iota
	AnchorTop
	AnchorTopRight
	AnchorLeft
	AnchorCenter
	AnchorRight
	AnchorBottomLeft
	AnchorBottom
	AnchorBottomRight
)

// Offset returns the fraction of the text extent to shift left/up so the
// anchor point lands on the node position.
func (a Anchor) Offset() (fx, fy float32) {
	fx = float32(int(a)%3) / 2
	fy = float32(int(a)/3) / 2
	return fx, fy
}

// TextProps describes a text label in design space.
type TextProps struct {
	X, Y   float32
	Text   string
	Font   string
	Size   float32
	Color  mgl32.Vec4
	Anchor Anchor
}

// Provider is the graphics backend the cache drives. Handles are created
// visible; Update* mutates an existing handle in place.
type Provider interface {
	CreateRect(at Placement, p RectProps) (Handle, error)
	UpdateRect(h Handle, at Placement, p RectProps) error
	CreateGrid(at Placement, p GridProps) (Handle, error)
	UpdateGrid(h Handle, at Placement, p GridProps) error
	CreateText(at Placement, p TextProps) (Handle, error)
	UpdateText(h Handle, at Placement, p TextProps) error
	SetVisible(h Handle, visible bool)
}

// Releaser is implemented by providers that can free a handle outright.
// Without it, discarded handles are only hidden.
type Releaser interface {
	Release(h Handle)
}
