// Package mesh turns scene primitives into triangle lists in normalized device
// coordinates. Solid geometry marks its UV with a negative u so a single
// pipeline can draw shapes and atlas glyphs.
package mesh

import (
	"github.com/gekko3d/framepipe/pipeline/scene"
	"github.com/go-gl/mathgl/mgl32"
)

type Vertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

var solidUV = [2]float32{-1, -1}

// Screen is the render target size in pixels.
type Screen struct {
	Width, Height float32
}

func (s Screen) ndc(x, y float32) [2]float32 {
	if s.Width <= 0 || s.Height <= 0 {
		return [2]float32{}
	}
	return [2]float32{x/s.Width*2.0 - 1.0, 1.0 - y/s.Height*2.0}
}

// quad appends two triangles covering the pixel rectangle (x0,y0)-(x1,y1).
func (s Screen) quad(out []Vertex, x0, y0, x1, y1 float32, uv0, uv1 [2]float32, color mgl32.Vec4) []Vertex {
	c := [4]float32(color)
	p00, p10 := s.ndc(x0, y0), s.ndc(x1, y0)
	p01, p11 := s.ndc(x0, y1), s.ndc(x1, y1)
	u00, u10 := uv0, [2]float32{uv1[0], uv0[1]}
	u01, u11 := [2]float32{uv0[0], uv1[1]}, uv1

	return append(out,
		Vertex{Pos: p00, UV: u00, Color: c},
		Vertex{Pos: p10, UV: u10, Color: c},
		Vertex{Pos: p01, UV: u01, Color: c},
		Vertex{Pos: p10, UV: u10, Color: c},
		Vertex{Pos: p11, UV: u11, Color: c},
		Vertex{Pos: p01, UV: u01, Color: c},
	)
}

func (s Screen) solid(out []Vertex, x0, y0, x1, y1 float32, color mgl32.Vec4) []Vertex {
	return s.quad(out, x0, y0, x1, y1, solidUV, solidUV, color)
}

// Rect builds a filled rectangle, or a frame when BorderWidth is set.
func Rect(s Screen, at scene.Placement, p scene.RectProps) []Vertex {
	x0, y0 := at.Pos.X(), at.Pos.Y()
	x1, y1 := x0+at.Size.X(), y0+at.Size.Y()

	if p.BorderWidth <= 0 {
		return s.solid(make([]Vertex, 0, 6), x0, y0, x1, y1, p.Color)
	}

	b := strokeWidth(p.BorderWidth, at.Scale)
	out := make([]Vertex, 0, 24)
	out = s.solid(out, x0, y0, x1, y0+b, p.Color)
	out = s.solid(out, x0, y1-b, x1, y1, p.Color)
	out = s.solid(out, x0, y0+b, x0+b, y1-b, p.Color)
	out = s.solid(out, x1-b, y0+b, x1, y1-b, p.Color)
	return out
}

// Grid builds Columns+1 vertical and Rows+1 horizontal lines spanning the
// placement. Non-positive counts draw just the outer edges on that axis.
func Grid(s Screen, at scene.Placement, p scene.GridProps) []Vertex {
	cols, rows := max(p.Columns, 1), max(p.Rows, 1)
	x0, y0 := at.Pos.X(), at.Pos.Y()
	w, h := at.Size.X(), at.Size.Y()
	lw := strokeWidth(p.LineWidth, at.Scale)
	half := lw / 2

	out := make([]Vertex, 0, (cols+rows+2)*6)
	for i := 0; i <= cols; i++ {
		x := x0 + w*float32(i)/float32(cols)
		out = s.solid(out, x-half, y0-half, x+half, y0+h+half, p.Color)
	}
	for j := 0; j <= rows; j++ {
		y := y0 + h*float32(j)/float32(rows)
		out = s.solid(out, x0-half, y-half, x0+w+half, y+half, p.Color)
	}
	return out
}

// Text lays out glyph quads anchored at the placement position.
func Text(s Screen, a *Atlas, at scene.Placement, p scene.TextProps) []Vertex {
	if a == nil || p.Text == "" {
		return nil
	}

	scale := GlyphScale(a, at, p)
	tw, th := a.Measure(p.Text, scale)
	fx, fy := p.Anchor.Offset()

	startX := at.Pos.X() - tw*fx
	posX := startX
	posY := at.Pos.Y() - th*fy + a.Ascent*scale

	out := make([]Vertex, 0, len(p.Text)*6)
	for _, r := range p.Text {
		if r == '\n' {
			posX = startX
			posY += a.LineHeight * scale
			continue
		}

		g, ok := a.Glyphs[r]
		if !ok {
			continue
		}

		gx0 := posX + g.Off[0]*scale
		gy0 := posY + g.Off[1]*scale
		gx1 := gx0 + g.Size[0]*scale
		gy1 := gy0 + g.Size[1]*scale
		out = s.quad(out, gx0, gy0, gx1, gy1, g.UVMin, g.UVMax, p.Color)

		posX += g.Adv * scale
	}
	return out
}

// GlyphScale converts the requested text size into a multiplier on the
// atlas raster size, including the viewport scale.
func GlyphScale(a *Atlas, at scene.Placement, p scene.TextProps) float32 {
	scale := at.Scale
	if scale <= 0 {
		scale = 1
	}
	if p.Size > 0 && a.PixelSize > 0 {
		scale *= p.Size / a.PixelSize
	}
	return scale
}

func strokeWidth(w, scale float32) float32 {
	if scale > 0 {
		w *= scale
	}
	if w < 1 {
		return 1
	}
	return w
}
