package mesh

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const atlasSize = 512

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// Atlas is a single-channel glyph texture for printable ASCII plus the
// metrics needed to lay text out against it.
type Atlas struct {
	Image      *image.Alpha
	Glyphs     map[rune]GlyphInfo
	Ascent     float32
	LineHeight float32
	PixelSize  float32 // nominal size the face was rasterised at
}

// DefaultAtlas rasterises the built-in 7x13 bitmap face; it needs no font file.
func DefaultAtlas() *Atlas {
	return NewAtlas(basicfont.Face7x13, 13)
}

// LoadAtlas parses an OpenType/TrueType file and rasterises it at pixelSize.
func LoadAtlas(fontPath string, pixelSize float64) (*Atlas, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}

	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    pixelSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}
	defer face.Close()

	return NewAtlas(face, float32(pixelSize)), nil
}

func NewAtlas(face font.Face, pixelSize float32) *Atlas {
	img := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		dr, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w, h := dr.Dx(), dr.Dy()
		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}

		draw.Draw(img, image.Rect(x, y, x+w, y+h), mask, maskp, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(dr.Min.X), float32(dr.Min.Y)},
			Adv:   float32(adv) / 64.0,
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	metrics := face.Metrics()
	return &Atlas{
		Image:      img,
		Glyphs:     glyphs,
		Ascent:     float32(metrics.Ascent.Ceil()),
		LineHeight: float32(metrics.Height.Ceil()),
		PixelSize:  pixelSize,
	}
}

// Measure returns the width and height of text at the given glyph scale.
func (a *Atlas) Measure(text string, scale float32) (float32, float32) {
	if a == nil {
		return 0, 0
	}

	maxW := float32(0)
	currentW := float32(0)
	lines := 1

	for _, r := range text {
		if r == '\n' {
			if currentW > maxW {
				maxW = currentW
			}
			currentW = 0
			lines++
			continue
		}

		g, ok := a.Glyphs[r]
		if !ok {
			continue
		}
		currentW += g.Adv * scale
	}

	if currentW > maxW {
		maxW = currentW
	}
	return maxW, a.LineHeight * scale * float32(lines)
}
