// Package compose burns captions into illustrations and binds pages into a PDF.
package compose

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Layout controls the caption panel geometry and colours.
type Layout struct {
	PanelRatio float64
	Padding    int
	TitleGap   int
	LineGap    int
	PanelColor color.RGBA
	TitleColor color.RGBA
	BodyColor  color.RGBA
}

// DefaultLayout is a pale blue panel on the bottom 26% of the page.
func DefaultLayout() Layout {
	return Layout{
		PanelRatio: 0.26,
		Padding:    24,
		TitleGap:   8,
		LineGap:    6,
		PanelColor: color.RGBA{R: 235, G: 242, B: 252, A: 255},
		TitleColor: color.RGBA{R: 62, G: 82, B: 120, A: 255},
		BodyColor:  color.RGBA{R: 30, G: 41, B: 59, A: 255},
	}
}

// Default font sizes; the title is larger than the body.
const (
	DefaultTitleSize = 32
	DefaultBodySize  = 26
)

// Renderer draws caption panels.
type Renderer struct {
	layout Layout
	faces  Faces
}

// NewRenderer uses DefaultLayout and the default Go fonts.
func NewRenderer() (*Renderer, error) {
	faces, err := LoadFaces(DefaultTitleSize, DefaultBodySize)
	if err != nil {
		return nil, err
	}
	return NewRendererWith(DefaultLayout(), faces), nil
}

// NewRendererWith allows custom geometry and faces.
func NewRendererWith(layout Layout, faces Faces) *Renderer {
	return &Renderer{layout: layout, faces: faces}
}

// RenderPage returns a canvas the size of src: the illustration resized
// into the top region and the caption panel below it. title may be empty.
func (r *Renderer) RenderPage(src image.Image, caption, title string) (*image.RGBA, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("compose: empty source image")
	}
	panelH := int(float64(h) * r.layout.PanelRatio)
	illuH := h - panelH

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, image.Rect(0, 0, w, illuH), src, b, draw.Over, nil)

	panel := image.Rect(0, illuH, w, h)
	draw.Draw(canvas, panel, image.NewUniform(r.layout.PanelColor), image.Point{}, draw.Src)

	pad := r.layout.Padding
	y := illuH + pad
	if title != "" {
		y = drawLine(canvas, r.faces.Title, r.layout.TitleColor, title, pad, y) + r.layout.TitleGap
	}
	for _, line := range WrapText(caption, r.faces.Body, w-2*pad) {
		y = drawLine(canvas, r.faces.Body, r.layout.BodyColor, line, pad, y) + r.layout.LineGap
	}
	return canvas, nil
}

// drawLine draws text with its top at y and returns the y just below it.
func drawLine(dst draw.Image, face font.Face, c color.Color, text string, x, y int) int {
	m := face.Metrics()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + m.Ascent},
	}
	d.DrawString(text)
	return y + (m.Ascent + m.Descent).Ceil()
}

// LoadImage decodes a PNG, JPEG or WebP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compose: open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("compose: decode %s: %w", path, err)
	}
	return img, nil
}
