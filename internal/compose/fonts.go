package compose

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Faces holds the title and body typefaces used on the caption panel.
type Faces struct {
	Title font.Face
	Body  font.Face
}

// LoadFaces builds Go Bold for titles and Go Regular for body text at the
// given pixel sizes.
func LoadFaces(titleSize, bodySize float64) (Faces, error) {
	title, err := newFace(gobold.TTF, titleSize)
	if err != nil {
		return Faces{}, fmt.Errorf("compose: title font: %w", err)
	}
	body, err := newFace(goregular.TTF, bodySize)
	if err != nil {
		return Faces{}, fmt.Errorf("compose: body font: %w", err)
	}
	return Faces{Title: title, Body: body}, nil
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
