package compose

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// WrapText fills lines greedily: each word is appended to the current line
// while the measured width stays within maxWidth, otherwise it starts a new
// line. A single word wider than maxWidth gets a line of its own. No empty
// lines are produced.
func WrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	limit := fixed.I(maxWidth)
	var (
		lines   []string
		current []string
	)
	for _, word := range words {
		candidate := strings.Join(append(current, word), " ")
		if len(current) == 0 || font.MeasureString(face, candidate) <= limit {
			current = append(current, word)
			continue
		}
		lines = append(lines, strings.Join(current, " "))
		current = []string{word}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}
