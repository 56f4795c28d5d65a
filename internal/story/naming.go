package story

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nameCaser = cases.Title(language.Und, cases.NoLower)

// NormalizeChildName collapses whitespace and capitalises each word while
// leaving inner capitals alone ("mia" -> "Mia", "McKay" stays).
func NormalizeChildName(name string) string {
	return nameCaser.String(strings.Join(strings.Fields(name), " "))
}

// PathSafe strips accents, turns spaces into underscores and drops anything
// outside letters, digits, '-' and '_'.
func PathSafe(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(folded), "_") {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DocumentName is the PDF file name for a child and story title,
// e.g. "Mia_Dino_Days.pdf".
func DocumentName(childName, title string) string {
	return orDefault(PathSafe(childName), "child") + "_" + orDefault(PathSafe(title), "story") + ".pdf"
}

// ImagesDir is the per-run image directory key, e.g. "mia_dino".
func ImagesDir(childName, storyKey string) string {
	return strings.ToLower(orDefault(PathSafe(childName), "child")) + "_" + orDefault(PathSafe(storyKey), "story")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
