package compose

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caseras1/ai-childbook/internal/domain"
)

func TestAssembleEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.pdf")
	_, err := Assemble(nil, out)
	var empty *domain.EmptyDocumentError
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want *domain.EmptyDocumentError", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("document written for empty input")
	}
}

func TestAssembleWritesPagesInOrder(t *testing.T) {
	pages := []image.Image{
		solid(40, 60, color.RGBA{R: 255, A: 255}),
		solid(41, 60, color.RGBA{G: 255, A: 255}),
		solid(42, 60, color.RGBA{B: 255, A: 255}),
	}
	out := filepath.Join(t.TempDir(), "nested", "Mia_Dino_Days.pdf")

	path, err := Assemble(pages, out)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if path != out {
		t.Fatalf("path = %q, want %q", path, out)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	doc := string(raw)
	if !strings.HasPrefix(doc, "%PDF-") {
		t.Fatalf("not a PDF: %q", doc[:8])
	}
	if n := strings.Count(doc, "<</Type /Page\n"); n != len(pages) {
		t.Fatalf("pages = %d, want %d", n, len(pages))
	}
	last := -1
	for _, box := range []string{"/MediaBox [0 0 40.00 60.00]", "/MediaBox [0 0 41.00 60.00]", "/MediaBox [0 0 42.00 60.00]"} {
		idx := strings.Index(doc, box)
		if idx < 0 || idx < last {
			t.Fatalf("%s at %d, previous at %d", box, idx, last)
		}
		last = idx
	}

	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files next to document: %v", entries)
	}
}
