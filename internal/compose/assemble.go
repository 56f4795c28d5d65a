package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/caseras1/ai-childbook/internal/domain"
)

// a4 is only the document default; every page carries its own media box.
var a4 = fpdf.SizeType{Wd: 595.28, Ht: 841.89}

// Assemble writes pages in order as one PDF at outputPath, one page per
// image, each page sized to its image in points. The file is written to a
// temporary name first so a failed run never leaves a readable document.
func Assemble(pages []image.Image, outputPath string) (string, error) {
	if len(pages) == 0 {
		return "", &domain.EmptyDocumentError{}
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt", Size: a4})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)

	for i, page := range pages {
		b := page.Bounds()
		w, h := float64(b.Dx()), float64(b.Dy())
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, page, &jpeg.Options{Quality: 92}); err != nil {
			return "", fmt.Errorf("compose: encode page %d: %w", i+1, err)
		}
		name := "page-" + strconv.Itoa(i+1)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return "", fmt.Errorf("compose: build pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("compose: ensure directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".story-*.pdf")
	if err != nil {
		return "", fmt.Errorf("compose: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := pdf.Output(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("compose: write pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("compose: close pdf: %w", err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return "", fmt.Errorf("compose: move pdf into place: %w", err)
	}
	return outputPath, nil
}
