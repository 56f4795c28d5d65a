package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	dir := t.TempDir()
	onDisk := filepath.Join(dir, "page_01.png")
	if err := os.WriteFile(onDisk, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := ArchiveAssets([]Asset{
		{Filename: "page_01.png", Path: onDisk},
		{Filename: "notes.txt", Data: []byte("hello")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	want := map[string]string{"page_01.png": "png-bytes", "notes.txt": "hello"}
	if len(zr.File) != len(want) {
		t.Fatalf("entries = %d, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if string(got) != want[f.Name] {
			t.Fatalf("%s = %q, want %q", f.Name, got, want[f.Name])
		}
	}
}

func TestArchiveAssetsMissingFile(t *testing.T) {
	_, err := ArchiveAssets([]Asset{{Filename: "x.png", Path: filepath.Join(t.TempDir(), "missing.png")}})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
