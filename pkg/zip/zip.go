package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Asset is one file to place in an archive. Data wins over Path when both
// are set.
type Asset struct {
	Filename string
	Path     string
	Data     []byte
}

// WriteArchive streams the assets into w as a zip file.
func WriteArchive(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	for _, asset := range assets {
		dst, err := zw.Create(asset.Filename)
		if err != nil {
			return fmt.Errorf("zip %s: %w", asset.Filename, err)
		}
		if asset.Data != nil {
			if _, err := dst.Write(asset.Data); err != nil {
				return fmt.Errorf("zip %s: %w", asset.Filename, err)
			}
			continue
		}
		if err := copyFile(dst, asset.Path); err != nil {
			return fmt.Errorf("zip %s: %w", asset.Filename, err)
		}
	}
	return zw.Close()
}

// ArchiveAssets builds the archive in memory.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, assets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func copyFile(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}
