package executor

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// buildZip writes the given files into a zip archive at out, in the order
// supplied, storing each under its base name.
func buildZip(out string, files []string) error {
	f, err := os.OpenFile(out, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(f)

	for _, path := range files {
		if err := addZipEntry(zw, path); err != nil {
			_ = zw.Close()
			_ = f.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}
	return f.Close()
}

func addZipEntry(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", path, err)
	}
	defer src.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", path, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("archive entry %s: %w", path, err)
	}
	return nil
}
