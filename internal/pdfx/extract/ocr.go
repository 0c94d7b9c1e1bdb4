package extract

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"

	"github.com/dmogilev/docmill/internal/filex"
)

// OCRLineRows is tier 3, the last resort: every page is rasterized into
// the request's temp scope and run through Tesseract, one row per
// non-blank recognized line.
func OCRLineRows(ctx context.Context, scope *filex.Scope, pdfPath string) ([][]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	dir, err := scope.Dir()
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	var out [][]string

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", i+1, err)
		}

		pagePath := filepath.Join(dir, fmt.Sprintf("ocr-page-%03d.jpg", i+1))
		f, err := os.Create(pagePath)
		if err != nil {
			return nil, err
		}
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}

		if err := client.SetImage(pagePath); err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		text, err := client.Text()
		if err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		out = append(out, linesToRows(text)...)
	}

	return out, nil
}
