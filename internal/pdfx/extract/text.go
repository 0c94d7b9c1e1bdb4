package extract

import (
	"context"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/dmogilev/docmill/internal/filex"
)

// TextLineRows is tier 2: raw text extraction, one single-column row per
// non-blank line, page by page.
func TextLineRows(ctx context.Context, _ *filex.Scope, pdfPath string) ([][]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var out [][]string

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.Text(i)
		if err != nil {
			return nil, err
		}
		out = append(out, linesToRows(text)...)
	}

	return out, nil
}

func linesToRows(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			rows = append(rows, []string{line})
		}
	}
	return rows
}
