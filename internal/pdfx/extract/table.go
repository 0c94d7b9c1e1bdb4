package extract

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dmogilev/docmill/internal/filex"
)

// minCellGap is the horizontal whitespace, in text-space units, that
// separates two cells on the same visual row. Narrower gaps are treated
// as intra-cell spacing.
const minCellGap = 12.0

// TableRows is tier 1: structured table detection across all pages.
// Text fragments are grouped into visual rows, rows are cut into cells at
// significant horizontal gaps, and a page contributes rows only when the
// result actually looks tabular (multiple rows with multiple columns).
func TableRows(ctx context.Context, _ *filex.Scope, pdfPath string) ([][]string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out [][]string

	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}

		pageRows := make([][]string, 0, len(rows))
		for _, row := range rows {
			cells := splitRowIntoCells(row.Content)
			if len(cells) > 0 {
				pageRows = append(pageRows, cells)
			}
		}

		if isTabular(pageRows) {
			out = append(out, pageRows...)
		}
	}

	return out, nil
}

// splitRowIntoCells cuts one visual row into cells at horizontal gaps
// wider than minCellGap. Fragments arrive sorted by X.
func splitRowIntoCells(fragments []pdf.Text) []string {
	var (
		cells []string
		cur   strings.Builder
		prev  *pdf.Text
	)

	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			cells = append(cells, s)
		}
		cur.Reset()
	}

	for i := range fragments {
		t := fragments[i]
		if prev != nil {
			gap := t.X - (prev.X + prev.W)
			if gap > minCellGap {
				flush()
			}
		}
		cur.WriteString(t.S)
		prev = &fragments[i]
	}
	flush()

	return cells
}

// isTabular reports whether a page's rows form a non-empty table: at
// least two rows, of which at least two have more than one column.
func isTabular(rows [][]string) bool {
	if len(rows) < 2 {
		return false
	}
	multi := 0
	for _, row := range rows {
		if len(row) >= 2 {
			multi++
		}
	}
	return multi >= 2
}
