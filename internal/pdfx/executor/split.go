package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/pdfx/pages"
)

// splitExecutor extracts pages from one document. Custom mode produces a
// single PDF containing exactly the selected pages in ascending order;
// fixed mode partitions the document into consecutive chunks (the last
// chunk may be shorter) and bundles them into a zip when there is more
// than one.
type splitExecutor struct{}

func (e *splitExecutor) Execute(ctx context.Context, scope *filex.Scope, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wd, err := singleInput(req)
	if err != nil {
		return nil, err
	}
	if err := requirePDF(wd); err != nil {
		return nil, err
	}

	if len(req.Options.Pages) > 0 {
		return e.custom(scope, req, wd.Path, wd.Pages)
	}
	return e.fixed(scope, req, wd.Path, wd.Pages)
}

func (e *splitExecutor) custom(scope *filex.Scope, req Request, in string, pageCount int) (*Result, error) {
	sel := pages.Clamp(req.Options.Pages, pageCount)
	if len(sel) == 0 {
		return nil, fmt.Errorf("%w: selection matches no pages of a %d-page document", common.ErrValidation, pageCount)
	}

	out, err := scope.File(".pdf")
	if err != nil {
		return nil, err
	}
	if err := api.TrimFile(in, out, strings.Split(pages.Format(sel), ","), nil); err != nil {
		return nil, fmt.Errorf("split pages: %w", err)
	}

	return &Result{Path: out, Filename: outName(req.Inputs[0], "-pages", ".pdf"), ContentType: "application/pdf"}, nil
}

func (e *splitExecutor) fixed(scope *filex.Scope, req Request, in string, pageCount int) (*Result, error) {
	chunks := chunkRanges(pageCount, req.Options.ChunkSize)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", common.ErrValidation)
	}

	if len(chunks) == 1 {
		out, err := scope.File(".pdf")
		if err != nil {
			return nil, err
		}
		if err := api.TrimFile(in, out, []string{chunks[0]}, nil); err != nil {
			return nil, fmt.Errorf("split chunk: %w", err)
		}
		return &Result{Path: out, Filename: outName(req.Inputs[0], "-part1", ".pdf"), ContentType: "application/pdf"}, nil
	}

	dir, err := scope.Dir()
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(chunks))
	for i, rng := range chunks {
		part := fmt.Sprintf("%s/part-%03d.pdf", dir, i+1)
		if err := api.TrimFile(in, part, []string{rng}, nil); err != nil {
			return nil, fmt.Errorf("split chunk %s: %w", rng, err)
		}
		parts = append(parts, part)
	}

	out, err := scope.File(".zip")
	if err != nil {
		return nil, err
	}
	if err := buildZip(out, parts); err != nil {
		return nil, err
	}

	return &Result{Path: out, Filename: outName(req.Inputs[0], "-split", ".zip"), ContentType: "application/zip"}, nil
}

// chunkRanges partitions pageCount pages into 1-based inclusive range
// expressions of size pages each, e.g. 10 pages by 4 gives
// ["1-4", "5-8", "9-10"].
func chunkRanges(pageCount, size int) []string {
	if pageCount <= 0 || size <= 0 {
		return nil
	}
	var out []string
	for start := 1; start <= pageCount; start += size {
		end := start + size - 1
		if end > pageCount {
			end = pageCount
		}
		if start == end {
			out = append(out, fmt.Sprintf("%d", start))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", start, end))
		}
	}
	return out
}
