package executor

import (
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/dmogilev/docmill/internal/filex"
)

// compressExecutor re-encodes a PDF's content streams. The requested
// level is accepted for the API surface but every level runs the same
// single recompression pass. Page count and visible content must survive
// unchanged.
type compressExecutor struct{}

func (e *compressExecutor) Execute(ctx context.Context, scope *filex.Scope, req Request) (*Result, error) {
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

	out, err := scope.File(".pdf")
	if err != nil {
		return nil, err
	}
	if err := api.OptimizeFile(wd.Path, out, nil); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	// Recompression must never change the page structure.
	n, err := api.PageCountFile(out)
	if err != nil {
		return nil, fmt.Errorf("compress verify: %w", err)
	}
	if n != wd.Pages {
		return nil, fmt.Errorf("compress changed page count from %d to %d", wd.Pages, n)
	}

	return &Result{Path: out, Filename: outName(wd, "-compressed", ".pdf"), ContentType: "application/pdf"}, nil
}
