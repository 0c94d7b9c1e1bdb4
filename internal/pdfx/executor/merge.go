package executor

import (
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
)

// mergeExecutor concatenates two or more PDFs in input list order, each
// document fully included.
type mergeExecutor struct{}

func (e *mergeExecutor) Execute(ctx context.Context, scope *filex.Scope, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Inputs) < 2 {
		return nil, fmt.Errorf("%w: merge needs at least 2 documents, got %d", common.ErrInsufficientInput, len(req.Inputs))
	}

	paths := make([]string, len(req.Inputs))
	for i, wd := range req.Inputs {
		if err := requirePDF(wd); err != nil {
			return nil, err
		}
		paths[i] = wd.Path
	}

	out, err := scope.File(".pdf")
	if err != nil {
		return nil, err
	}
	if err := api.MergeCreateFile(paths, out, false, nil); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	return &Result{Path: out, Filename: "merged.pdf", ContentType: "application/pdf"}, nil
}
