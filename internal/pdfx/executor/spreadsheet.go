package executor

import (
	"context"
	"fmt"

	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/pdfx/extract"
)

// pdfToSpreadsheetExecutor recovers tabular data from a PDF through the
// tiered extraction chain and writes it as an xlsx workbook.
type pdfToSpreadsheetExecutor struct {
	chain *extract.Chain
}

func (e *pdfToSpreadsheetExecutor) Execute(ctx context.Context, scope *filex.Scope, req Request) (*Result, error) {
	wd, err := singleInput(req)
	if err != nil {
		return nil, err
	}

	table, err := e.chain.Run(ctx, scope, wd.Path)
	if err != nil {
		return nil, err
	}

	out, err := scope.File(".xlsx")
	if err != nil {
		return nil, err
	}
	if err := extract.WriteWorkbook(out, table); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return &Result{
		Path:        out,
		Filename:    outName(wd, "", ".xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}
