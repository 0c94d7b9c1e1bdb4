// Package executor implements the operation executors: merge, split,
// compress and format conversion.
//
// The executors form a closed set of variants of one capability,
// transforming one or more unlocked documents into a single output file,
// dispatched on operation kind. Every executor consumes working copies
// produced by the unlock gate and writes all intermediates through the
// request's temp scope; uploaded originals are never touched.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/logging"
	"github.com/dmogilev/docmill/internal/pdfx/extract"
	"github.com/dmogilev/docmill/internal/pdfx/unlock"
)

// Kind identifies an operation.
type Kind string

const (
	KindMerge    Kind = "merge"
	KindSplit    Kind = "split"
	KindCompress Kind = "compress"
	KindConvert  Kind = "convert"
)

// Format is a conversion target.
type Format string

const (
	FormatPDF         Format = "pdf"
	FormatWord        Format = "docx"
	FormatSpreadsheet Format = "xlsx"
	FormatImages      Format = "images"
)

// Level is a compression level. Levels are enumerated for the API surface;
// all of them map to one content-stream recompression pass.
type Level string

const (
	LevelLow      Level = "low"
	LevelBalanced Level = "balanced"
	LevelHigh     Level = "high"
)

// Options carries per-operation parameters. Unused fields are ignored by
// executors that do not need them.
type Options struct {
	// Pages drives custom split: 0-based selection from pages.Resolve.
	Pages []int
	// ChunkSize drives fixed split: consecutive groups of this many pages.
	ChunkSize int
	// Target is the convert destination format.
	Target Format
	// Level is the compress level.
	Level Level
}

// Request is one executor invocation.
type Request struct {
	Inputs  []*unlock.WorkingDocument
	Options Options
}

// Result points at the produced output inside the temp scope. The caller
// persists it before the scope closes.
type Result struct {
	Path        string
	Filename    string
	ContentType string
}

// Executor transforms unlocked documents into one output document.
type Executor interface {
	Execute(ctx context.Context, scope *filex.Scope, req Request) (*Result, error)
}

// Registry vends executors by operation kind.
type Registry struct {
	log   logging.Logger
	chain *extract.Chain
}

func NewRegistry(log logging.Logger, chain *extract.Chain) *Registry {
	return &Registry{log: log, chain: chain}
}

// For returns the executor for the requested operation, validating
// per-operation options up front so no processing starts on a malformed
// request.
func (r *Registry) For(kind Kind, opts Options) (Executor, error) {
	switch kind {
	case KindMerge:
		return &mergeExecutor{}, nil

	case KindSplit:
		hasPages := len(opts.Pages) > 0
		hasChunk := opts.ChunkSize > 0
		if hasPages == hasChunk {
			return nil, fmt.Errorf("%w: split needs either a page selection or a chunk size", common.ErrValidation)
		}
		return &splitExecutor{}, nil

	case KindCompress:
		switch opts.Level {
		case "", LevelLow, LevelBalanced, LevelHigh:
			return &compressExecutor{}, nil
		default:
			return nil, fmt.Errorf("%w: unknown compression level %q", common.ErrValidation, opts.Level)
		}

	case KindConvert:
		switch opts.Target {
		case FormatWord:
			return &pdfToWordExecutor{}, nil
		case FormatImages:
			return &pdfToImagesExecutor{log: r.log}, nil
		case FormatSpreadsheet:
			return &pdfToSpreadsheetExecutor{chain: r.chain}, nil
		case FormatPDF:
			return &toPDFExecutor{}, nil
		default:
			return nil, fmt.Errorf("%w: unsupported conversion target %q", common.ErrValidation, opts.Target)
		}

	default:
		return nil, fmt.Errorf("%w: unknown operation %q", common.ErrValidation, kind)
	}
}

// outName derives the output file name from the source document's name.
func outName(wd *unlock.WorkingDocument, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(wd.SourceName), filepath.Ext(wd.SourceName))
	if base == "" || base == "." {
		base = "document"
	}
	return base + suffix + ext
}

// requirePDF rejects inputs the unlock gate only staged. Non-PDF uploads
// carry a zero page count and must not reach the PDF-only executors.
func requirePDF(wd *unlock.WorkingDocument) error {
	if wd.Pages == 0 {
		return fmt.Errorf("%w: %s is not a PDF document", common.ErrValidation, wd.SourceName)
	}
	return nil
}

// singleInput unwraps the request for executors that take exactly one
// document.
func singleInput(req Request) (*unlock.WorkingDocument, error) {
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("%w: operation needs a document", common.ErrEmptyInput)
	}
	if len(req.Inputs) > 1 {
		return nil, fmt.Errorf("%w: operation takes exactly one document, got %d", common.ErrValidation, len(req.Inputs))
	}
	return req.Inputs[0], nil
}
