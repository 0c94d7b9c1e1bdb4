// Package unlock implements the mandatory decrypt/normalize gate every
// transformation passes through.
//
// The gate turns an uploaded document into a canonical working copy inside
// the request's temp scope: encrypted PDFs are decrypted (or rejected),
// then fully rewritten so downstream executors always operate on a
// non-encrypted, freshly serialized representation. The uploaded original
// is never modified.
package unlock

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/logging"
)

// WorkingDocument is a decrypted, page-addressable working copy owned
// exclusively by the requesting operation. Its backing file lives in the
// request's temp scope and disappears with it.
type WorkingDocument struct {
	// Path of the canonical copy inside the temp scope.
	Path string
	// Pages is the page count for PDFs, 0 for staged non-PDF inputs.
	Pages int
	// SourceName is the client-supplied file name, kept for output naming.
	SourceName string
}

type Gate struct {
	log logging.Logger
}

func NewGate(log logging.Logger) *Gate {
	return &Gate{log: log}
}

// Unlock validates and decrypts a PDF, producing a normalized working
// copy in scope. A wrong or missing password yields
// common.ErrEncryptedDocument; an unreadable file yields
// common.ErrValidation.
func (g *Gate) Unlock(ctx context.Context, scope *filex.Scope, inputPath, sourceName, password string) (*WorkingDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := checkPDFHeader(inputPath); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}

	decrypted, err := scope.File(".pdf")
	if err != nil {
		return nil, err
	}

	switch err := api.DecryptFile(inputPath, decrypted, conf); {
	case err == nil:
		// was encrypted, decrypted copy written
	case isNotEncrypted(err):
		if err := copyFile(inputPath, decrypted); err != nil {
			return nil, err
		}
	case isPasswordFailure(err):
		g.log.Warn(ctx, "decryption failed", "source", sourceName, "error", err)
		return nil, fmt.Errorf("%w: wrong or missing password", common.ErrEncryptedDocument)
	default:
		return nil, fmt.Errorf("%w: not a readable PDF: %v", common.ErrValidation, err)
	}

	normalized, err := scope.File(".pdf")
	if err != nil {
		return nil, err
	}

	// Full rewrite: every page re-serialized into a canonical form.
	if err := api.OptimizeFile(decrypted, normalized, nil); err != nil {
		return nil, fmt.Errorf("%w: not a readable PDF: %v", common.ErrValidation, err)
	}

	n, err := api.PageCountFile(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot determine page count: %v", common.ErrValidation, err)
	}

	return &WorkingDocument{Path: normalized, Pages: n, SourceName: sourceName}, nil
}

// Stage copies a non-PDF input (image, DOCX, XLSX) into the scope
// unchanged. Decryption does not apply to these formats, but every
// pipeline still funnels its inputs through the gate so ownership and
// cleanup stay uniform.
func (g *Gate) Stage(ctx context.Context, scope *filex.Scope, inputPath, sourceName string) (*WorkingDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	staged, err := scope.File(extensionOf(sourceName))
	if err != nil {
		return nil, err
	}
	if err := copyFile(inputPath, staged); err != nil {
		return nil, err
	}
	return &WorkingDocument{Path: staged, SourceName: sourceName}, nil
}

func isNotEncrypted(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not encrypted")
}

// isPasswordFailure reports whether a decryption error is about missing or
// wrong credentials, as opposed to structural damage in the file.
func isPasswordFailure(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "password") ||
		strings.Contains(s, "authenticat") ||
		strings.Contains(s, "decrypt")
}

// checkPDFHeader rejects files that cannot possibly be PDFs before any
// parsing is attempted. The header may be preceded by up to 1024 bytes of
// junk, which pdfcpu tolerates in relaxed mode.
func checkPDFHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !strings.Contains(string(buf[:n]), "%PDF-") {
		return fmt.Errorf("%w: not a PDF file", common.ErrValidation)
	}
	return nil
}

func extensionOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return strings.ToLower(name[i:])
	}
	return ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
