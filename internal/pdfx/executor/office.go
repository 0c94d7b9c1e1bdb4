package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/pdfx/unlock"
)

// pdfToWordExecutor rebuilds a PDF's text content as a DOCX document,
// one paragraph per text line. Layout fidelity is not a goal.
type pdfToWordExecutor struct{}

func (e *pdfToWordExecutor) Execute(ctx context.Context, scope *filex.Scope, req Request) (*Result, error) {
	wd, err := singleInput(req)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.New(wd.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open PDF: %v", common.ErrValidation, err)
	}
	defer doc.Close()

	w := docx.New().WithDefaultTheme()
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			w.AddParagraph().AddText(line)
		}
	}

	out, err := scope.File(".docx")
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(out, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	_, err = w.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}

	return &Result{
		Path:        out,
		Filename:    outName(wd, "", ".docx"),
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}, nil
}

// toPDFExecutor converts non-PDF inputs to PDF, picking the concrete
// conversion from what was uploaded: a set of images, one DOCX, or one
// XLSX workbook.
type toPDFExecutor struct{}

func (e *toPDFExecutor) Execute(ctx context.Context, scope *filex.Scope, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("%w: conversion needs input files", common.ErrEmptyInput)
	}

	if allImages(req.Inputs) {
		return imagesToPDF(ctx, scope, req)
	}

	wd, err := singleInput(req)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(wd.SourceName)) {
	case ".docx":
		return wordToPDF(scope, wd)
	case ".xlsx":
		return excelToPDF(scope, wd)
	default:
		return nil, fmt.Errorf("%w: cannot convert %q to PDF", common.ErrValidation, wd.SourceName)
	}
}

func allImages(inputs []*unlock.WorkingDocument) bool {
	for _, wd := range inputs {
		switch strings.ToLower(filepath.Ext(wd.SourceName)) {
		case ".jpg", ".jpeg", ".png", ".gif":
		default:
			return false
		}
	}
	return true
}

// wordToPDF typesets the paragraphs of a DOCX document into a PDF.
func wordToPDF(scope *filex.Scope, wd *unlock.WorkingDocument) (*Result, error) {
	f, err := os.Open(wd.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	parsed, err := docx.Parse(f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse DOCX: %v", common.ErrValidation, err)
	}

	pdf := newTextPDF()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, item := range parsed.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(0, 5.5, tr(text), "", "L", false)
		pdf.Ln(1.5)
	}

	return finishPDF(scope, pdf, outName(wd, "", ".pdf"))
}

// excelToPDF renders every worksheet as a page of pipe-separated rows.
func excelToPDF(scope *filex.Scope, wd *unlock.WorkingDocument) (*Result, error) {
	wb, err := excelize.OpenFile(wd.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open workbook: %v", common.ErrValidation, err)
	}
	defer wb.Close()

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(sheet), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, row := range rows {
			pdf.MultiCell(0, 5, tr(strings.Join(row, " | ")), "", "L", false)
		}
	}
	if pdf.PageCount() == 0 {
		pdf.AddPage()
	}

	return finishPDF(scope, pdf, outName(wd, "", ".pdf"))
}

func newTextPDF() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()
	return pdf
}

func finishPDF(scope *filex.Scope, pdf *fpdf.Fpdf, filename string) (*Result, error) {
	out, err := scope.File(".pdf")
	if err != nil {
		return nil, err
	}
	if err := pdf.OutputFileAndClose(out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return &Result{Path: out, Filename: filename, ContentType: "application/pdf"}, nil
}

func paragraphText(p *docx.Paragraph) string {
	var b strings.Builder
	for _, child := range p.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				b.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
