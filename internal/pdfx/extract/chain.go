// Package extract implements the tiered table-recovery pipeline behind
// PDF-to-spreadsheet conversion.
//
// Three tiers are attempted in strict order: structured table detection,
// raw text lines, and finally optical recognition of rasterized pages.
// Each tier runs only when the previous one produced no usable rows.
// Table detection is the most faithful but frequently fails on scanned or
// irregularly formatted PDFs; OCR is slow and lossy and therefore the last
// resort, never the default path.
package extract

import (
	"context"
	"fmt"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/logging"
)

// Table is the output of a successful extraction: the recovered rows and
// the name of the tier that produced them.
type Table struct {
	Rows [][]string
	Tier string
}

// TierFunc extracts candidate rows from the PDF at pdfPath. Intermediate
// files go through scope so they share the request's cleanup guarantee.
type TierFunc func(ctx context.Context, scope *filex.Scope, pdfPath string) ([][]string, error)

// Tier is one stage of the fallback chain.
type Tier struct {
	Name    string
	Extract TierFunc
}

// DefaultTiers returns the production chain in degrade order.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "table", Extract: TableRows},
		{Name: "text", Extract: TextLineRows},
		{Name: "ocr", Extract: OCRLineRows},
	}
}

type Chain struct {
	tiers []Tier
	log   logging.Logger
}

// NewChain builds a chain over the given tiers, or over DefaultTiers when
// none are supplied.
func NewChain(log logging.Logger, tiers ...Tier) *Chain {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &Chain{tiers: tiers, log: log}
}

// Run walks the tiers in order and returns the first usable result. A tier
// failure degrades to the next tier rather than aborting. When every tier
// yields zero usable rows the call fails with
// common.ErrNoExtractableContent.
func (c *Chain) Run(ctx context.Context, scope *filex.Scope, pdfPath string) (*Table, error) {
	for _, tier := range c.tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := runTier(ctx, tier, scope, pdfPath)
		if err != nil {
			c.log.Warn(ctx, "extraction tier failed, degrading", "tier", tier.Name, "error", err)
			continue
		}
		if !usable(rows) {
			c.log.Debug(ctx, "extraction tier yielded no rows", "tier", tier.Name)
			continue
		}

		c.log.Info(ctx, "extraction succeeded", "tier", tier.Name, "rows", len(rows))
		return &Table{Rows: rows, Tier: tier.Name}, nil
	}

	return nil, common.ErrNoExtractableContent
}

// runTier shields the chain from panics inside third-party parsers.
func runTier(ctx context.Context, tier Tier, scope *filex.Scope, pdfPath string) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("tier %s panic: %v", tier.Name, r)
		}
	}()
	return tier.Extract(ctx, scope, pdfPath)
}

func usable(rows [][]string) bool {
	for _, row := range rows {
		for _, cell := range row {
			if cell != "" {
				return true
			}
		}
	}
	return false
}
