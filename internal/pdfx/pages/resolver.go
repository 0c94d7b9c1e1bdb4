// Package pages parses page-range expressions into concrete page
// selections.
//
// The grammar is comma-separated terms, each either a single 1-based page
// number or an inclusive 1-based range "start-end". The resolver is pure
// parsing: it never touches a document and never bounds-checks, that is
// the consuming executor's job.
package pages

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmogilev/docmill/internal/common"
)

// Resolve parses expr into sorted, deduplicated, 0-based page indices.
//
// Either the whole expression resolves or the call fails with a
// common.ErrValidation-wrapped error naming the offending term; a
// malformed expression is never partially applied. Overlapping ranges are
// deduplicated, not rejected.
func Resolve(expr string) ([]int, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty page expression", common.ErrValidation)
	}

	set := make(map[int]struct{})

	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, fmt.Errorf("%w: empty term in %q", common.ErrValidation, expr)
		}

		if strings.Contains(term, "-") {
			parts := strings.SplitN(term, "-", 2)
			start, err := parsePageNumber(parts[0])
			if err != nil {
				return nil, fmt.Errorf("%w: bad range %q", common.ErrValidation, term)
			}
			end, err := parsePageNumber(parts[1])
			if err != nil {
				return nil, fmt.Errorf("%w: bad range %q", common.ErrValidation, term)
			}
			if end < start {
				return nil, fmt.Errorf("%w: reversed range %q", common.ErrValidation, term)
			}
			for p := start; p <= end; p++ {
				set[p-1] = struct{}{}
			}
			continue
		}

		p, err := parsePageNumber(term)
		if err != nil {
			return nil, fmt.Errorf("%w: bad page %q", common.ErrValidation, term)
		}
		set[p-1] = struct{}{}
	}

	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

// Format renders a 0-based selection back into the 1-based expression
// form, collapsing consecutive runs into ranges. Resolving the rendered
// form of any valid selection yields the same indices.
func Format(sel []int) string {
	if len(sel) == 0 {
		return ""
	}

	sorted := append([]int(nil), sel...)
	sort.Ints(sorted)

	var b strings.Builder
	start, prev := sorted[0], sorted[0]

	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if start == prev {
			fmt.Fprintf(&b, "%d", start+1)
		} else {
			fmt.Fprintf(&b, "%d-%d", start+1, prev+1)
		}
	}

	for _, p := range sorted[1:] {
		if p == prev || p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()
	return b.String()
}

// Clamp drops indices outside [0, pageCount) from sel, preserving order.
// Out-of-bounds indices are dropped silently per the selection contract.
func Clamp(sel []int, pageCount int) []int {
	out := make([]int, 0, len(sel))
	for _, p := range sel {
		if p >= 0 && p < pageCount {
			out = append(out, p)
		}
	}
	return out
}

func parsePageNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("page numbers are 1-based, got %d", n)
	}
	return n, nil
}
