package partition

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Range is a half-open page range [Start, End) with an optional label
// (outline-derived strategies only).
type Range struct {
	Start int
	End   int
	Label string
}

// Len returns the number of pages covered by the range.
func (r Range) Len() int { return r.End - r.Start }

// Plan is an ordered list of page ranges. Count-, marker- and
// content-driven strategies produce gap-free coverage of [0, total);
// outline-driven plans may start after page 0 when the first top-level
// entry does.
type Plan []Range

// TotalPages sums the page counts of all ranges.
func (p Plan) TotalPages() int {
	n := 0
	for _, r := range p {
		n += r.Len()
	}
	return n
}

// OutlineEntry is one table-of-contents item: title, nesting level
// (1 = top) and 0-based target page.
type OutlineEntry struct {
	Title string
	Level int
	Page  int
}

// DefaultSmartThreshold is the near-blank page character count used when
// Smart is called with a non-positive threshold. Heuristic, tunable.
const DefaultSmartThreshold = 50

// ByCount plans ranges of exactly n pages each, the final range
// truncated to the remaining pages.
func ByCount(totalPages, n int) (Plan, error) {
	if n < 1 {
		return nil, &InvalidParameterError{Param: "count", Reason: "must be >= 1"}
	}
	if totalPages < 0 {
		return nil, &InvalidParameterError{Param: "totalPages", Reason: "must be >= 0"}
	}
	plan := make(Plan, 0, (totalPages+n-1)/n)
	for start := 0; start < totalPages; start += n {
		end := start + n
		if end > totalPages {
			end = totalPages
		}
		plan = append(plan, Range{Start: start, End: end})
	}
	log.Debug().Int("total", totalPages).Int("count", n).Int("parts", len(plan)).Msg("planned by count")
	return plan, nil
}

// ByPages plans ranges from explicit 0-based split markers: 0 and
// totalPages are appended to the sorted, de-duplicated marker set and
// consecutive pairs become range boundaries.
func ByPages(totalPages int, points []int) (Plan, error) {
	for _, p := range points {
		if p < 0 || p >= totalPages {
			return nil, &InvalidSplitPointError{Point: p, TotalPages: totalPages}
		}
	}

	bounds := map[int]struct{}{0: {}, totalPages: {}}
	for _, p := range points {
		bounds[p] = struct{}{}
	}
	sorted := make([]int, 0, len(bounds))
	for b := range bounds {
		sorted = append(sorted, b)
	}
	sort.Ints(sorted)

	plan := make(Plan, 0, len(sorted)-1)
	for i := 0; i+1 < len(sorted); i++ {
		plan = append(plan, Range{Start: sorted[i], End: sorted[i+1]})
	}
	log.Debug().Int("total", totalPages).Ints("points", points).Int("parts", len(plan)).Msg("planned by pages")
	return plan, nil
}

// ByBookmarks plans ranges bounded by top-level outline entries, each
// labeled with the entry's sanitized title. Entries deeper than level 1
// never split.
func ByBookmarks(totalPages int, outline []OutlineEntry) (Plan, error) {
	if len(outline) == 0 {
		return nil, ErrNoOutline
	}

	var top []OutlineEntry
	for _, e := range outline {
		if e.Level == 1 && e.Page >= 0 && e.Page < totalPages {
			top = append(top, e)
		}
	}
	if len(top) == 0 {
		return nil, ErrNoOutline
	}

	plan := make(Plan, 0, len(top))
	for i, e := range top {
		end := totalPages
		if i+1 < len(top) {
			end = top[i+1].Page
		}
		if end <= e.Page {
			continue
		}
		label := SanitizeLabel(e.Title)
		if label == "" {
			label = "section"
		}
		plan = append(plan, Range{Start: e.Page, End: end, Label: label})
	}
	log.Debug().Int("total", totalPages).Int("bookmarks", len(top)).Int("parts", len(plan)).Msg("planned by bookmarks")
	return plan, nil
}

// Smart plans ranges by treating near-blank pages as section separators:
// any page whose extracted text length falls below threshold marks a
// boundary immediately after it. Duplicate boundaries collapse and
// zero-length ranges are dropped; boundaries are hints, not hard page
// losses. textLens must hold one entry per page.
func Smart(textLens []int, threshold int) (Plan, error) {
	if threshold <= 0 {
		threshold = DefaultSmartThreshold
	}
	totalPages := len(textLens)

	bounds := map[int]struct{}{0: {}, totalPages: {}}
	for page, n := range textLens {
		if n < threshold {
			bounds[page+1] = struct{}{}
		}
	}
	sorted := make([]int, 0, len(bounds))
	for b := range bounds {
		sorted = append(sorted, b)
	}
	sort.Ints(sorted)

	var plan Plan
	for i := 0; i+1 < len(sorted); i++ {
		if sorted[i+1]-sorted[i] < 1 {
			continue
		}
		plan = append(plan, Range{Start: sorted[i], End: sorted[i+1]})
	}
	log.Debug().Int("total", totalPages).Int("threshold", threshold).Int("parts", len(plan)).Msg("planned by content")
	return plan, nil
}

// SanitizeLabel strips every rune outside alphanumerics, space, hyphen
// and underscore, then trims surrounding whitespace.
func SanitizeLabel(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
