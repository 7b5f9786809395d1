package partition

// MergeRef addresses one page of one source in a cross-document merge:
// Source indexes into the caller's ordered source list, Page is 0-based
// within that source.
type MergeRef struct {
	Source int
	Page   int
}

// Concat produces the straight-concatenation merge ordering: every page
// of every source, in listed order. pageCounts holds one count per
// source.
func Concat(pageCounts []int) []MergeRef {
	total := 0
	for _, n := range pageCounts {
		total += n
	}
	refs := make([]MergeRef, 0, total)
	for src, n := range pageCounts {
		for page := 0; page < n; page++ {
			refs = append(refs, MergeRef{Source: src, Page: page})
		}
	}
	return refs
}

// Explicit validates a caller-supplied merge ordering against the source
// page counts. Every ref must name an existing source and an in-range
// page.
func Explicit(pageCounts []int, order []MergeRef) ([]MergeRef, error) {
	for _, ref := range order {
		if ref.Source < 0 || ref.Source >= len(pageCounts) {
			return nil, &PageOutOfRangeError{Source: ref.Source, Page: ref.Page, Total: -1}
		}
		if ref.Page < 0 || ref.Page >= pageCounts[ref.Source] {
			return nil, &PageOutOfRangeError{Source: ref.Source, Page: ref.Page, Total: pageCounts[ref.Source]}
		}
	}
	out := make([]MergeRef, len(order))
	copy(out, order)
	return out, nil
}
