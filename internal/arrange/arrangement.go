package arrange

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// PageRef points at one page of one source document. Rotation is an
// override in degrees (0 means none); multiple refs may share the same
// PageIndex (duplication), and indices may be absent entirely (deletion).
type PageRef struct {
	SourceID  string
	PageIndex int
	Rotation  int
}

// Invalidator evicts stale cached renders when a page's rotation changes.
type Invalidator interface {
	InvalidatePage(sourceID string, pageIndex int)
}

// Options configures a new Arrangement.
type Options struct {
	// UndoDepth caps both history stacks; oldest snapshots are dropped
	// past the cap. Must be >= 1; zero selects the default.
	UndoDepth int
	// AllowEmpty permits Delete to remove every page.
	AllowEmpty bool
	// Invalidator is optional.
	Invalidator Invalidator
}

// DefaultUndoDepth bounds history when Options.UndoDepth is zero.
const DefaultUndoDepth = 100

// Arrangement is a mutable ordering of page references with bounded
// undo/redo history. All mutating methods are serialized on an internal
// mutex: concurrent callers queue, they never interleave.
type Arrangement struct {
	mu    sync.Mutex
	refs  []PageRef
	undo  [][]PageRef
	redo  [][]PageRef
	depth int
	opts  Options
}

// New creates an arrangement over pageCount pages of one source, in
// natural order with no rotation overrides.
func New(sourceID string, pageCount int, opts Options) *Arrangement {
	depth := opts.UndoDepth
	if depth <= 0 {
		depth = DefaultUndoDepth
	}
	refs := make([]PageRef, pageCount)
	for i := range refs {
		refs[i] = PageRef{SourceID: sourceID, PageIndex: i}
	}
	log.Debug().Str("source", sourceID).Int("pages", pageCount).Msg("arrangement created")
	return &Arrangement{refs: refs, depth: depth, opts: opts}
}

// FromRefs creates an arrangement over an explicit reference sequence.
func FromRefs(refs []PageRef, opts Options) *Arrangement {
	depth := opts.UndoDepth
	if depth <= 0 {
		depth = DefaultUndoDepth
	}
	a := &Arrangement{refs: make([]PageRef, len(refs)), depth: depth, opts: opts}
	copy(a.refs, refs)
	return a
}

// Len returns the current number of page references.
func (a *Arrangement) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.refs)
}

// Refs returns a copy of the current ordering.
func (a *Arrangement) Refs() []PageRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]PageRef, len(a.refs))
	copy(out, a.refs)
	return out
}

// snapshot pushes the pre-mutation state onto the undo stack and clears
// redo. Callers hold a.mu and must have validated the mutation already:
// once a snapshot is taken the mutation must succeed.
func (a *Arrangement) snapshot() {
	cp := make([]PageRef, len(a.refs))
	copy(cp, a.refs)
	a.undo = append(a.undo, cp)
	if len(a.undo) > a.depth {
		a.undo = a.undo[1:]
	}
	a.redo = nil
}

// Reorder replaces the full ordering. The new order must have the same
// length as the current one; deletions and duplications go through the
// dedicated operations.
func (a *Arrangement) Reorder(newOrder []int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(newOrder) != len(a.refs) {
		return &InvalidArrangementError{Got: len(newOrder), Want: len(a.refs)}
	}
	seen := make(map[int]struct{}, len(newOrder))
	for _, idx := range newOrder {
		if idx < 0 || idx >= len(a.refs) {
			return &IndexOutOfRangeError{Index: idx, Len: len(a.refs)}
		}
		if _, dup := seen[idx]; dup {
			return &InvalidArrangementError{Got: len(newOrder), Want: len(a.refs)}
		}
		seen[idx] = struct{}{}
	}

	a.snapshot()
	next := make([]PageRef, len(newOrder))
	for i, idx := range newOrder {
		next[i] = a.refs[idx]
	}
	a.refs = next
	log.Debug().Ints("order", newOrder).Msg("arrangement reordered")
	return nil
}

// Move removes the reference at from and reinserts it at to.
func (a *Arrangement) Move(from, to int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if from < 0 || from >= len(a.refs) {
		return &IndexOutOfRangeError{Index: from, Len: len(a.refs)}
	}
	if to < 0 || to >= len(a.refs) {
		return &IndexOutOfRangeError{Index: to, Len: len(a.refs)}
	}

	a.snapshot()
	ref := a.refs[from]
	a.refs = append(a.refs[:from], a.refs[from+1:]...)
	a.refs = append(a.refs[:to], append([]PageRef{ref}, a.refs[to:]...)...)
	log.Debug().Int("from", from).Int("to", to).Msg("page moved")
	return nil
}

// Delete removes all listed positions as a single undo step.
func (a *Arrangement) Delete(indices []int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	drop := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(a.refs) {
			return &IndexOutOfRangeError{Index: idx, Len: len(a.refs)}
		}
		drop[idx] = struct{}{}
	}
	if len(drop) == 0 {
		return nil
	}
	if !a.opts.AllowEmpty && len(drop) >= len(a.refs) {
		return ErrWouldBeEmpty
	}

	a.snapshot()
	kept := a.refs[:0:0]
	for i, ref := range a.refs {
		if _, gone := drop[i]; !gone {
			kept = append(kept, ref)
		}
	}
	a.refs = kept
	log.Debug().Int("deleted", len(drop)).Int("remaining", len(a.refs)).Msg("pages deleted")
	return nil
}

// Duplicate inserts a copy of each listed reference immediately after the
// original. Indices are processed in ascending order with a running
// offset, so later duplicates land after earlier ones.
func (a *Arrangement) Duplicate(indices []int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	uniq := make([]int, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(a.refs) {
			return &IndexOutOfRangeError{Index: idx, Len: len(a.refs)}
		}
		if _, dup := seen[idx]; !dup {
			seen[idx] = struct{}{}
			uniq = append(uniq, idx)
		}
	}
	if len(uniq) == 0 {
		return nil
	}
	sort.Ints(uniq)

	a.snapshot()
	offset := 0
	for _, idx := range uniq {
		pos := idx + offset
		ref := a.refs[pos]
		a.refs = append(a.refs[:pos+1], append([]PageRef{ref}, a.refs[pos+1:]...)...)
		offset++
	}
	log.Debug().Int("duplicated", len(uniq)).Int("len", len(a.refs)).Msg("pages duplicated")
	return nil
}

// Rotate adds angle to the rotation override of the reference at index.
// Valid angles are ±90, ±180 and ±270; the result is normalized into
// [0, 360). The page's cached thumbnail is invalidated since its render
// is stale.
func (a *Arrangement) Rotate(index, angle int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index < 0 || index >= len(a.refs) {
		return &IndexOutOfRangeError{Index: index, Len: len(a.refs)}
	}
	switch angle {
	case 90, 180, 270, -90, -180, -270:
	default:
		return &InvalidAngleError{Angle: angle}
	}

	a.snapshot()
	ref := &a.refs[index]
	norm := ((ref.Rotation + angle) % 360 + 360) % 360
	ref.Rotation = norm
	if a.opts.Invalidator != nil {
		a.opts.Invalidator.InvalidatePage(ref.SourceID, ref.PageIndex)
	}
	log.Debug().Int("index", index).Int("angle", norm).Msg("page rotated")
	return nil
}

// Undo swaps the current ordering with the most recent snapshot. Returns
// false when there is nothing to undo. Pages whose rotation differs
// between the two states get their cached render invalidated, same as a
// direct Rotate.
func (a *Arrangement) Undo() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.undo) == 0 {
		return false
	}
	cur := make([]PageRef, len(a.refs))
	copy(cur, a.refs)
	a.redo = append(a.redo, cur)
	if len(a.redo) > a.depth {
		a.redo = a.redo[1:]
	}
	a.refs = a.undo[len(a.undo)-1]
	a.undo = a.undo[:len(a.undo)-1]
	a.invalidateRotationDiff(cur, a.refs)
	log.Debug().Msg("undo")
	return true
}

// Redo reverses the most recent Undo. Returns false when there is
// nothing to redo.
func (a *Arrangement) Redo() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.redo) == 0 {
		return false
	}
	cur := make([]PageRef, len(a.refs))
	copy(cur, a.refs)
	a.undo = append(a.undo, cur)
	if len(a.undo) > a.depth {
		a.undo = a.undo[1:]
	}
	a.refs = a.redo[len(a.redo)-1]
	a.redo = a.redo[:len(a.redo)-1]
	a.invalidateRotationDiff(cur, a.refs)
	log.Debug().Msg("redo")
	return true
}

type pageKey struct {
	source string
	page   int
}

// invalidateRotationDiff evicts the cached render of every page whose
// rotation overrides differ between two states. Cached renders are keyed
// per page, not per rotation, so a history swap that changes a page's
// effective rotation leaves the old render stale exactly like Rotate
// does.
func (a *Arrangement) invalidateRotationDiff(before, after []PageRef) {
	if a.opts.Invalidator == nil {
		return
	}
	rotations := func(refs []PageRef) map[pageKey][]int {
		m := make(map[pageKey][]int, len(refs))
		for _, r := range refs {
			k := pageKey{r.SourceID, r.PageIndex}
			m[k] = append(m[k], r.Rotation)
		}
		for _, rots := range m {
			sort.Ints(rots)
		}
		return m
	}
	old, next := rotations(before), rotations(after)
	for k, rots := range old {
		if !equalInts(rots, next[k]) {
			a.opts.Invalidator.InvalidatePage(k.source, k.page)
		}
		delete(next, k)
	}
	for k := range next {
		a.opts.Invalidator.InvalidatePage(k.source, k.page)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
