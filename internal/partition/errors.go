package partition

import (
	"errors"
	"fmt"
)

// ErrNoOutline is returned by ByBookmarks when the source has no outline
// entries to split on.
var ErrNoOutline = errors.New("document has no outline entries")

// InvalidParameterError reports a strategy parameter that fails
// validation before any planning happens.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

// InvalidSplitPointError reports an explicit split marker outside
// [0, totalPages).
type InvalidSplitPointError struct {
	Point      int
	TotalPages int
}

func (e *InvalidSplitPointError) Error() string {
	return fmt.Sprintf("split point %d outside [0, %d)", e.Point, e.TotalPages)
}

// PageOutOfRangeError reports a merge reference to a missing source or
// an out-of-range page of a valid source.
type PageOutOfRangeError struct {
	Source int
	Page   int
	Total  int
}

func (e *PageOutOfRangeError) Error() string {
	if e.Total < 0 {
		return fmt.Sprintf("merge reference to unknown source %d", e.Source)
	}
	return fmt.Sprintf("page %d out of range for source %d (%d pages)", e.Page, e.Source, e.Total)
}
