package arrange

import (
	"errors"
	"fmt"
)

// ErrWouldBeEmpty is returned by Delete when removing the requested pages
// would leave the arrangement empty and empty arrangements are disallowed.
var ErrWouldBeEmpty = errors.New("operation would leave arrangement empty")

// InvalidArrangementError reports a Reorder call whose ordering does not
// match the current arrangement length.
type InvalidArrangementError struct {
	Got  int
	Want int
}

func (e *InvalidArrangementError) Error() string {
	return fmt.Sprintf("invalid arrangement: got %d positions, want %d", e.Got, e.Want)
}

// IndexOutOfRangeError reports a page position outside [0, len).
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range (arrangement has %d pages)", e.Index, e.Len)
}

// InvalidAngleError reports a rotation angle outside {±90, ±180, ±270}.
type InvalidAngleError struct {
	Angle int
}

func (e *InvalidAngleError) Error() string {
	return fmt.Sprintf("invalid rotation angle %d: must be one of 90, 180, 270, -90, -180, -270", e.Angle)
}
