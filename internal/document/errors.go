package document

import "fmt"

// SourceUnavailableError reports a source document that is closed or
// cannot be read.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s unavailable: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("source %s unavailable", e.Path)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// PageOutOfRangeError reports a page index that is not valid against the
// source's current page count.
type PageOutOfRangeError struct {
	Index int
	Count int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range (source has %d pages)", e.Index, e.Count)
}

// UnsupportedTypeError reports an input whose magic bytes are not a PDF.
type UnsupportedTypeError struct {
	Path string
	MIME string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %s for %s (PDF required)", e.MIME, e.Path)
}
