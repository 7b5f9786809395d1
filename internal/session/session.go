package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/local/pageforge/internal/arrange"
	"github.com/local/pageforge/internal/assemble"
	"github.com/local/pageforge/internal/cache"
	"github.com/local/pageforge/internal/document"
	"github.com/local/pageforge/internal/metrics"
	"github.com/local/pageforge/internal/thumb"
)

// Session owns one editing session: an open source document, the mutable
// arrangement over it and the cache partition serving its thumbnails.
type Session struct {
	ID string

	doc     *document.Document
	arr     *arrange.Arrangement
	store   *cache.Store
	opts    thumb.Options
	onClose []func()
}

// PageInfo describes one position of the arrangement for UI layers.
type PageInfo struct {
	Position   int     `json:"position"`
	SourcePage int     `json:"source_page"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Rotation   int     `json:"rotation"`
	HasText    bool    `json:"has_text"`
}

// cacheInvalidator evicts a page's thumbnail when its rotation changes.
type cacheInvalidator struct {
	store   *cache.Store
	variant string
}

func (c cacheInvalidator) InvalidatePage(sourceID string, page int) {
	c.store.Invalidate(cache.NewFingerprint(sourceID, page, c.variant))
}

// OnClose registers a cleanup hook run when the session closes, e.g.
// removing a temp file the source was fetched into.
func (s *Session) OnClose(fn func()) {
	if fn != nil {
		s.onClose = append(s.onClose, fn)
	}
}

// Document returns the session's source document.
func (s *Session) Document() *document.Document { return s.doc }

// Arrangement returns the session's arrangement.
func (s *Session) Arrangement() *arrange.Arrangement { return s.arr }

// Thumbnail returns the JPEG thumbnail for the page at the given
// arrangement position, rendering and caching on miss. Concurrent
// requests for the same page render at most once.
func (s *Session) Thumbnail(position int) ([]byte, error) {
	refs := s.arr.Refs()
	if position < 0 || position >= len(refs) {
		return nil, &arrange.IndexOutOfRangeError{Index: position, Len: len(refs)}
	}
	ref := refs[position]
	fp := cache.NewFingerprint(ref.SourceID, ref.PageIndex, s.opts.Variant())
	return s.store.GetOrCompute(fp, func() ([]byte, error) {
		return thumb.Render(s.doc, ref.PageIndex, ref.Rotation, s.opts)
	})
}

// PageInfoAt reports geometry and content hints for one position.
func (s *Session) PageInfoAt(position int) (PageInfo, error) {
	refs := s.arr.Refs()
	if position < 0 || position >= len(refs) {
		return PageInfo{}, &arrange.IndexOutOfRangeError{Index: position, Len: len(refs)}
	}
	ref := refs[position]
	rect, err := s.doc.PageRect(ref.PageIndex)
	if err != nil {
		return PageInfo{}, err
	}
	text, err := s.doc.PageText(ref.PageIndex)
	if err != nil {
		return PageInfo{}, err
	}
	return PageInfo{
		Position:   position,
		SourcePage: ref.PageIndex,
		Width:      rect.Width,
		Height:     rect.Height,
		Rotation:   ref.Rotation,
		HasText:    len(text) > 0,
	}, nil
}

// Assemble materializes the current arrangement into outPath.
func (s *Session) Assemble(ctx context.Context, outPath string) error {
	return assemble.FromArrangement(ctx, []*document.Document{s.doc}, s.arr.Refs(), outPath)
}

// Close releases the document handle and drops the session's disk cache
// partition.
func (s *Session) Close() error {
	s.store.ReleaseSource(s.doc.ID())
	err := s.doc.Close()
	for _, fn := range s.onClose {
		fn()
	}
	metrics.SessionClosed()
	log.Info().Str("session", s.ID).Msg("session closed")
	return err
}
