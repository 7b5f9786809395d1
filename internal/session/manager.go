package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pageforge/internal/arrange"
	"github.com/local/pageforge/internal/cache"
	"github.com/local/pageforge/internal/document"
	"github.com/local/pageforge/internal/metrics"
	"github.com/local/pageforge/internal/thumb"
)

// Options configures sessions opened by a Manager.
type Options struct {
	UndoDepth  int
	AllowEmpty bool
	Thumbnail  thumb.Options
}

// Manager tracks open editing sessions over a shared cache store.
type Manager struct {
	store *cache.Store
	opts  Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager backed by the given cache store.
func NewManager(store *cache.Store, opts Options) *Manager {
	metrics.SetUndoDepth(opts.UndoDepth)
	return &Manager{store: store, opts: opts, sessions: map[string]*Session{}}
}

// Open opens a source document and starts an editing session over it.
func (m *Manager) Open(path string) (*Session, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, err
	}

	variant := m.opts.Thumbnail.Variant()
	arr := arrange.New(doc.ID(), doc.PageCount(), arrange.Options{
		UndoDepth:   m.opts.UndoDepth,
		AllowEmpty:  m.opts.AllowEmpty,
		Invalidator: cacheInvalidator{store: m.store, variant: variant},
	})

	s := &Session{
		ID:    uuid.NewString(),
		doc:   doc,
		arr:   arr,
		store: m.store,
		opts:  m.opts.Thumbnail,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.SessionOpened()
	log.Info().Str("session", s.ID).Str("file", path).Int("pages", doc.PageCount()).Msg("session opened")
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no such session: %s", id)
	}
	return s, nil
}

// Close ends a session and releases its resources.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such session: %s", id)
	}
	return s.Close()
}

// CloseAll ends every open session, used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}
}
