package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pageforge/internal/metrics"
)

// DefaultMemoryCapacity bounds the memory tier when no capacity is given.
const DefaultMemoryCapacity = 500

// Store is a two-tier content-addressed cache for rendered page
// thumbnails: a bounded in-memory LRU in front of a flat on-disk tier.
// Disk files are plain payload bytes, independently reproducible and
// safe to delete at any time; disk failures degrade to cache misses.
type Store struct {
	dir string

	mu  sync.Mutex
	mem *lruList

	// per-fingerprint compute slots so at most one caller renders a
	// missing payload at a time
	slotMu sync.Mutex
	slots  map[string]chan struct{}
}

// NewStore creates the cache root directory and returns a ready store.
func NewStore(dir string, memoryCapacity int) (*Store, error) {
	if memoryCapacity <= 0 {
		memoryCapacity = DefaultMemoryCapacity
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	log.Info().Str("dir", dir).Int("memory_capacity", memoryCapacity).Msg("cache store initialized")
	return &Store{
		dir:   dir,
		mem:   newLRUList(memoryCapacity),
		slots: map[string]chan struct{}{},
	}, nil
}

// Get returns the cached payload for fp, promoting memory hits to most
// recently used and re-populating the memory tier on disk hits.
func (s *Store) Get(fp Fingerprint) ([]byte, bool) {
	s.mu.Lock()
	if payload, ok := s.mem.get(fp.key()); ok {
		s.mu.Unlock()
		metrics.CacheHit("memory")
		return payload, true
	}
	s.mu.Unlock()
	metrics.CacheMiss("memory")

	payload, err := os.ReadFile(s.diskPath(fp))
	if err != nil {
		if !os.IsNotExist(err) {
			// corrupt or vanished mid-read: treat as a miss
			log.Warn().Err(err).Str("fingerprint", fp.Hash).Msg("disk cache read failed")
		}
		metrics.CacheMiss("disk")
		return nil, false
	}
	metrics.CacheHit("disk")

	s.mu.Lock()
	s.putMemory(fp, payload)
	s.mu.Unlock()
	return payload, true
}

// Put stores the payload in both tiers. The disk write goes through a
// temp file and rename so a fingerprint never has a half-written file;
// re-putting the same fingerprint replaces, never duplicates.
func (s *Store) Put(fp Fingerprint, payload []byte) error {
	s.mu.Lock()
	s.putMemory(fp, payload)
	s.mu.Unlock()

	path := s.diskPath(fp)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn().Err(err).Str("fingerprint", fp.Hash).Msg("disk cache dir create failed; memory tier only")
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "put-*")
	if err != nil {
		log.Warn().Err(err).Str("fingerprint", fp.Hash).Msg("disk cache write failed; memory tier only")
		return nil
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		log.Warn().Err(err).Str("fingerprint", fp.Hash).Msg("disk cache write failed; memory tier only")
		return nil
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		log.Warn().Err(err).Str("fingerprint", fp.Hash).Msg("disk cache close failed; memory tier only")
		return nil
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		log.Warn().Err(err).Str("fingerprint", fp.Hash).Msg("disk cache rename failed; memory tier only")
	}
	return nil
}

// GetOrCompute returns the cached payload for fp, or calls produce and
// caches its result. At most one concurrent caller computes a given
// fingerprint; the rest wait and re-check the cache.
func (s *Store) GetOrCompute(fp Fingerprint, produce func() ([]byte, error)) ([]byte, error) {
	if payload, ok := s.Get(fp); ok {
		return payload, nil
	}

	release := s.lockSlot(fp)
	defer release()

	// another caller may have finished while we waited
	if payload, ok := s.Get(fp); ok {
		return payload, nil
	}

	payload, err := produce()
	if err != nil {
		return nil, err
	}
	_ = s.Put(fp, payload)
	return payload, nil
}

// Invalidate removes the fingerprint from both tiers.
func (s *Store) Invalidate(fp Fingerprint) {
	s.mu.Lock()
	s.mem.remove(fp.key())
	s.mu.Unlock()
	if err := os.Remove(s.diskPath(fp)); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("fingerprint", fp.Hash).Msg("disk cache invalidate failed")
	}
	metrics.CacheInvalidate("both")
}

// Cleanup removes disk entries whose last-modified time exceeds maxAge
// and returns the number removed. The memory tier is untouched.
func (s *Store) Cleanup(maxAge time.Duration) int {
	now := time.Now()
	removed := 0
	_ = filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) >= maxAge {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	if removed > 0 {
		log.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("cleaned up disk cache")
	}
	return removed
}

// ClearAll empties both tiers.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.mem.clear()
	s.mu.Unlock()
	_ = filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		_ = os.Remove(path)
		return nil
	})
	log.Info().Msg("cleared all cache tiers")
}

// ReleaseSource drops every disk entry belonging to one source identity.
// Called when an editing session over that source ends.
func (s *Store) ReleaseSource(sourceID string) {
	if sourceID == "" {
		return
	}
	_ = os.RemoveAll(filepath.Join(s.dir, sourceID))
}

func (s *Store) putMemory(fp Fingerprint, payload []byte) {
	if _, evicted := s.mem.put(fp.key(), payload); evicted {
		metrics.CacheEvict("memory")
	}
}

func (s *Store) diskPath(fp Fingerprint) string {
	return filepath.Join(s.dir, fp.SourceID, fp.Hash+".jpg")
}

// lockSlot reserves the compute slot for fp, blocking while another
// caller holds it. Modeled as a one-deep semaphore per key.
func (s *Store) lockSlot(fp Fingerprint) func() {
	key := fp.key()
	s.slotMu.Lock()
	ch, ok := s.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.slots[key] = ch
	}
	s.slotMu.Unlock()
	ch <- struct{}{}
	return func() { <-ch }
}
